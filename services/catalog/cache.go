package catalog

import (
	"context"
	"fmt"
	"strings"

	"refurb-app/types"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ModelLister loads the model names of one manufacturer from a unit database.
type ModelLister interface {
	ListModelNames(ctx context.Context, manufacturerID types.SnowflakeID) ([]string, error)
}

// ModelCache is a read-through cache of manufacturer model names keyed by unit and manufacturer.
type ModelCache struct {
	models *lru.Cache[string, []string]
}

func NewModelCache(size int) (*ModelCache, error) {
	if size <= 0 {
		size = 256
	}
	c, err := lru.New[string, []string](size)
	if err != nil {
		return nil, err
	}
	return &ModelCache{models: c}, nil
}

func cacheKey(unit string, manufacturerID types.SnowflakeID) string {
	return fmt.Sprintf("%s:%s", unit, manufacturerID)
}

// Models returns the cached model names, loading them through lister on a miss.
func (c *ModelCache) Models(ctx context.Context, unit string, manufacturerID types.SnowflakeID, lister ModelLister) ([]string, error) {
	key := cacheKey(unit, manufacturerID)
	if names, ok := c.models.Get(key); ok {
		return names, nil
	}

	names, err := lister.ListModelNames(ctx, manufacturerID)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	c.models.Add(key, names)
	return names, nil
}

// InvalidateUnit drops every entry of unit.
func (c *ModelCache) InvalidateUnit(unit string) {
	prefix := unit + ":"
	removed := 0
	for _, key := range c.models.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.models.Remove(key)
			removed++
		}
	}
	if removed > 0 {
		zap.L().Debug("catalog cache invalidated", zap.String("unit", unit), zap.Int("entries", removed))
	}
}

func (c *ModelCache) Purge() {
	c.models.Purge()
}

func (c *ModelCache) Len() int {
	return c.models.Len()
}
