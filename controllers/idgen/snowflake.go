package idgen

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node     *snowflake.Node
	nodeOnce sync.Once
	nodeMu   sync.RWMutex
)

// Init pins the generator to nodeID. Each replica of the service needs a distinct node.
func Init(nodeID int64) error {
	n, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	nodeMu.Lock()
	node = n
	nodeMu.Unlock()
	return nil
}

// GenerateID falls back to node 1 when Init was never called (tests, one-off commands).
func GenerateID() int64 {
	nodeOnce.Do(func() {
		nodeMu.Lock()
		defer nodeMu.Unlock()
		if node == nil {
			node, _ = snowflake.NewNode(1)
		}
	})

	nodeMu.RLock()
	defer nodeMu.RUnlock()
	return node.Generate().Int64()
}
