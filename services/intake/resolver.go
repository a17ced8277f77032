package intake

import (
	"context"
	"strings"
)

// PrefixLength is the number of leading IMEI characters that form the TAC.
const PrefixLength = 8

type Resolver struct {
	lookup CatalogLookup
}

func NewResolver(lookup CatalogLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve maps an IMEI to its catalogue entry through the first PrefixLength characters.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*CatalogReference, error) {
	identifier = strings.TrimSpace(identifier)
	if len(identifier) < PrefixLength {
		return nil, newError(KindNotFound, msgShortIMEI, identifier, nil)
	}

	ref, err := r.lookup.LookupCatalogByPrefix(ctx, identifier[:PrefixLength])
	if err != nil {
		return nil, newError(KindTransient, msgLookupFailed, identifier, err)
	}
	if ref == nil {
		return nil, newError(KindNotFound, msgPrefixNotFound, identifier, nil)
	}
	return ref, nil
}
