package intake

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveShortIdentifierSkipsLookup(t *testing.T) {
	gw := seededGateway()
	r := NewResolver(gw)

	for _, in := range []string{"", "1", "1234567", "  1234567  "} {
		ref, err := r.Resolve(context.Background(), in)
		assert.Nil(t, ref)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound), in)

		ie, ok := AsError(err)
		require.True(t, ok)
		assert.Equal(t, msgShortIMEI, ie.Message)
	}
	assert.Zero(t, gw.lookupCount())
}

func TestResolveUsesFirstEightCharacters(t *testing.T) {
	gw := seededGateway()
	r := NewResolver(gw)

	ref, err := r.Resolve(context.Background(), " 1234567890123456 ")
	require.NoError(t, err)
	assert.Equal(t, "Apple", ref.Manufacturer)
	assert.Equal(t, "iPhone 13", ref.ModelName)

	ref, err = r.Resolve(context.Background(), "12345678")
	require.NoError(t, err)
	assert.Equal(t, "iPhone 13", ref.ModelName)
}

func TestResolveIsIdempotent(t *testing.T) {
	r := NewResolver(seededGateway())

	first, err := r.Resolve(context.Background(), "1234567890123456")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), "1234567800000000")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolveUnknownPrefix(t *testing.T) {
	r := NewResolver(seededGateway())

	_, err := r.Resolve(context.Background(), "9999999900000000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	ie, _ := AsError(err)
	assert.Equal(t, msgPrefixNotFound, ie.Message)
	assert.Equal(t, "9999999900000000", ie.Identifier)
}

func TestResolveLookupFailureIsTransient(t *testing.T) {
	gw := seededGateway()
	gw.lookupErr = errBoom
	r := NewResolver(gw)

	_, err := r.Resolve(context.Background(), "1234567890123456")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrNotFound)

	ie, _ := AsError(err)
	assert.Equal(t, msgLookupFailed, ie.Message)
}
