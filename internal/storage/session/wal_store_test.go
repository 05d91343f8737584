package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/simex/internal/domain"
)

func TestWALStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)

	_, ok, err := store.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(domain.Credentials{Address: "0xabc", APIKey: "first"}))
	require.NoError(t, store.Save(domain.Credentials{Address: "0xabc", APIKey: "second"}))

	creds, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", creds.APIKey)
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	creds, ok, err = reopened.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.Credentials{Address: "0xabc", APIKey: "second"}, creds)

	require.NoError(t, reopened.Save(domain.Credentials{}))
	creds, ok, err = reopened.Load()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, creds.Complete())
}

func TestWALStore_NotInitialized(t *testing.T) {
	var store *WALStore
	assert.Error(t, store.Save(domain.Credentials{}))
	_, _, err := store.Load()
	assert.Error(t, err)
	assert.Error(t, store.Close())
}
