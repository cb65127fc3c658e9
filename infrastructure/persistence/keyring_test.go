package persistence

import (
	"testing"

	"github.com/repokeeper/repokeeper/domain/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	store := NewKeyringStore("")

	_, err := store.Get("repo")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	require.NoError(t, store.Set("repo", "hunter2"))
	secret, err := store.Get("repo")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", secret)

	require.NoError(t, store.Delete("repo"))
	require.NoError(t, store.Delete("repo"), "deleting twice is fine")
	_, err = store.Get("repo")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
