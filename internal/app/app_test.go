package app

import (
	"context"
	"testing"

	"libraryapi/internal/config"
	"libraryapi/internal/store"
	"libraryapi/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MemoryStore(t *testing.T) {
	a, err := New(context.Background(), config.Config{BcryptCost: 4}, testutil.DiscardLogger())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &store.Memory{}, a.Store)

	book, err := a.Catalog.AddBook(context.Background(), "Dune", "Frank Herbert")
	require.NoError(t, err)
	user, err := a.Patron.AddUser(context.Background(), "alice", "pw")
	require.NoError(t, err)
	_, err = a.Lending.Issue(context.Background(), user.ID, book.ID)
	require.NoError(t, err)
}

func TestOpenPool_BadDSN(t *testing.T) {
	_, err := OpenPool(context.Background(), config.Config{DatabaseDSN: "::not a dsn::"})
	assert.Error(t, err)
}
