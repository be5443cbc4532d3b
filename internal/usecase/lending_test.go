package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"libraryapi/internal/entity"
	"libraryapi/internal/testutil"
	"libraryapi/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLendingUsecase_IssueAndReturn(t *testing.T) {
	lib := testutil.NewLibrary()
	ctx := context.Background()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")

	issued, err := lib.Lending.Issue(ctx, user.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderIssued, issued.Kind)
	assert.Equal(t, user.ID, issued.UserID)
	assert.Equal(t, book.ID, issued.BookID)
	assert.False(t, issued.OccurredAt.IsZero())

	b, err := lib.Catalog.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.True(t, b.Issued)
	assert.True(t, b.IsHeldBy(user.ID))
	assert.Equal(t, "alice", b.Holder)

	u, err := lib.Patron.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, u.Holds(book.ID))
	assert.Equal(t, "Dune", u.IssuedBook)

	returned, err := lib.Lending.Return(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderReturned, returned.Kind)
	assert.Equal(t, book.ID, returned.BookID)

	b, err = lib.Catalog.GetBookByID(ctx, book.ID)
	require.NoError(t, err)
	assert.False(t, b.Issued)
	assert.Nil(t, b.HolderID)

	u, err = lib.Patron.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Nil(t, u.HeldBookID)

	orders, err := lib.Lending.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, entity.OrderIssued, orders[0].Kind)
	assert.Equal(t, entity.OrderReturned, orders[1].Kind)

	lib.CheckConsistency(t)
}

func TestLendingUsecase_ReturnTwice(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)

	_, err := lib.Lending.Return(context.Background(), user.ID)
	require.NoError(t, err)

	_, err = lib.Lending.Return(context.Background(), user.ID)
	assert.ErrorIs(t, err, usecase.ErrNoBookToReturn)
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	orders, err := lib.Lending.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 2, "a failed return must not append a record")
}

func TestLendingUsecase_IssueFailures(t *testing.T) {
	lib := testutil.NewLibrary()
	ctx := context.Background()
	dune := lib.MustAddBook(t, "Dune", "Frank Herbert")
	emma := lib.MustAddBook(t, "Emma", "Jane Austen")
	alice := lib.MustAddUser(t, "alice")
	bob := lib.MustAddUser(t, "bob")
	carol := lib.MustAddUser(t, "carol")
	lib.MustIssue(t, alice.ID, dune.ID)

	tests := []struct {
		name    string
		userID  int64
		bookID  int64
		wantErr error
	}{
		{"book already issued", bob.ID, dune.ID, usecase.ErrBookAlreadyIssued},
		{"user already holds a book", alice.ID, emma.ID, usecase.ErrUserHoldsBook},
		{"user holds this very book", alice.ID, dune.ID, usecase.ErrUserHoldsBook},
		{"missing book", carol.ID, 999, usecase.ErrNotFound},
		{"missing user", 999, emma.ID, usecase.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := lib.Lending.Issue(ctx, tt.userID, tt.bookID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	orders, err := lib.Lending.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	lib.CheckConsistency(t)
}

func TestLendingUsecase_IssueCheckOrder(t *testing.T) {
	lib := testutil.NewLibrary()
	ctx := context.Background()

	t.Run("missing book is reported before missing user", func(t *testing.T) {
		_, err := lib.Lending.Issue(ctx, 404, 405)
		require.ErrorIs(t, err, usecase.ErrNotFound)
		assert.Contains(t, err.Error(), "book 405")
	})

	t.Run("holding user is reported before issued book", func(t *testing.T) {
		dune := lib.MustAddBook(t, "Dune", "Frank Herbert")
		emma := lib.MustAddBook(t, "Emma", "Jane Austen")
		alice := lib.MustAddUser(t, "alice")
		bob := lib.MustAddUser(t, "bob")
		lib.MustIssue(t, alice.ID, dune.ID)
		lib.MustIssue(t, bob.ID, emma.ID)

		_, err := lib.Lending.Issue(ctx, alice.ID, emma.ID)
		assert.ErrorIs(t, err, usecase.ErrUserHoldsBook)
		assert.NotErrorIs(t, err, usecase.ErrBookAlreadyIssued)
	})
}

func TestLendingUsecase_ListOrdersByUser(t *testing.T) {
	lib := testutil.NewLibrary()
	ctx := context.Background()
	dune := lib.MustAddBook(t, "Dune", "Frank Herbert")
	emma := lib.MustAddBook(t, "Emma", "Jane Austen")
	alice := lib.MustAddUser(t, "alice")
	bob := lib.MustAddUser(t, "bob")

	lib.MustIssue(t, alice.ID, dune.ID)
	lib.MustIssue(t, bob.ID, emma.ID)
	_, err := lib.Lending.Return(ctx, alice.ID)
	require.NoError(t, err)

	orders, err := lib.Lending.ListOrdersByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	for _, o := range orders {
		assert.Equal(t, alice.ID, o.UserID)
	}

	orders, err = lib.Lending.ListOrdersByUser(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestLendingUsecase_ListOrdersByUserAfterDelete(t *testing.T) {
	lib := testutil.NewLibrary()
	ctx := context.Background()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)

	require.NoError(t, lib.Patron.DeleteUserByUsername(ctx, "alice"))

	orders, err := lib.Lending.ListOrdersByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, entity.OrderIssued, orders[0].Kind)
	assert.Equal(t, entity.OrderReturned, orders[1].Kind)
}

func TestLendingUsecase_ConcurrentIssueOfOneBook(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")

	const n = 16
	users := make([]int64, n)
	for i := range n {
		users[i] = lib.MustAddUser(t, fmt.Sprintf("user%d", i)).ID
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		wins   int
		losses int
	)
	for _, id := range users {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lib.Lending.Issue(context.Background(), id, book.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, usecase.ErrBookAlreadyIssued):
				losses++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, losses)
	lib.CheckConsistency(t)
}

func TestLendingUsecase_ConcurrentIssueToOneUser(t *testing.T) {
	lib := testutil.NewLibrary()
	user := lib.MustAddUser(t, "alice")

	const n = 16
	books := make([]int64, n)
	for i := range n {
		books[i] = lib.MustAddBook(t, fmt.Sprintf("Book %d", i), "").ID
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for _, id := range books {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lib.Lending.Issue(context.Background(), user.ID, id)
			if err != nil && !errors.Is(err, usecase.ErrUserHoldsBook) {
				t.Errorf("unexpected error: %v", err)
			}
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	lib.CheckConsistency(t)
}

func TestLendingUsecase_CanceledContext(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lib.Lending.Issue(ctx, user.ID, book.ID)
	assert.ErrorIs(t, err, usecase.ErrStoreUnavailable)
	lib.CheckConsistency(t)
}
