package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"libraryapi/internal/app"
	"libraryapi/internal/testutil"
	"libraryapi/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, lib *testutil.Library, stdin string, args ...string) (string, error) {
	t.Helper()
	open := func(context.Context) (*app.App, error) {
		return &app.App{Store: lib.Store, Catalog: lib.Catalog, Patron: lib.Patron, Lending: lib.Lending}, nil
	}

	var out bytes.Buffer
	root := newRootCmd(open, strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_LendingFlow(t *testing.T) {
	lib := testutil.NewLibrary()

	out, err := runCLI(t, lib, "", "book", "add", "Dune", "--author", "Frank Herbert")
	require.NoError(t, err)
	assert.Contains(t, out, `Added book "Dune" with ID 1`)

	out, err = runCLI(t, lib, "s3cret\n", "user", "add", "alice")
	require.NoError(t, err)
	assert.Contains(t, out, `Added user "alice" with ID 1`)

	out, err = runCLI(t, lib, "", "issue", "1", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Issued book 1 to user 1")

	out, err = runCLI(t, lib, "", "book", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")

	_, err = runCLI(t, lib, "", "issue", "1", "1")
	assert.ErrorIs(t, err, usecase.ErrInvalidState)

	out, err = runCLI(t, lib, "", "return", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "User 1 returned book 1")

	out, err = runCLI(t, lib, "", "history", "--user", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "ISSUED")
	assert.Contains(t, out, "RETURNED")

	lib.CheckConsistency(t)
}

func TestCLI_UserShow(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)

	out, err := runCLI(t, lib, "", "user", "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Username:    alice")
	assert.Contains(t, out, "Issued book: Dune")

	_, err = runCLI(t, lib, "", "user", "show", "42")
	assert.ErrorIs(t, err, usecase.ErrNotFound)

	_, err = runCLI(t, lib, "", "user", "show", "abc")
	assert.Error(t, err)
}

func TestCLI_UserRole(t *testing.T) {
	lib := testutil.NewLibrary()
	lib.MustAddUser(t, "alice")

	out, err := runCLI(t, lib, "", "user", "role", "alice", "ADMIN")
	require.NoError(t, err)
	assert.Contains(t, out, `User "alice" is now ADMIN`)

	_, err = runCLI(t, lib, "", "user", "role", "alice", "OWNER")
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestCLI_UserAddRejectsEmptyPassword(t *testing.T) {
	_, err := runCLI(t, testutil.NewLibrary(), "\n", "user", "add", "alice")
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
}

func TestCLI_InvalidID(t *testing.T) {
	_, err := runCLI(t, testutil.NewLibrary(), "", "issue", "abc", "1")
	assert.ErrorContains(t, err, "invalid user id")
}

func TestCLI_DeleteIssuedBook(t *testing.T) {
	lib := testutil.NewLibrary()
	book := lib.MustAddBook(t, "Dune", "Frank Herbert")
	user := lib.MustAddUser(t, "alice")
	lib.MustIssue(t, user.ID, book.ID)

	out, err := runCLI(t, lib, "", "book", "delete", "Dune")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted book "Dune"`)
	lib.CheckConsistency(t)

	out, err = runCLI(t, lib, "", "user", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "alice")
}
