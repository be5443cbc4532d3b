package testutil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/store"
	"libraryapi/internal/usecase"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/bcrypt"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Library wires the three use cases over a fresh in-memory store.
type Library struct {
	Store   *store.Memory
	Catalog *usecase.CatalogUsecase
	Patron  *usecase.PatronUsecase
	Lending *usecase.LendingUsecase
}

// DiscardLogger drops everything written to it.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func NewLibrary() *Library {
	s := store.NewMemory()
	lending := usecase.NewLendingUsecase(s, DiscardLogger())
	return &Library{
		Store:   s,
		Catalog: usecase.NewCatalogUsecase(s, lending),
		Patron:  usecase.NewPatronUsecase(s, lending, crypto.NewBcryptHasher(bcrypt.MinCost)),
		Lending: lending,
	}
}

// MustAddBook adds a book or fails the test.
func (l *Library) MustAddBook(t testing.TB, title, author string) usecase.BookDetails {
	t.Helper()
	b, err := l.Catalog.AddBook(context.Background(), title, author)
	if err != nil {
		t.Fatalf("add book %q: %v", title, err)
	}
	return b
}

// MustAddUser adds a user or fails the test.
func (l *Library) MustAddUser(t testing.TB, username string) usecase.UserDetails {
	t.Helper()
	u, err := l.Patron.AddUser(context.Background(), username, "secret")
	if err != nil {
		t.Fatalf("add user %q: %v", username, err)
	}
	return u
}

// MustIssue issues a book or fails the test.
func (l *Library) MustIssue(t testing.TB, userID, bookID int64) {
	t.Helper()
	if _, err := l.Lending.Issue(context.Background(), userID, bookID); err != nil {
		t.Fatalf("issue book %d to user %d: %v", bookID, userID, err)
	}
}

// CheckConsistency fails the test unless every holder reference has a
// matching held-book reference and vice versa.
func (l *Library) CheckConsistency(t testing.TB) {
	t.Helper()
	ctx := context.Background()

	books, err := l.Store.ListBooks(ctx)
	if err != nil {
		t.Fatalf("list books: %v", err)
	}
	users, err := l.Store.ListUsers(ctx)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}

	usersByID := make(map[int64]bool, len(users))
	for _, u := range users {
		usersByID[u.ID] = true
	}
	booksByID := make(map[int64]bool, len(books))
	for _, b := range books {
		booksByID[b.ID] = true
		if b.Issued != (b.HolderID != nil) {
			t.Errorf("book %d: issued=%v but holder=%v", b.ID, b.Issued, b.HolderID)
		}
		if b.HolderID == nil {
			continue
		}
		holder, err := l.Store.GetUser(ctx, *b.HolderID)
		if err != nil {
			t.Errorf("book %d: holder %d: %v", b.ID, *b.HolderID, err)
			continue
		}
		if !holder.Holds(b.ID) {
			t.Errorf("book %d held by user %d, but user holds %v", b.ID, holder.ID, holder.HeldBookID)
		}
	}
	for _, u := range users {
		if u.HeldBookID == nil {
			continue
		}
		if !booksByID[*u.HeldBookID] {
			t.Errorf("user %d holds missing book %d", u.ID, *u.HeldBookID)
			continue
		}
		book, _ := l.Store.GetBook(ctx, *u.HeldBookID)
		if !book.IsHeldBy(u.ID) {
			t.Errorf("user %d holds book %d, but book holder is %v", u.ID, book.ID, book.HolderID)
		}
	}
}

// NewRequest creates a new HTTP request for testing
func NewRequest(method, path string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	var bodyBytes []byte
	if raw, ok := body.(string); ok {
		bodyBytes = []byte(raw)
	} else {
		bodyBytes, _ = json.Marshal(body)
	}
	r := httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// RecordResponse records the HTTP response for testing
type RecordResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

// RecordHTTPResponse records the HTTP response
func RecordHTTPResponse(w *httptest.ResponseRecorder) RecordResponse {
	result := w.Result()
	defer result.Body.Close()

	bodyBytes, _ := io.ReadAll(result.Body)

	var bodyMap map[string]any
	if len(bodyBytes) > 0 {
		_ = json.Unmarshal(bodyBytes, &bodyMap)
	}

	return RecordResponse{
		Code:   result.StatusCode,
		Header: result.Header,
		Body:   bodyMap,
	}
}

// Data returns the "data" member of a success envelope as an object.
func (r RecordResponse) Data() map[string]any {
	d, _ := r.Body["data"].(map[string]any)
	return d
}

// ErrorCode returns error.code from an error envelope.
func (r RecordResponse) ErrorCode() string {
	e, _ := r.Body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}
