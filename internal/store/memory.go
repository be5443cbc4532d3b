package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"libraryapi/internal/entity"
	"libraryapi/internal/usecase"
)

var _ usecase.Store = (*Memory)(nil)

// Memory is an in-process entity store. Transactions are serialized by a
// single writer lock and work on a private copy of the state that replaces
// the shared one on commit, so readers never see a partial write.
type Memory struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *memState
}

type memState struct {
	books      map[int64]entity.Book
	users      map[int64]entity.User
	orders     []entity.Order
	nextBookID int64
	nextUserID int64
	nextOrder  int64
}

func NewMemory() *Memory {
	return &Memory{
		state: &memState{
			books: make(map[int64]entity.Book),
			users: make(map[int64]entity.User),
		},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		books:      maps.Clone(s.books),
		users:      maps.Clone(s.users),
		orders:     slices.Clone(s.orders),
		nextBookID: s.nextBookID,
		nextUserID: s.nextUserID,
		nextOrder:  s.nextOrder,
	}
}

func (m *Memory) snapshot() *memState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Memory) Ping(_ context.Context) error {
	return nil
}

func (m *Memory) WithinTx(ctx context.Context, fn func(tx usecase.Tx) error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", usecase.ErrStoreUnavailable, err)
	}

	tx := &memTx{state: m.snapshot().clone()}
	if err := fn(tx); err != nil {
		return err
	}

	m.mu.Lock()
	m.state = tx.state
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetBook(ctx context.Context, id int64) (entity.Book, error) {
	return m.snapshot().getBook(id)
}

func (m *Memory) GetBookByTitle(ctx context.Context, title string) (entity.Book, error) {
	return m.snapshot().getBookByTitle(title)
}

func (m *Memory) ListBooks(ctx context.Context) ([]entity.Book, error) {
	return m.snapshot().listBooks(), nil
}

func (m *Memory) GetUser(ctx context.Context, id int64) (entity.User, error) {
	return m.snapshot().getUser(id)
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (entity.User, error) {
	return m.snapshot().getUserByUsername(username)
}

func (m *Memory) ListUsers(ctx context.Context) ([]entity.User, error) {
	return m.snapshot().listUsers(), nil
}

func (m *Memory) ListOrders(ctx context.Context) ([]entity.Order, error) {
	return slices.Clone(m.snapshot().orders), nil
}

func (m *Memory) ListOrdersByUser(ctx context.Context, userID int64) ([]entity.Order, error) {
	return m.snapshot().ordersByUser(userID), nil
}

// Committed state is never mutated in place, only replaced, so the read
// helpers below are safe on a snapshot without holding a lock.

func (s *memState) getBook(id int64) (entity.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return entity.Book{}, usecase.ErrNotFound
	}
	return b, nil
}

func (s *memState) getBookByTitle(title string) (entity.Book, error) {
	for _, b := range s.books {
		if b.Title == title {
			return b, nil
		}
	}
	return entity.Book{}, usecase.ErrNotFound
}

func (s *memState) listBooks() []entity.Book {
	out := slices.Collect(maps.Values(s.books))
	slices.SortFunc(out, func(a, b entity.Book) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *memState) getUser(id int64) (entity.User, error) {
	u, ok := s.users[id]
	if !ok {
		return entity.User{}, usecase.ErrNotFound
	}
	return u, nil
}

func (s *memState) getUserByUsername(username string) (entity.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return entity.User{}, usecase.ErrNotFound
}

func (s *memState) listUsers() []entity.User {
	out := slices.Collect(maps.Values(s.users))
	slices.SortFunc(out, func(a, b entity.User) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (s *memState) ordersByUser(userID int64) []entity.Order {
	out := make([]entity.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out
}

type memTx struct {
	state *memState
}

func (t *memTx) GetBook(_ context.Context, id int64) (entity.Book, error) {
	return t.state.getBook(id)
}

func (t *memTx) GetBookByTitle(_ context.Context, title string) (entity.Book, error) {
	return t.state.getBookByTitle(title)
}

func (t *memTx) ListBooks(_ context.Context) ([]entity.Book, error) {
	return t.state.listBooks(), nil
}

func (t *memTx) GetUser(_ context.Context, id int64) (entity.User, error) {
	return t.state.getUser(id)
}

func (t *memTx) GetUserByUsername(_ context.Context, username string) (entity.User, error) {
	return t.state.getUserByUsername(username)
}

func (t *memTx) ListUsers(_ context.Context) ([]entity.User, error) {
	return t.state.listUsers(), nil
}

func (t *memTx) ListOrders(_ context.Context) ([]entity.Order, error) {
	return slices.Clone(t.state.orders), nil
}

func (t *memTx) ListOrdersByUser(_ context.Context, userID int64) ([]entity.Order, error) {
	return t.state.ordersByUser(userID), nil
}

func (t *memTx) SaveBook(_ context.Context, b *entity.Book) error {
	if other, err := t.state.getBookByTitle(b.Title); err == nil && other.ID != b.ID {
		return fmt.Errorf("book with title %q: %w", b.Title, usecase.ErrConflict)
	}
	if b.HolderID != nil {
		if _, err := t.state.getUser(*b.HolderID); err != nil {
			return fmt.Errorf("holder %d: %w", *b.HolderID, err)
		}
	}

	now := time.Now().UTC()
	if b.ID == 0 {
		t.state.nextBookID++
		b.ID = t.state.nextBookID
		b.CreatedAt = now
	} else if _, ok := t.state.books[b.ID]; !ok {
		return usecase.ErrNotFound
	}
	b.UpdatedAt = now
	t.state.books[b.ID] = *b
	return nil
}

func (t *memTx) SaveUser(_ context.Context, u *entity.User) error {
	if other, err := t.state.getUserByUsername(u.Username); err == nil && other.ID != u.ID {
		return fmt.Errorf("user with name %q: %w", u.Username, usecase.ErrConflict)
	}
	if u.HeldBookID != nil {
		if _, err := t.state.getBook(*u.HeldBookID); err != nil {
			return fmt.Errorf("held book %d: %w", *u.HeldBookID, err)
		}
	}

	now := time.Now().UTC()
	if u.ID == 0 {
		t.state.nextUserID++
		u.ID = t.state.nextUserID
		u.CreatedAt = now
	} else if _, ok := t.state.users[u.ID]; !ok {
		return usecase.ErrNotFound
	}
	u.UpdatedAt = now
	t.state.users[u.ID] = *u
	return nil
}

func (t *memTx) DeleteBook(_ context.Context, id int64) error {
	b, ok := t.state.books[id]
	if !ok {
		return usecase.ErrNotFound
	}
	if b.HolderID != nil {
		return fmt.Errorf("%w: book %d is still issued", usecase.ErrInvalidState, id)
	}
	delete(t.state.books, id)
	return nil
}

func (t *memTx) DeleteUser(_ context.Context, id int64) error {
	u, ok := t.state.users[id]
	if !ok {
		return usecase.ErrNotFound
	}
	if u.HeldBookID != nil {
		return fmt.Errorf("%w: user %d still holds a book", usecase.ErrInvalidState, id)
	}
	delete(t.state.users, id)
	return nil
}

func (t *memTx) AppendOrder(_ context.Context, o *entity.Order) error {
	t.state.nextOrder++
	o.ID = t.state.nextOrder
	t.state.orders = append(t.state.orders, *o)
	return nil
}
