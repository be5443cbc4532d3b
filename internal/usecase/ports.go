package usecase

import (
	"context"

	"libraryapi/internal/entity"
)

// Reader is the query side of the entity store.
type Reader interface {
	GetBook(ctx context.Context, id int64) (entity.Book, error)
	GetBookByTitle(ctx context.Context, title string) (entity.Book, error)
	ListBooks(ctx context.Context) ([]entity.Book, error)
	GetUser(ctx context.Context, id int64) (entity.User, error)
	GetUserByUsername(ctx context.Context, username string) (entity.User, error)
	ListUsers(ctx context.Context) ([]entity.User, error)
	ListOrders(ctx context.Context) ([]entity.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]entity.Order, error)
}

// Tx is a unit of work. Rows read through a Tx stay locked until it ends.
type Tx interface {
	Reader
	SaveBook(ctx context.Context, b *entity.Book) error
	SaveUser(ctx context.Context, u *entity.User) error
	DeleteBook(ctx context.Context, id int64) error
	DeleteUser(ctx context.Context, id int64) error
	AppendOrder(ctx context.Context, o *entity.Order) error
}

// Store persists books, users and the order log. WithinTx commits when fn
// returns nil and rolls back otherwise.
type Store interface {
	Reader
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}

// Hasher turns a raw password into a one-way digest.
type Hasher interface {
	Hash(password string) (string, error)
}
