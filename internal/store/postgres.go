package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libraryapi/internal/entity"
	"libraryapi/internal/usecase"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ usecase.Store = (*Postgres)(nil)

// Postgres stores entities in PostgreSQL. Rows read inside WithinTx are
// locked with SELECT ... FOR UPDATE until the transaction ends.
type Postgres struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgres(db *pgxpool.Pool, timeout time.Duration) *Postgres {
	return &Postgres{db: db, timeout: timeout}
}

func (r *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *Postgres) Ping(ctx context.Context) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return mapError(r.db.Ping(timeoutCtx))
}

func (r *Postgres) WithinTx(ctx context.Context, fn func(tx usecase.Tx) error) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return mapError(err)
	}
	defer tx.Rollback(timeoutCtx)

	if err := fn(&pgTx{pgReader{q: tx, lock: " FOR UPDATE"}}); err != nil {
		return err
	}
	return mapError(tx.Commit(timeoutCtx))
}

func (r *Postgres) reader() pgReader {
	return pgReader{q: r.db}
}

func (r *Postgres) GetBook(ctx context.Context, id int64) (entity.Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.reader().GetBook(timeoutCtx, id)
}

func (r *Postgres) GetBookByTitle(ctx context.Context, title string) (entity.Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.reader().GetBookByTitle(timeoutCtx, title)
}

func (r *Postgres) ListBooks(ctx context.Context) ([]entity.Book, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.reader().ListBooks(timeoutCtx)
}

func (r *Postgres) GetUser(ctx context.Context, id int64) (entity.User, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.reader().GetUser(timeoutCtx, id)
}

func (r *Postgres) GetUserByUsername(ctx context.Context, username string) (entity.User, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.reader().GetUserByUsername(timeoutCtx, username)
}

func (r *Postgres) ListUsers(ctx context.Context) ([]entity.User, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.reader().ListUsers(timeoutCtx)
}

func (r *Postgres) ListOrders(ctx context.Context) ([]entity.Order, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.reader().ListOrders(timeoutCtx)
}

func (r *Postgres) ListOrdersByUser(ctx context.Context, userID int64) ([]entity.Order, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.reader().ListOrdersByUser(timeoutCtx, userID)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgReader struct {
	q    querier
	lock string
}

const (
	bookColumns = `id, title, author, is_issued, holder_id, created_at, updated_at`
	userColumns = `id, username, password_hash, role, held_book_id, created_at, updated_at`
)

func scanBook(row pgx.Row) (entity.Book, error) {
	var b entity.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Issued, &b.HolderID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return entity.Book{}, mapError(err)
	}
	return b, nil
}

func scanUser(row pgx.Row) (entity.User, error) {
	var (
		u    entity.User
		role string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Password, &role, &u.HeldBookID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return entity.User{}, mapError(err)
	}
	u.Role = entity.Role(role)
	return u, nil
}

func (r pgReader) GetBook(ctx context.Context, id int64) (entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1` + r.lock
	return scanBook(r.q.QueryRow(ctx, query, id))
}

func (r pgReader) GetBookByTitle(ctx context.Context, title string) (entity.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE title = $1` + r.lock
	return scanBook(r.q.QueryRow(ctx, query, title))
}

func (r pgReader) ListBooks(ctx context.Context) ([]entity.Book, error) {
	rows, err := r.q.Query(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []entity.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, mapError(rows.Err())
}

func (r pgReader) GetUser(ctx context.Context, id int64) (entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1` + r.lock
	return scanUser(r.q.QueryRow(ctx, query, id))
}

func (r pgReader) GetUserByUsername(ctx context.Context, username string) (entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1` + r.lock
	return scanUser(r.q.QueryRow(ctx, query, username))
}

func (r pgReader) ListUsers(ctx context.Context) ([]entity.User, error) {
	rows, err := r.q.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var out []entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, mapError(rows.Err())
}

const orderColumns = `id, user_id, book_id, kind, occurred_at`

func (r pgReader) ListOrders(ctx context.Context) ([]entity.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
}

func (r pgReader) ListOrdersByUser(ctx context.Context, userID int64) ([]entity.Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY id`, userID)
}

func (r pgReader) queryOrders(ctx context.Context, query string, args ...any) ([]entity.Order, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	out := make([]entity.Order, 0)
	for rows.Next() {
		var (
			o    entity.Order
			kind string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.BookID, &kind, &o.OccurredAt); err != nil {
			return nil, mapError(err)
		}
		o.Kind = entity.OrderKind(kind)
		out = append(out, o)
	}
	return out, mapError(rows.Err())
}

type pgTx struct {
	pgReader
}

func (t *pgTx) SaveBook(ctx context.Context, b *entity.Book) error {
	if b.ID == 0 {
		const insertSQL = `
		INSERT INTO books (title, author, is_issued, holder_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
		err := t.q.QueryRow(ctx, insertSQL, b.Title, b.Author, b.Issued, b.HolderID).
			Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
		return mapError(err)
	}

	const updateSQL = `
		UPDATE books
		SET title = $2, author = $3, is_issued = $4, holder_id = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`
	err := t.q.QueryRow(ctx, updateSQL, b.ID, b.Title, b.Author, b.Issued, b.HolderID).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	return mapError(err)
}

func (t *pgTx) SaveUser(ctx context.Context, u *entity.User) error {
	if u.ID == 0 {
		const insertSQL = `
		INSERT INTO users (username, password_hash, role, held_book_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
		err := t.q.QueryRow(ctx, insertSQL, u.Username, u.Password, string(u.Role), u.HeldBookID).
			Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
		return mapError(err)
	}

	const updateSQL = `
		UPDATE users
		SET username = $2, password_hash = $3, role = $4, held_book_id = $5, updated_at = now()
		WHERE id = $1
		RETURNING created_at, updated_at`
	err := t.q.QueryRow(ctx, updateSQL, u.ID, u.Username, u.Password, string(u.Role), u.HeldBookID).
		Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapError(err)
}

func (t *pgTx) DeleteBook(ctx context.Context, id int64) error {
	var holderID *int64
	err := t.q.QueryRow(ctx, `SELECT holder_id FROM books WHERE id = $1 FOR UPDATE`, id).Scan(&holderID)
	if err != nil {
		return mapError(err)
	}
	if holderID != nil {
		return fmt.Errorf("%w: book %d is still issued", usecase.ErrInvalidState, id)
	}
	_, err = t.q.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	return mapError(err)
}

func (t *pgTx) DeleteUser(ctx context.Context, id int64) error {
	var heldBookID *int64
	err := t.q.QueryRow(ctx, `SELECT held_book_id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&heldBookID)
	if err != nil {
		return mapError(err)
	}
	if heldBookID != nil {
		return fmt.Errorf("%w: user %d still holds a book", usecase.ErrInvalidState, id)
	}
	_, err = t.q.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return mapError(err)
}

func (t *pgTx) AppendOrder(ctx context.Context, o *entity.Order) error {
	const insertSQL = `
		INSERT INTO orders (user_id, book_id, kind, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := t.q.QueryRow(ctx, insertSQL, o.UserID, o.BookID, string(o.Kind), o.OccurredAt).Scan(&o.ID)
	return mapError(err)
}

// Postgres error codes the store translates.
const (
	codeForeignKeyViolation  = "23503"
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeAdminShutdown        = "57P01"
	codeCannotConnectNow     = "57P03"
)

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return usecase.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", usecase.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", usecase.ErrNotFound, pgErr.ConstraintName)
		case codeCheckViolation:
			return fmt.Errorf("%w: %s", usecase.ErrInvalidState, pgErr.ConstraintName)
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable,
			codeAdminShutdown, codeCannotConnectNow:
			return fmt.Errorf("%w: %v", usecase.ErrStoreUnavailable, err)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", usecase.ErrStoreUnavailable, err)
	}
	return err
}
