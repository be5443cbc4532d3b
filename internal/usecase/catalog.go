package usecase

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"libraryapi/internal/entity"
)

// BookDetails is a book together with its holder's username.
type BookDetails struct {
	entity.Book
	Holder string `json:"username,omitempty"`
}

// BookUpdate replaces a book's fields. An empty Holder means the book is not
// issued to anyone.
type BookUpdate struct {
	Title  string
	Author string
	Holder string
}

type CatalogUsecase struct {
	store   Store
	lending *LendingUsecase
}

func NewCatalogUsecase(store Store, lending *LendingUsecase) *CatalogUsecase {
	return &CatalogUsecase{
		store:   store,
		lending: lending,
	}
}

func (u *CatalogUsecase) AddBook(ctx context.Context, title, author string) (BookDetails, error) {
	if title == "" {
		return BookDetails{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	book := entity.Book{Title: title, Author: author}
	err := u.store.WithinTx(ctx, func(tx Tx) error {
		if err := ensureTitleFree(ctx, tx, title); err != nil {
			return err
		}
		return tx.SaveBook(ctx, &book)
	})
	if err != nil {
		return BookDetails{}, err
	}
	return BookDetails{Book: book}, nil
}

func (u *CatalogUsecase) GetBookByTitle(ctx context.Context, title string) (BookDetails, error) {
	book, err := u.store.GetBookByTitle(ctx, title)
	if err != nil {
		return BookDetails{}, fmt.Errorf("book %q: %w", title, err)
	}
	return bookDetails(ctx, u.store, book)
}

func (u *CatalogUsecase) GetBookByID(ctx context.Context, id int64) (BookDetails, error) {
	book, err := u.store.GetBook(ctx, id)
	if err != nil {
		return BookDetails{}, fmt.Errorf("book %d: %w", id, err)
	}
	return bookDetails(ctx, u.store, book)
}

func (u *CatalogUsecase) ListBooks(ctx context.Context) ([]BookDetails, error) {
	books, err := u.store.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	users, err := u.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	usernames := make(map[int64]string, len(users))
	for _, usr := range users {
		usernames[usr.ID] = usr.Username
	}

	out := make([]BookDetails, 0, len(books))
	for _, b := range books {
		d := BookDetails{Book: b}
		if b.HolderID != nil {
			d.Holder = usernames[*b.HolderID]
		}
		out = append(out, d)
	}
	return out, nil
}

// UpdateBook locates a book by its current title and replaces its fields.
// Holder changes go through the lending use case in the same transaction.
func (u *CatalogUsecase) UpdateBook(ctx context.Context, title string, upd BookUpdate) (BookDetails, error) {
	if upd.Title == "" {
		return BookDetails{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	var out BookDetails
	err := u.store.WithinTx(ctx, func(tx Tx) error {
		var newHolderID int64
		var holderErr error
		if upd.Holder != "" {
			peek, err := u.store.GetUserByUsername(ctx, upd.Holder)
			switch {
			case err == nil:
				newHolderID = peek.ID
			case errors.Is(err, ErrNotFound):
				holderErr = fmt.Errorf("user %q: %w", upd.Holder, err)
			default:
				return err
			}
		}

		book, users, err := lockBook(ctx, u.store, tx, byTitle(title), newHolderID)
		if err != nil {
			return fmt.Errorf("book %q: %w", title, err)
		}
		if upd.Title != book.Title {
			if err := ensureTitleFree(ctx, u.store, upd.Title); err != nil {
				return err
			}
		}

		book.Title = upd.Title
		book.Author = upd.Author

		if upd.Holder == "" {
			if book.HolderID == nil {
				if err := tx.SaveBook(ctx, &book); err != nil {
					return err
				}
			} else if err := u.lending.releaseHolder(ctx, tx, &book); err != nil {
				return err
			}
			out = BookDetails{Book: book}
			return nil
		}

		if holderErr != nil {
			return holderErr
		}
		user, ok := users[newHolderID]
		switch {
		case !ok:
			return fmt.Errorf("user %q: %w", upd.Holder, ErrNotFound)
		case user.Username != upd.Holder:
			return ErrConcurrentUpdate
		}

		switch {
		case user.Holds(book.ID):
			if err := tx.SaveBook(ctx, &book); err != nil {
				return err
			}
		case user.HeldBookID != nil:
			return ErrUserHoldsBook
		default:
			if err := u.lending.releaseHolder(ctx, tx, &book); err != nil {
				return err
			}
			if _, err := u.lending.assign(ctx, tx, &book, &user); err != nil {
				return err
			}
		}

		out = BookDetails{Book: book, Holder: user.Username}
		return nil
	})
	if err != nil {
		return BookDetails{}, err
	}
	return out, nil
}

func (u *CatalogUsecase) DeleteBookByTitle(ctx context.Context, title string) error {
	return u.store.WithinTx(ctx, func(tx Tx) error {
		book, _, err := lockBook(ctx, u.store, tx, byTitle(title))
		if err != nil {
			return fmt.Errorf("book %q: %w", title, err)
		}
		return u.deleteBook(ctx, tx, book)
	})
}

func (u *CatalogUsecase) DeleteBookByID(ctx context.Context, id int64) error {
	return u.store.WithinTx(ctx, func(tx Tx) error {
		book, _, err := lockBook(ctx, u.store, tx, byID(id))
		if err != nil {
			return fmt.Errorf("book %d: %w", id, err)
		}
		return u.deleteBook(ctx, tx, book)
	})
}

// deleteBook clears the holder's reference before the row goes away.
func (u *CatalogUsecase) deleteBook(ctx context.Context, tx Tx, book entity.Book) error {
	if err := u.lending.releaseHolder(ctx, tx, &book); err != nil {
		return err
	}
	return tx.DeleteBook(ctx, book.ID)
}

type bookFinder func(ctx context.Context, r Reader) (entity.Book, error)

func byTitle(title string) bookFinder {
	return func(ctx context.Context, r Reader) (entity.Book, error) {
		return r.GetBookByTitle(ctx, title)
	}
}

func byID(id int64) bookFinder {
	return func(ctx context.Context, r Reader) (entity.Book, error) {
		return r.GetBook(ctx, id)
	}
}

// lockBook takes row locks users first, books second, the same order the
// lending paths use. It reads the book unlocked to learn its holder, locks
// that holder and the users in extra in ascending id order, then locks the
// book. ErrConcurrentUpdate means the holder changed in between.
func lockBook(ctx context.Context, store Reader, tx Tx, find bookFinder, extra ...int64) (entity.Book, map[int64]entity.User, error) {
	peek, err := find(ctx, store)
	if err != nil {
		return entity.Book{}, nil, err
	}

	ids := slices.Clone(extra)
	if peek.HolderID != nil {
		ids = append(ids, *peek.HolderID)
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	users := make(map[int64]entity.User, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		usr, err := tx.GetUser(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return entity.Book{}, nil, err
		}
		users[id] = usr
	}

	book, err := find(ctx, tx)
	if err != nil {
		return entity.Book{}, nil, err
	}
	if book.HolderID != nil {
		if _, ok := users[*book.HolderID]; !ok {
			return entity.Book{}, nil, ErrConcurrentUpdate
		}
	}
	return book, users, nil
}

func ensureTitleFree(ctx context.Context, r Reader, title string) error {
	_, err := r.GetBookByTitle(ctx, title)
	switch {
	case err == nil:
		return fmt.Errorf("book with title %q: %w", title, ErrConflict)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func bookDetails(ctx context.Context, r Reader, book entity.Book) (BookDetails, error) {
	d := BookDetails{Book: book}
	if book.HolderID == nil {
		return d, nil
	}
	holder, err := r.GetUser(ctx, *book.HolderID)
	if err != nil {
		return BookDetails{}, fmt.Errorf("holder %d: %w", *book.HolderID, err)
	}
	d.Holder = holder.Username
	return d, nil
}
