package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"libraryapi/internal/entity"
)

// LendingUsecase owns the book/user association. It is the only writer of
// Book.HolderID and User.HeldBookID; the catalog and patron use cases call
// into assign and release from inside their own transactions.
type LendingUsecase struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLendingUsecase(store Store, logger *slog.Logger) *LendingUsecase {
	return &LendingUsecase{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Issue lends a book to a user. A user who already holds a book is rejected
// before the book's own state is considered.
func (u *LendingUsecase) Issue(ctx context.Context, userID, bookID int64) (entity.Order, error) {
	var order entity.Order
	err := u.store.WithinTx(ctx, func(tx Tx) error {
		// Users are locked before books on every lending path.
		user, userErr := tx.GetUser(ctx, userID)
		if userErr != nil && !errors.Is(userErr, ErrNotFound) {
			return userErr
		}
		book, err := tx.GetBook(ctx, bookID)
		if err != nil {
			return fmt.Errorf("book %d: %w", bookID, err)
		}
		if userErr != nil {
			return fmt.Errorf("user %d: %w", userID, userErr)
		}

		if user.HeldBookID != nil {
			return ErrUserHoldsBook
		}
		if book.Issued {
			return ErrBookAlreadyIssued
		}

		order, err = u.assign(ctx, tx, &book, &user)
		return err
	})
	if err != nil {
		return entity.Order{}, err
	}

	u.logger.InfoContext(ctx, "book issued", "order_id", order.ID, "user_id", userID, "book_id", bookID)
	return order, nil
}

// Return takes back whatever book the user holds.
func (u *LendingUsecase) Return(ctx context.Context, userID int64) (entity.Order, error) {
	var order entity.Order
	err := u.store.WithinTx(ctx, func(tx Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}
		if user.HeldBookID == nil {
			return ErrNoBookToReturn
		}

		book, err := tx.GetBook(ctx, *user.HeldBookID)
		if err != nil {
			return fmt.Errorf("held book %d: %w", *user.HeldBookID, err)
		}

		order, err = u.release(ctx, tx, &book, &user)
		return err
	})
	if err != nil {
		return entity.Order{}, err
	}

	u.logger.InfoContext(ctx, "book returned", "order_id", order.ID, "user_id", userID, "book_id", order.BookID)
	return order, nil
}

// ListOrders returns the audit trail in the order it was written.
func (u *LendingUsecase) ListOrders(ctx context.Context) ([]entity.Order, error) {
	return u.store.ListOrders(ctx)
}

// ListOrdersByUser returns one user's records. Records outlive the user, so
// an id that is gone or never existed is not an error.
func (u *LendingUsecase) ListOrdersByUser(ctx context.Context, userID int64) ([]entity.Order, error) {
	return u.store.ListOrdersByUser(ctx, userID)
}

// assign links book and user and records the issue. Callers have already
// checked that neither side is associated.
func (u *LendingUsecase) assign(ctx context.Context, tx Tx, book *entity.Book, user *entity.User) (entity.Order, error) {
	bookID, userID := book.ID, user.ID

	book.HolderID = &userID
	book.Issued = true
	user.HeldBookID = &bookID

	if err := tx.SaveBook(ctx, book); err != nil {
		return entity.Order{}, fmt.Errorf("save book %d: %w", bookID, err)
	}
	if err := tx.SaveUser(ctx, user); err != nil {
		return entity.Order{}, fmt.Errorf("save user %d: %w", userID, err)
	}
	return u.record(ctx, tx, userID, bookID, entity.OrderIssued)
}

// release clears both sides of an existing association and records the return.
func (u *LendingUsecase) release(ctx context.Context, tx Tx, book *entity.Book, user *entity.User) (entity.Order, error) {
	if !book.IsHeldBy(user.ID) || !user.Holds(book.ID) {
		return entity.Order{}, fmt.Errorf("%w: book %d and user %d are not linked", ErrInvalidState, book.ID, user.ID)
	}

	book.HolderID = nil
	book.Issued = false
	user.HeldBookID = nil

	if err := tx.SaveBook(ctx, book); err != nil {
		return entity.Order{}, fmt.Errorf("save book %d: %w", book.ID, err)
	}
	if err := tx.SaveUser(ctx, user); err != nil {
		return entity.Order{}, fmt.Errorf("save user %d: %w", user.ID, err)
	}
	return u.record(ctx, tx, user.ID, book.ID, entity.OrderReturned)
}

// releaseHolder releases book from its current holder, if any.
func (u *LendingUsecase) releaseHolder(ctx context.Context, tx Tx, book *entity.Book) error {
	if book.HolderID == nil {
		return nil
	}
	holder, err := tx.GetUser(ctx, *book.HolderID)
	if err != nil {
		return fmt.Errorf("holder %d: %w", *book.HolderID, err)
	}
	_, err = u.release(ctx, tx, book, &holder)
	return err
}

// releaseHeldBook releases whatever book user holds, if any.
func (u *LendingUsecase) releaseHeldBook(ctx context.Context, tx Tx, user *entity.User) error {
	if user.HeldBookID == nil {
		return nil
	}
	book, err := tx.GetBook(ctx, *user.HeldBookID)
	if err != nil {
		return fmt.Errorf("held book %d: %w", *user.HeldBookID, err)
	}
	_, err = u.release(ctx, tx, &book, user)
	return err
}

func (u *LendingUsecase) record(ctx context.Context, tx Tx, userID, bookID int64, kind entity.OrderKind) (entity.Order, error) {
	order := entity.Order{
		UserID:     userID,
		BookID:     bookID,
		Kind:       kind,
		OccurredAt: u.now().UTC(),
	}
	if err := tx.AppendOrder(ctx, &order); err != nil {
		return entity.Order{}, fmt.Errorf("append order: %w", err)
	}
	return order, nil
}
