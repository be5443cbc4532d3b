package usecase

import (
	"context"
	"errors"
	"fmt"

	"libraryapi/internal/entity"
)

// UserDetails is a user together with the title of the book they hold.
type UserDetails struct {
	entity.User
	IssuedBook string `json:"issued_book,omitempty"`
}

type PatronUsecase struct {
	store   Store
	lending *LendingUsecase
	hasher  Hasher
}

func NewPatronUsecase(store Store, lending *LendingUsecase, hasher Hasher) *PatronUsecase {
	return &PatronUsecase{
		store:   store,
		lending: lending,
		hasher:  hasher,
	}
}

// AddUser registers a patron with the default USER role.
func (u *PatronUsecase) AddUser(ctx context.Context, username, password string) (UserDetails, error) {
	if username == "" || password == "" {
		return UserDetails{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := u.hasher.Hash(password)
	if err != nil {
		return UserDetails{}, fmt.Errorf("hash password: %w", err)
	}

	user := entity.User{
		Username: username,
		Password: hash,
		Role:     entity.RoleUser,
	}
	err = u.store.WithinTx(ctx, func(tx Tx) error {
		if err := ensureUsernameFree(ctx, tx, username); err != nil {
			return err
		}
		return tx.SaveUser(ctx, &user)
	})
	if err != nil {
		return UserDetails{}, err
	}
	return UserDetails{User: user}, nil
}

func (u *PatronUsecase) GetUserByUsername(ctx context.Context, username string) (UserDetails, error) {
	user, err := u.store.GetUserByUsername(ctx, username)
	if err != nil {
		return UserDetails{}, fmt.Errorf("user %q: %w", username, err)
	}
	return userDetails(ctx, u.store, user)
}

func (u *PatronUsecase) GetUserByID(ctx context.Context, id int64) (UserDetails, error) {
	user, err := u.store.GetUser(ctx, id)
	if err != nil {
		return UserDetails{}, fmt.Errorf("user %d: %w", id, err)
	}
	return userDetails(ctx, u.store, user)
}

func (u *PatronUsecase) ListUsers(ctx context.Context) ([]UserDetails, error) {
	users, err := u.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	books, err := u.store.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	titles := make(map[int64]string, len(books))
	for _, b := range books {
		titles[b.ID] = b.Title
	}

	out := make([]UserDetails, 0, len(users))
	for _, usr := range users {
		d := UserDetails{User: usr}
		if usr.HeldBookID != nil {
			d.IssuedBook = titles[*usr.HeldBookID]
		}
		out = append(out, d)
	}
	return out, nil
}

// UpdateUserByAdmin renames a user and changes their role.
func (u *PatronUsecase) UpdateUserByAdmin(ctx context.Context, username, newUsername string, newRole entity.Role) (UserDetails, error) {
	if newUsername == "" {
		return UserDetails{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	var user entity.User
	err := u.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		user, err = tx.GetUserByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("user %q: %w", username, err)
		}
		if newUsername != username {
			if err := ensureUsernameFree(ctx, u.store, newUsername); err != nil {
				return err
			}
		}
		if !newRole.Valid() {
			return ErrInvalidRole
		}

		user.Username = newUsername
		user.Role = newRole
		return tx.SaveUser(ctx, &user)
	})
	if err != nil {
		return UserDetails{}, err
	}
	return userDetails(ctx, u.store, user)
}

// UpdateUserBySelf renames a user and replaces their password.
func (u *PatronUsecase) UpdateUserBySelf(ctx context.Context, username, newUsername, newPassword string) (UserDetails, error) {
	if newUsername == "" || newPassword == "" {
		return UserDetails{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}

	hash, err := u.hasher.Hash(newPassword)
	if err != nil {
		return UserDetails{}, fmt.Errorf("hash password: %w", err)
	}

	var user entity.User
	err = u.store.WithinTx(ctx, func(tx Tx) error {
		var err error
		user, err = tx.GetUserByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("user %q: %w", username, err)
		}
		if newUsername != username {
			if err := ensureUsernameFree(ctx, u.store, newUsername); err != nil {
				return err
			}
		}

		user.Username = newUsername
		user.Password = hash
		return tx.SaveUser(ctx, &user)
	})
	if err != nil {
		return UserDetails{}, err
	}
	return userDetails(ctx, u.store, user)
}

// DeleteUserByUsername removes a user, first returning any book they hold.
func (u *PatronUsecase) DeleteUserByUsername(ctx context.Context, username string) error {
	return u.store.WithinTx(ctx, func(tx Tx) error {
		user, err := tx.GetUserByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("user %q: %w", username, err)
		}
		if err := u.lending.releaseHeldBook(ctx, tx, &user); err != nil {
			return err
		}
		return tx.DeleteUser(ctx, user.ID)
	})
}

func ensureUsernameFree(ctx context.Context, r Reader, username string) error {
	_, err := r.GetUserByUsername(ctx, username)
	switch {
	case err == nil:
		return fmt.Errorf("user with name %q: %w", username, ErrConflict)
	case errors.Is(err, ErrNotFound):
		return nil
	default:
		return err
	}
}

func userDetails(ctx context.Context, r Reader, user entity.User) (UserDetails, error) {
	d := UserDetails{User: user}
	if user.HeldBookID == nil {
		return d, nil
	}
	book, err := r.GetBook(ctx, *user.HeldBookID)
	if err != nil {
		return UserDetails{}, fmt.Errorf("held book %d: %w", *user.HeldBookID, err)
	}
	d.IssuedBook = book.Title
	return d, nil
}
