package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"libraryapi/internal/app"
	"libraryapi/internal/entity"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type opener func(ctx context.Context) (*app.App, error)

type cli struct {
	open    opener
	stdin   io.Reader
	library *app.App
}

func newRootCmd(open opener, stdin io.Reader) *cobra.Command {
	c := &cli{open: open, stdin: stdin}

	root := &cobra.Command{
		Use:           "libctl",
		Short:         "Administer the library catalog, patrons and loans",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			library, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.library = library
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if c.library != nil {
				c.library.Close()
			}
		},
	}

	root.AddCommand(c.bookCmd(), c.userCmd(), c.issueCmd(), c.returnCmd(), c.historyCmd())
	return root
}

func (c *cli) bookCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "book", Short: "Manage books"}

	var author string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := c.library.Catalog.AddBook(cmd.Context(), strings.TrimSpace(args[0]), strings.TrimSpace(author))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book %q with ID %d\n", b.Title, b.ID)
			return nil
		},
	}
	add.Flags().StringVar(&author, "author", "", "book author")

	list := &cobra.Command{
		Use:   "list",
		Short: "List books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := c.library.Catalog.ListBooks(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintln(out, "No books in library.")
				return nil
			}
			fmt.Fprintf(out, "%-5s %-30s %-25s %-7s %s\n", "ID", "Title", "Author", "Issued", "Holder")
			fmt.Fprintln(out, strings.Repeat("-", 80))
			for _, b := range books {
				holder := b.Holder
				if holder == "" {
					holder = "-"
				}
				fmt.Fprintf(out, "%-5d %-30s %-25s %-7t %s\n", b.ID, b.Title, b.Author, b.Issued, holder)
			}
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <title>",
		Short: "Delete a book, returning it first if issued",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.library.Catalog.DeleteBookByTitle(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %q\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

func (c *cli) userCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "user", Short: "Manage users"}

	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Register a user; the password is read from the terminal or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := c.readPassword(cmd.ErrOrStderr(), fmt.Sprintf("Enter password for %s: ", args[0]))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			u, err := c.library.Patron.AddUser(cmd.Context(), strings.TrimSpace(args[0]), password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added user %q with ID %d\n", u.Username, u.ID)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := c.library.Patron.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(users) == 0 {
				fmt.Fprintln(out, "No users.")
				return nil
			}
			fmt.Fprintf(out, "%-5s %-20s %-6s %s\n", "ID", "Username", "Role", "Issued book")
			fmt.Fprintln(out, strings.Repeat("-", 60))
			for _, u := range users {
				book := u.IssuedBook
				if book == "" {
					book = "-"
				}
				fmt.Fprintf(out, "%-5d %-20s %-6s %s\n", u.ID, u.Username, u.Role, book)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user and the book they hold",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			u, err := c.library.Patron.GetUserByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			book := u.IssuedBook
			if book == "" {
				book = "-"
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %d\n", u.ID)
			fmt.Fprintf(out, "Username:    %s\n", u.Username)
			fmt.Fprintf(out, "Role:        %s\n", u.Role)
			fmt.Fprintf(out, "Issued book: %s\n", book)
			return nil
		},
	}

	role := &cobra.Command{
		Use:   "role <username> <ADMIN|USER>",
		Short: "Change a user's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.library.Patron.UpdateUserByAdmin(cmd.Context(), args[0], args[0], entity.Role(args[1]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q is now %s\n", u.Username, u.Role)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user, returning their book first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.library.Patron.DeleteUserByUsername(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %q\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, show, role, del)
	return cmd
}

func (c *cli) issueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue <user-id> <book-id>",
		Short: "Issue a book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			bookID, err := parseID("book id", args[1])
			if err != nil {
				return err
			}
			order, err := c.library.Lending.Issue(cmd.Context(), userID, bookID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Issued book %d to user %d (order %d)\n", order.BookID, order.UserID, order.ID)
			return nil
		},
	}
}

func (c *cli) returnCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "return <user-id>",
		Short: "Return the book a user holds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID("user id", args[0])
			if err != nil {
				return err
			}
			order, err := c.library.Lending.Return(cmd.Context(), userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %d returned book %d (order %d)\n", order.UserID, order.BookID, order.ID)
			return nil
		},
	}
}

func (c *cli) historyCmd() *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show issue and return records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				orders []entity.Order
				err    error
			)
			if userID > 0 {
				orders, err = c.library.Lending.ListOrdersByUser(cmd.Context(), userID)
			} else {
				orders, err = c.library.Lending.ListOrders(cmd.Context())
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(orders) == 0 {
				fmt.Fprintln(out, "No records.")
				return nil
			}
			fmt.Fprintf(out, "%-5s %-8s %-8s %-9s %s\n", "ID", "User", "Book", "Kind", "When")
			for _, o := range orders {
				fmt.Fprintf(out, "%-5d %-8d %-8d %-9s %s\n", o.ID, o.UserID, o.BookID, o.Kind, o.OccurredAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "only show records for this user id")
	return cmd
}

// readPassword masks input on a terminal and reads one line otherwise.
func (c *cli) readPassword(prompt io.Writer, msg string) (string, error) {
	if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, msg)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(c.stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return id, nil
}
