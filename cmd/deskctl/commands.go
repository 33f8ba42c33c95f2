package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"librarydesk/internal/coordinator"
	"librarydesk/internal/desk"
	"librarydesk/internal/form"
	"librarydesk/internal/platform/libraryapi"
	"librarydesk/internal/view"
)

type cli struct {
	apiURL  string
	timeout time.Duration
	yes     bool

	in         io.Reader
	isTerminal func() bool
	app        *desk.App
}

func newCLI() *cli {
	return &cli{
		in:         os.Stdin,
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
	}
}

func newRootCmd(c *cli) *cobra.Command {
	apiURL := os.Getenv("LIBRARY_API_URL")
	if apiURL == "" {
		apiURL = libraryapi.DefaultBaseURL
	}

	root := &cobra.Command{
		Use:          "deskctl",
		Short:        "Librarian desk in the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			client, err := libraryapi.NewClient(c.apiURL, libraryapi.WithTimeout(c.timeout))
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelError}))
			c.app = desk.New(client, desk.Config{Logger: logger})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.apiURL, "api", apiURL, "library API base URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 60*time.Second, "request timeout")

	root.AddCommand(
		&cobra.Command{
			Use:   "dashboard",
			Short: "Show library totals and recent loans",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return c.show(cmd, view.Dashboard)
			},
		},
		c.booksCmd(),
		c.membersCmd(),
		c.loansCmd(),
	)
	return root
}

func (c *cli) booksCmd() *cobra.Command {
	books := &cobra.Command{Use: "books", Short: "Manage the catalogue"}

	var v form.BookValues
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mutate(cmd, coordinator.BookCreated, func(ctx context.Context) error {
				return c.app.Forms().CreateBook(ctx, v)
			})
		},
	}
	bookFlags(add, &v)

	var e form.BookValues
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a book; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, coordinator.BookUpdated, func(ctx context.Context) error {
				s, err := c.app.Forms().OpenEdit(ctx, form.KindBook, args[0])
				if err != nil {
					return err
				}
				values := s.Values()
				flags := cmd.Flags()
				overlay(flags.Changed("isbn"), &values.Book.ISBN, e.ISBN)
				overlay(flags.Changed("title"), &values.Book.Title, e.Title)
				overlay(flags.Changed("author"), &values.Book.Author, e.Author)
				overlay(flags.Changed("copies"), &values.Book.Copies, e.Copies)
				return c.app.Forms().SubmitEdit(ctx, s, values)
			})
		},
	}
	bookFlags(edit, &e)

	books.AddCommand(c.listCmd(view.Books), add, edit,
		c.deleteCmd("book", coordinator.BookDeleted, func(ctx context.Context, id string) error {
			return c.app.Forms().DeleteBook(ctx, id)
		}),
	)
	return books
}

func bookFlags(cmd *cobra.Command, v *form.BookValues) {
	cmd.Flags().StringVar(&v.ISBN, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&v.Title, "title", "", "title")
	cmd.Flags().StringVar(&v.Author, "author", "", "author")
	cmd.Flags().StringVar(&v.Copies, "copies", "", "number of copies")
}

func (c *cli) membersCmd() *cobra.Command {
	members := &cobra.Command{Use: "members", Short: "Manage library members"}

	var v form.MemberValues
	add := &cobra.Command{
		Use:   "add",
		Short: "Register a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mutate(cmd, coordinator.MemberCreated, func(ctx context.Context) error {
				return c.app.Forms().CreateMember(ctx, v)
			})
		},
	}
	memberFlags(add, &v)

	var e form.MemberValues
	edit := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a member; unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, coordinator.MemberUpdated, func(ctx context.Context) error {
				s, err := c.app.Forms().OpenEdit(ctx, form.KindMember, args[0])
				if err != nil {
					return err
				}
				values := s.Values()
				overlay(cmd.Flags().Changed("name"), &values.Member.Name, e.Name)
				overlay(cmd.Flags().Changed("email"), &values.Member.Email, e.Email)
				return c.app.Forms().SubmitEdit(ctx, s, values)
			})
		},
	}
	memberFlags(edit, &e)

	members.AddCommand(c.listCmd(view.Members), add, edit,
		c.deleteCmd("member", coordinator.MemberDeleted, func(ctx context.Context, id string) error {
			return c.app.Forms().DeleteMember(ctx, id)
		}),
	)
	return members
}

func memberFlags(cmd *cobra.Command, v *form.MemberValues) {
	cmd.Flags().StringVar(&v.Name, "name", "", "full name")
	cmd.Flags().StringVar(&v.Email, "email", "", "email address")
}

func (c *cli) loansCmd() *cobra.Command {
	loans := &cobra.Command{Use: "loans", Short: "Lend and return books"}

	var v form.LoanValues
	add := &cobra.Command{
		Use:   "add",
		Short: "Lend a book to a member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.mutate(cmd, coordinator.LoanCreated, func(ctx context.Context) error {
				return c.app.Forms().CreateLoan(ctx, v)
			})
		},
	}
	add.Flags().StringVar(&v.MemberID, "member", "", "member id")
	add.Flags().StringVar(&v.BookID, "book", "", "book id")
	add.Flags().StringVar(&v.DueAt, "due", "", "due date (YYYY-MM-DD)")

	ret := &cobra.Command{
		Use:   "return <loan-id>",
		Short: "Return a loaned book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.mutate(cmd, coordinator.LoanReturned, func(ctx context.Context) error {
				return c.app.Forms().ReturnSelected(ctx, args[0])
			})
		},
	}

	loans.AddCommand(c.listCmd(view.Loans), add, ret)
	return loans
}

func (c *cli) listCmd(n view.Name) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List " + string(n),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.show(cmd, n)
		},
	}
}

func (c *cli) deleteCmd(noun string, m coordinator.Mutation, del func(ctx context.Context, id string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a " + noun,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !c.confirm(cmd, fmt.Sprintf("Are you sure you want to delete %s %s?", noun, args[0])) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			return c.mutate(cmd, m, func(ctx context.Context) error {
				return del(ctx, args[0])
			})
		},
	}
	cmd.Flags().BoolVarP(&c.yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func overlay(changed bool, dst *string, v string) {
	if changed {
		*dst = v
	}
}

// confirm asks on interactive terminals only; scripted runs proceed.
func (c *cli) confirm(cmd *cobra.Command, prompt string) bool {
	if c.yes || !c.isTerminal() {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(c.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (c *cli) show(cmd *cobra.Command, n view.Name) error {
	if err := c.app.Navigate(cmd.Context(), n); err != nil {
		if notice, ok := c.app.Board().TakeNotice(); ok {
			return fmt.Errorf("%s: %w", notice.Message, err)
		}
		return err
	}
	printPanel(cmd.OutOrStdout(), c.app.Board().Panel(n))
	return nil
}

// mutate runs op and, when it went through, prints the notification and
// every view the mutation redrew.
func (c *cli) mutate(cmd *cobra.Command, m coordinator.Mutation, op func(ctx context.Context) error) error {
	if err := op(cmd.Context()); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if notice, ok := c.app.Board().TakeNotice(); ok {
		fmt.Fprintln(out, notice.Message)
	}
	for _, n := range c.app.Views(m) {
		printPanel(out, c.app.Board().Panel(n))
	}
	return nil
}

func printPanel(w io.Writer, p view.Panel) {
	if p.View == view.Dashboard {
		fmt.Fprintln(w, "== Dashboard ==")
		fmt.Fprintf(w, "Total Books: %d\nTotal Members: %d\nActive Loans: %d\nOverdue Books: %d\n",
			p.Stats.TotalBooks, p.Stats.TotalMembers, p.Stats.ActiveLoans, p.Stats.OverdueLoans)
		fmt.Fprintln(w, "Recent Activity:")
		for _, r := range p.Rows {
			fmt.Fprintf(w, "  %s\n", r.Text)
		}
		return
	}
	fmt.Fprintf(w, "== %s (%d) ==\n", strings.ToUpper(string(p.View[:1]))+string(p.View[1:]), len(p.Rows))
	for _, r := range p.Rows {
		fmt.Fprintf(w, "  %s  %s\n", r.ID, r.Text)
	}
}
