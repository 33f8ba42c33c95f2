// Package coordinator decides which views are redrawn after a successful
// mutation and runs those refreshes.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"librarydesk/internal/view"
)

type Mutation string

const (
	BookCreated   Mutation = "book.created"
	BookUpdated   Mutation = "book.updated"
	BookDeleted   Mutation = "book.deleted"
	MemberCreated Mutation = "member.created"
	MemberUpdated Mutation = "member.updated"
	MemberDeleted Mutation = "member.deleted"
	LoanCreated   Mutation = "loan.created"
	LoanReturned  Mutation = "loan.returned"
)

var ErrUnknownMutation = errors.New("unknown mutation")

// refreshTable is the complete fan-out. Book and member changes reach the
// loans view because loans display titles and names; loan changes reach
// the books view because available copies move.
var refreshTable = map[Mutation][]view.Name{
	BookCreated:   {view.Books, view.Dashboard, view.Loans},
	BookUpdated:   {view.Books, view.Dashboard, view.Loans},
	BookDeleted:   {view.Books, view.Dashboard, view.Loans},
	MemberCreated: {view.Members, view.Dashboard, view.Loans},
	MemberUpdated: {view.Members, view.Dashboard, view.Loans},
	MemberDeleted: {view.Members, view.Dashboard, view.Loans},
	LoanCreated:   {view.Loans, view.Dashboard, view.Books},
	LoanReturned:  {view.Loans, view.Dashboard, view.Books},
}

// Mutations lists every known mutation.
func Mutations() []Mutation {
	return []Mutation{
		BookCreated, BookUpdated, BookDeleted,
		MemberCreated, MemberUpdated, MemberDeleted,
		LoanCreated, LoanReturned,
	}
}

// Views returns the views refreshed after m, in table order.
func Views(m Mutation) ([]view.Name, error) {
	names, ok := refreshTable[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMutation, m)
	}
	out := make([]view.Name, len(names))
	copy(out, names)
	return out, nil
}

// Refresher redraws one view.
type Refresher interface {
	Refresh(ctx context.Context, n view.Name) error
}

type Coordinator struct {
	refresher Refresher
	log       *slog.Logger
}

func New(r Refresher, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{refresher: r, log: log}
}

// Sync refreshes every view mapped to m concurrently. A failing refresh never
// stops the others; all failures are joined into the returned error. The
// refreshes outlive cancellation of ctx so a client hanging up mid-sync
// cannot leave half the views stale.
func (c *Coordinator) Sync(ctx context.Context, m Mutation) error {
	names, err := Views(m)
	if err != nil {
		return err
	}
	ctx = context.WithoutCancel(ctx)

	var (
		mu   sync.Mutex
		errs []error
		g    errgroup.Group
	)
	for _, n := range names {
		g.Go(func() error {
			if err := c.refresher.Refresh(ctx, n); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		c.log.Warn("sync incomplete", "mutation", string(m), "failed", len(errs))
		return errors.Join(errs...)
	}
	c.log.Debug("sync done", "mutation", string(m), "views", len(names))
	return nil
}
