package view

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"librarydesk/internal/entity"
)

// Source is the read side of the library API.
type Source interface {
	ListBooks(ctx context.Context) ([]entity.Book, error)
	ListMembers(ctx context.Context) ([]entity.Member, error)
	ListLoans(ctx context.Context) ([]entity.Loan, error)
}

var failureNotices = map[Name]string{
	Dashboard: "Error loading dashboard data",
	Books:     "Error loading books",
	Members:   "Error loading members",
	Loans:     "Error loading loans",
}

// Refreshers redraws views on the Board from fresh API data.
type Refreshers struct {
	src   Source
	board *Board
	now   func() time.Time
	log   *slog.Logger
}

type RefresherOption func(*Refreshers)

func WithClock(now func() time.Time) RefresherOption {
	return func(r *Refreshers) {
		if now != nil {
			r.now = now
		}
	}
}

func WithLogger(l *slog.Logger) RefresherOption {
	return func(r *Refreshers) {
		if l != nil {
			r.log = l
		}
	}
}

func NewRefreshers(src Source, board *Board, opts ...RefresherOption) *Refreshers {
	r := &Refreshers{
		src:   src,
		board: board,
		now:   time.Now,
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Refreshers) Board() *Board { return r.board }

// Refresh redraws one view. On failure the previous panel stays in place,
// the error is logged and a notification is posted; the error is also
// returned so callers can report it.
func (r *Refreshers) Refresh(ctx context.Context, n Name) error {
	p, err := r.build(ctx, n)
	if err != nil {
		r.log.Error("view refresh failed", "view", string(n), "err", err)
		r.board.Notify(NoticeError, failureNotices[n])
		return fmt.Errorf("refresh %s: %w", n, err)
	}
	r.board.Put(p)
	return nil
}

func (r *Refreshers) build(ctx context.Context, n Name) (Panel, error) {
	switch n {
	case Books:
		books, err := r.src.ListBooks(ctx)
		if err != nil {
			return Panel{}, err
		}
		return RenderBooks(books), nil
	case Members:
		members, err := r.src.ListMembers(ctx)
		if err != nil {
			return Panel{}, err
		}
		return RenderMembers(members), nil
	case Loans:
		loans, err := r.src.ListLoans(ctx)
		if err != nil {
			return Panel{}, err
		}
		return RenderLoans(loans, r.now()), nil
	case Dashboard:
		return r.buildDashboard(ctx)
	default:
		return Panel{}, fmt.Errorf("unknown view %q", n)
	}
}

// buildDashboard fetches the three collections in parallel; any failure
// fails the whole dashboard.
func (r *Refreshers) buildDashboard(ctx context.Context) (Panel, error) {
	var (
		books   []entity.Book
		members []entity.Member
		loans   []entity.Loan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		books, err = r.src.ListBooks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = r.src.ListMembers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		loans, err = r.src.ListLoans(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Panel{}, err
	}
	return RenderDashboard(books, members, loans, r.now()), nil
}
