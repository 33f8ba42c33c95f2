// Package desk wires the librarian desk together: API client, board,
// refreshers, coordinator and form handlers, plus the pages that expose them.
package desk

import (
	"context"
	"log/slog"
	"time"

	"librarydesk/internal/coordinator"
	"librarydesk/internal/form"
	"librarydesk/internal/platform/libraryapi"
	"librarydesk/internal/view"
)

const msgBackendAsleep = "Cannot connect to backend. Server might be sleeping (first request may take 30-60 seconds)."

// API is everything the desk needs from the library API client.
type API interface {
	view.Source
	form.API
	Ping(ctx context.Context) error
	BaseURL() string
}

type Config struct {
	// RefreshEvery is the dashboard auto-refresh period. Zero disables it.
	RefreshEvery time.Duration
	Now          func() time.Time
	Logger       *slog.Logger
}

type App struct {
	api          API
	board        *view.Board
	refreshers   *view.Refreshers
	coord        *coordinator.Coordinator
	forms        *form.Handlers
	log          *slog.Logger
	now          func() time.Time
	refreshEvery time.Duration
}

func New(api API, cfg Config) *App {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	board := view.NewBoard()
	refreshers := view.NewRefreshers(api, board, view.WithClock(cfg.Now), view.WithLogger(cfg.Logger))
	coord := coordinator.New(refreshers, cfg.Logger)
	forms := form.NewHandlers(api, coord, board, form.WithClock(cfg.Now), form.WithLogger(cfg.Logger))

	return &App{
		api:          api,
		board:        board,
		refreshers:   refreshers,
		coord:        coord,
		forms:        forms,
		log:          cfg.Logger,
		now:          cfg.Now,
		refreshEvery: cfg.RefreshEvery,
	}
}

func (a *App) Board() *view.Board { return a.board }

func (a *App) Forms() *form.Handlers { return a.forms }

func (a *App) APIURL() string { return a.api.BaseURL() }

// CheckHealth probes the books endpoint and records the API status. When
// the backend cannot be reached at all the librarian is told it may be
// waking up.
func (a *App) CheckHealth(ctx context.Context) bool {
	a.board.SetStatus(view.StatusChecking)
	if err := a.api.Ping(ctx); err != nil {
		a.log.Warn("api health check failed", "url", a.api.BaseURL(), "err", err)
		a.board.SetStatus(view.StatusOffline)
		if libraryapi.IsNetwork(err) {
			a.board.Notify(view.NoticeInfo, msgBackendAsleep)
		}
		return false
	}
	a.board.SetStatus(view.StatusOnline)
	return true
}

// Start checks the API and, when it is online, loads the dashboard and
// keeps it fresh until ctx is done.
func (a *App) Start(ctx context.Context) {
	if !a.CheckHealth(ctx) {
		return
	}
	_ = a.refreshers.Refresh(ctx, view.Dashboard)
	if a.refreshEvery > 0 {
		go a.autoRefresh(ctx)
	}
}

// autoRefresh redraws the dashboard on every tick while it is the active
// section. Navigating away does not stop the ticker; ticks are skipped.
func (a *App) autoRefresh(ctx context.Context) {
	ticker := time.NewTicker(a.refreshEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick(ctx)
		}
	}
}

func (a *App) tick(ctx context.Context) bool {
	if a.board.Active() != view.Dashboard {
		return false
	}
	_ = a.refreshers.Refresh(ctx, view.Dashboard)
	return true
}

// Navigate makes n the active section and redraws it. Opening the loans
// section also loads the book and member selectors of the loan form when
// they have never been drawn.
func (a *App) Navigate(ctx context.Context, n view.Name) error {
	a.board.Activate(n)
	err := a.refreshers.Refresh(ctx, n)
	if n == view.Loans {
		for _, dep := range []view.Name{view.Books, view.Members} {
			if !a.board.Panel(dep).Loaded {
				_ = a.refreshers.Refresh(ctx, dep)
			}
		}
	}
	return err
}

// Views returns the views redrawn after m; the CLI prints them.
func (a *App) Views(m coordinator.Mutation) []view.Name {
	names, err := coordinator.Views(m)
	if err != nil {
		return nil
	}
	return names
}
