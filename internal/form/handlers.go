// Package form implements the librarian's forms and row actions: validate
// locally, call the library API, then let the coordinator redraw the
// affected views.
package form

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"librarydesk/internal/coordinator"
	"librarydesk/internal/platform/libraryapi"
	"librarydesk/internal/view"
)

// Failure is what the librarian sees when an operation does not go through.
// Message is the notification text; Err is the underlying cause.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

type BookValues struct {
	ISBN   string
	Title  string
	Author string
	Copies string
}

type MemberValues struct {
	Name  string
	Email string
}

type LoanValues struct {
	MemberID string
	BookID   string
	DueAt    string
}

type Handlers struct {
	api      API
	syncer   Syncer
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
	validate *validator.Validate
}

type Option func(*Handlers)

func WithClock(now func() time.Time) Option {
	return func(h *Handlers) {
		if now != nil {
			h.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handlers) {
		if l != nil {
			h.log = l
		}
	}
}

func NewHandlers(api API, syncer Syncer, notifier Notifier, opts ...Option) *Handlers {
	h := &Handlers{
		api:      api,
		syncer:   syncer,
		notifier: notifier,
		now:      time.Now,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.validate = newValidator(func() time.Time { return h.now() })
	return h
}

// outcome carries the notification texts of one operation: success, HTTP
// failure without a server message, and failure to get any answer.
type outcome struct {
	op       string
	mutation coordinator.Mutation
	success  string
	failed   string
	errored  string
}

var (
	createBook   = outcome{"create book", coordinator.BookCreated, "Book added successfully!", "Failed to add book", "Error adding book"}
	updateBook   = outcome{"update book", coordinator.BookUpdated, "Book updated successfully!", "Failed to update", "Error updating"}
	deleteBook   = outcome{"delete book", coordinator.BookDeleted, "Book deleted successfully!", "Failed to delete book", "Error deleting book"}
	createMember = outcome{"create member", coordinator.MemberCreated, "Member added successfully!", "Failed to add member", "Error adding member"}
	updateMember = outcome{"update member", coordinator.MemberUpdated, "Member updated successfully!", "Failed to update", "Error updating"}
	deleteMember = outcome{"delete member", coordinator.MemberDeleted, "Member deleted successfully!", "Failed to delete member", "Error deleting member"}
	createLoan   = outcome{"create loan", coordinator.LoanCreated, "Loan created successfully!", "Failed to create loan", "Error creating loan"}
	returnLoan   = outcome{"return loan", coordinator.LoanReturned, "Book returned successfully!", "Failed to return book", "Error returning book"}
)

func (h *Handlers) reject(err error) error {
	var f *Failure
	if errors.As(err, &f) {
		h.notifier.Notify(view.NoticeError, f.Message)
	}
	return err
}

// finish reports the result of an API call. On success the coordinator
// redraws the views of the mutation; a failed redraw has already notified
// and does not turn the mutation into a failure.
func (h *Handlers) finish(ctx context.Context, o outcome, err error) error {
	if err != nil {
		msg := o.errored
		var httpErr *libraryapi.HTTPError
		if errors.As(err, &httpErr) {
			msg = libraryapi.MessageOf(err, o.failed)
		}
		h.log.Warn("operation failed", "op", o.op, "err", err)
		h.notifier.Notify(view.NoticeError, msg)
		return &Failure{Message: msg, Err: err}
	}

	h.log.Info("operation succeeded", "op", o.op)
	h.notifier.Notify(view.NoticeSuccess, o.success)
	if err := h.syncer.Sync(ctx, o.mutation); err != nil {
		h.log.Warn("refresh after mutation incomplete", "op", o.op, "err", err)
	}
	return nil
}

func (h *Handlers) bookInput(v BookValues) (libraryapi.BookInput, error) {
	f := bookFields{
		ISBN:   strings.TrimSpace(v.ISBN),
		Title:  strings.TrimSpace(v.Title),
		Author: strings.TrimSpace(v.Author),
		Copies: parseCopies(v.Copies),
	}
	if err := check(h.validate, f, bookMessages); err != nil {
		return libraryapi.BookInput{}, err
	}
	return libraryapi.BookInput{ISBN: f.ISBN, Title: f.Title, Author: f.Author, Copies: f.Copies}, nil
}

func (h *Handlers) memberInput(v MemberValues) (libraryapi.MemberInput, error) {
	f := memberFields{
		Name:  strings.TrimSpace(v.Name),
		Email: strings.TrimSpace(v.Email),
	}
	if err := check(h.validate, f, memberMessages); err != nil {
		return libraryapi.MemberInput{}, err
	}
	return libraryapi.MemberInput{Name: f.Name, Email: f.Email}, nil
}

func (h *Handlers) CreateBook(ctx context.Context, v BookValues) error {
	in, err := h.bookInput(v)
	if err != nil {
		return h.reject(err)
	}
	_, err = h.api.CreateBook(ctx, in)
	return h.finish(ctx, createBook, err)
}

func (h *Handlers) UpdateBook(ctx context.Context, id string, v BookValues) error {
	in, err := h.bookInput(v)
	if err != nil {
		return h.reject(err)
	}
	_, err = h.api.UpdateBook(ctx, id, in)
	return h.finish(ctx, updateBook, err)
}

func (h *Handlers) DeleteBook(ctx context.Context, id string) error {
	return h.finish(ctx, deleteBook, h.api.DeleteBook(ctx, id))
}

func (h *Handlers) CreateMember(ctx context.Context, v MemberValues) error {
	in, err := h.memberInput(v)
	if err != nil {
		return h.reject(err)
	}
	_, err = h.api.CreateMember(ctx, in)
	return h.finish(ctx, createMember, err)
}

func (h *Handlers) UpdateMember(ctx context.Context, id string, v MemberValues) error {
	in, err := h.memberInput(v)
	if err != nil {
		return h.reject(err)
	}
	_, err = h.api.UpdateMember(ctx, id, in)
	return h.finish(ctx, updateMember, err)
}

func (h *Handlers) DeleteMember(ctx context.Context, id string) error {
	return h.finish(ctx, deleteMember, h.api.DeleteMember(ctx, id))
}

// CreateLoan lends a book. The due date must be a day after today.
func (h *Handlers) CreateLoan(ctx context.Context, v LoanValues) error {
	f := loanFields{
		MemberID: strings.TrimSpace(v.MemberID),
		BookID:   strings.TrimSpace(v.BookID),
		DueAt:    strings.TrimSpace(v.DueAt),
	}
	if err := check(h.validate, f, loanMessages); err != nil {
		return h.reject(err)
	}
	_, err := h.api.CreateLoan(ctx, libraryapi.LoanInput{MemberID: f.MemberID, BookID: f.BookID, DueAt: f.DueAt})
	return h.finish(ctx, createLoan, err)
}

func (h *Handlers) ReturnLoan(ctx context.Context, id string) error {
	_, err := h.api.ReturnLoan(ctx, id)
	return h.finish(ctx, returnLoan, err)
}

// ReturnSelected backs the return form, where the loan comes from the
// active-loan selector and may be left empty.
func (h *Handlers) ReturnSelected(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return h.reject(&Failure{Message: msgSelectLoan, Err: ErrValidation})
	}
	return h.ReturnLoan(ctx, id)
}
