// Package sandbox is a development stand-in for the library REST API. It
// serves the same routes and JSON shapes so the desk can run without the
// hosted backend.
package sandbox

import (
	"context"
	"errors"
	"time"

	"librarydesk/internal/entity"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrAlreadyReturned   = errors.New("loan already returned")
	ErrHasActiveLoans    = errors.New("has active loans")
	ErrCopiesBelowLoaned = errors.New("copies below loaned count")
)

type BookDraft struct {
	ISBN   string
	Title  string
	Author string
	Copies int
}

type MemberDraft struct {
	Name  string
	Email string
}

type LoanDraft struct {
	MemberID string
	BookID   string
	DueAt    time.Time
}

// Store persists the library. Books carry their available copies (copies
// minus active loans); loans come back with member and book populated.
type Store interface {
	ListBooks(ctx context.Context) ([]entity.Book, error)
	GetBook(ctx context.Context, id string) (entity.Book, error)
	CreateBook(ctx context.Context, d BookDraft) (entity.Book, error)
	UpdateBook(ctx context.Context, id string, d BookDraft) (entity.Book, error)
	DeleteBook(ctx context.Context, id string) error

	ListMembers(ctx context.Context) ([]entity.Member, error)
	GetMember(ctx context.Context, id string) (entity.Member, error)
	CreateMember(ctx context.Context, d MemberDraft) (entity.Member, error)
	UpdateMember(ctx context.Context, id string, d MemberDraft) (entity.Member, error)
	DeleteMember(ctx context.Context, id string) error

	ListLoans(ctx context.Context) ([]entity.Loan, error)
	CreateLoan(ctx context.Context, d LoanDraft) (entity.Loan, error)
	ReturnLoan(ctx context.Context, id string) (entity.Loan, error)
}
