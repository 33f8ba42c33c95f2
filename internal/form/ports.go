package form

//go:generate mockgen -source=ports.go -destination=mocks/mock_ports.go -package=mocks

import (
	"context"

	"librarydesk/internal/coordinator"
	"librarydesk/internal/entity"
	"librarydesk/internal/platform/libraryapi"
	"librarydesk/internal/view"
)

// API is the write side of the library API plus the single-item reads the
// edit flow needs.
type API interface {
	GetBook(ctx context.Context, id string) (entity.Book, error)
	CreateBook(ctx context.Context, in libraryapi.BookInput) (entity.Book, error)
	UpdateBook(ctx context.Context, id string, in libraryapi.BookInput) (entity.Book, error)
	DeleteBook(ctx context.Context, id string) error

	GetMember(ctx context.Context, id string) (entity.Member, error)
	CreateMember(ctx context.Context, in libraryapi.MemberInput) (entity.Member, error)
	UpdateMember(ctx context.Context, id string, in libraryapi.MemberInput) (entity.Member, error)
	DeleteMember(ctx context.Context, id string) error

	CreateLoan(ctx context.Context, in libraryapi.LoanInput) (entity.Loan, error)
	ReturnLoan(ctx context.Context, id string) (entity.Loan, error)
}

type Syncer interface {
	Sync(ctx context.Context, m coordinator.Mutation) error
}

type Notifier interface {
	Notify(kind view.NoticeKind, msg string)
}
