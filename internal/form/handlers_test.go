package form_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarydesk/internal/coordinator"
	"librarydesk/internal/entity"
	"librarydesk/internal/form"
	"librarydesk/internal/form/mocks"
	"librarydesk/internal/platform/libraryapi"
	"librarydesk/internal/view"
)

var today = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

type fixture struct {
	api    *mocks.MockAPI
	syncer *mocks.MockSyncer
	board  *view.Board
	h      *form.Handlers
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := fixture{
		api:    mocks.NewMockAPI(ctrl),
		syncer: mocks.NewMockSyncer(ctrl),
		board:  view.NewBoard(),
	}
	f.h = form.NewHandlers(f.api, f.syncer, f.board,
		form.WithClock(func() time.Time { return today }),
		form.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return f
}

func (f fixture) notice(t *testing.T) view.Notice {
	t.Helper()
	n, ok := f.board.TakeNotice()
	require.True(t, ok, "expected a notification")
	return n
}

func assertValidation(t *testing.T, err error, msg string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, form.ErrValidation))
	assert.Equal(t, msg, err.Error())
}

func TestCreateBook(t *testing.T) {
	ctx := context.Background()

	t.Run("success trims, sends and syncs", func(t *testing.T) {
		f := newFixture(t)
		want := libraryapi.BookInput{ISBN: "978-0441013593", Title: "Dune", Author: "Frank Herbert", Copies: 3}
		gomock.InOrder(
			f.api.EXPECT().CreateBook(ctx, want).Return(entity.Book{ID: "b1"}, nil),
			f.syncer.EXPECT().Sync(ctx, coordinator.BookCreated).Return(nil),
		)

		err := f.h.CreateBook(ctx, form.BookValues{ISBN: " 978-0441013593 ", Title: "Dune ", Author: " Frank Herbert", Copies: "3"})

		require.NoError(t, err)
		assert.Equal(t, view.Notice{Kind: view.NoticeSuccess, Message: "Book added successfully!"}, f.notice(t))
	})

	invalid := []struct {
		name   string
		values form.BookValues
	}{
		{"missing title", form.BookValues{ISBN: "1", Author: "A", Copies: "1"}},
		{"blank author", form.BookValues{ISBN: "1", Title: "T", Author: "   ", Copies: "1"}},
		{"zero copies", form.BookValues{ISBN: "1", Title: "T", Author: "A", Copies: "0"}},
		{"non numeric copies", form.BookValues{ISBN: "1", Title: "T", Author: "A", Copies: "three"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.h.CreateBook(ctx, tt.values)
			assertValidation(t, err, "Please fill all fields with valid data")
			assert.Equal(t, view.NoticeError, f.notice(t).Kind)
		})
	}

	t.Run("server message is surfaced", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().CreateBook(ctx, gomock.Any()).
			Return(entity.Book{}, &libraryapi.HTTPError{StatusCode: 400, Message: "ISBN already exists"})

		err := f.h.CreateBook(ctx, form.BookValues{ISBN: "1", Title: "T", Author: "A", Copies: "1"})

		require.Error(t, err)
		assert.Equal(t, "ISBN already exists", err.Error())
		assert.Equal(t, view.Notice{Kind: view.NoticeError, Message: "ISBN already exists"}, f.notice(t))
	})

	t.Run("http failure without message uses fallback", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().CreateBook(ctx, gomock.Any()).Return(entity.Book{}, &libraryapi.HTTPError{StatusCode: 500})

		err := f.h.CreateBook(ctx, form.BookValues{ISBN: "1", Title: "T", Author: "A", Copies: "1"})

		require.Error(t, err)
		assert.Equal(t, "Failed to add book", f.notice(t).Message)
	})

	t.Run("network failure", func(t *testing.T) {
		f := newFixture(t)
		netErr := &libraryapi.NetworkError{Op: "POST /books", Err: errors.New("connection refused")}
		f.api.EXPECT().CreateBook(ctx, gomock.Any()).Return(entity.Book{}, netErr)

		err := f.h.CreateBook(ctx, form.BookValues{ISBN: "1", Title: "T", Author: "A", Copies: "1"})

		require.Error(t, err)
		assert.True(t, libraryapi.IsNetwork(err))
		assert.Equal(t, "Error adding book", f.notice(t).Message)
	})

	t.Run("failed refresh does not fail the mutation", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().CreateBook(ctx, gomock.Any()).Return(entity.Book{ID: "b1"}, nil)
		f.syncer.EXPECT().Sync(ctx, coordinator.BookCreated).Return(errors.New("refresh books: timeout"))

		err := f.h.CreateBook(ctx, form.BookValues{ISBN: "1", Title: "T", Author: "A", Copies: "1"})
		assert.NoError(t, err)
	})
}

func TestCreateMember(t *testing.T) {
	ctx := context.Background()

	t.Run("not an email makes no network call", func(t *testing.T) {
		f := newFixture(t)
		err := f.h.CreateMember(ctx, form.MemberValues{Name: "Ada", Email: "not-an-email"})
		assertValidation(t, err, "Please enter a valid email address")
		assert.Equal(t, view.Notice{Kind: view.NoticeError, Message: "Please enter a valid email address"}, f.notice(t))
	})

	t.Run("missing fields take priority over email format", func(t *testing.T) {
		f := newFixture(t)
		err := f.h.CreateMember(ctx, form.MemberValues{Name: "", Email: "bad"})
		assertValidation(t, err, "Please fill all fields")
	})

	t.Run("email with spaces rejected", func(t *testing.T) {
		f := newFixture(t)
		err := f.h.CreateMember(ctx, form.MemberValues{Name: "Ada", Email: "ada lovelace@example.com"})
		assertValidation(t, err, "Please enter a valid email address")
	})

	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().CreateMember(ctx, libraryapi.MemberInput{Name: "Ada", Email: "ada@example.com"}).Return(entity.Member{ID: "m1"}, nil)
		f.syncer.EXPECT().Sync(ctx, coordinator.MemberCreated).Return(nil)

		require.NoError(t, f.h.CreateMember(ctx, form.MemberValues{Name: " Ada ", Email: "ada@example.com "}))
		assert.Equal(t, "Member added successfully!", f.notice(t).Message)
	})
}

func TestCreateLoan(t *testing.T) {
	ctx := context.Background()

	rejected := []struct {
		name string
		in   form.LoanValues
		msg  string
	}{
		{"due today", form.LoanValues{MemberID: "m1", BookID: "b1", DueAt: "2026-03-10"}, "Due date must be in the future"},
		{"due yesterday", form.LoanValues{MemberID: "m1", BookID: "b1", DueAt: "2026-03-09"}, "Due date must be in the future"},
		{"missing member", form.LoanValues{BookID: "b1", DueAt: "2026-03-11"}, "Please fill all fields"},
		{"missing book", form.LoanValues{MemberID: "m1", DueAt: "2026-03-11"}, "Please fill all fields"},
		{"missing date", form.LoanValues{MemberID: "m1", BookID: "b1"}, "Please fill all fields"},
		{"unparseable date", form.LoanValues{MemberID: "m1", BookID: "b1", DueAt: "next week"}, "Please fill all fields"},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			assertValidation(t, f.h.CreateLoan(ctx, tt.in), tt.msg)
		})
	}

	t.Run("due tomorrow accepted", func(t *testing.T) {
		f := newFixture(t)
		want := libraryapi.LoanInput{MemberID: "m1", BookID: "b1", DueAt: "2026-03-11"}
		f.api.EXPECT().CreateLoan(ctx, want).Return(entity.Loan{ID: "l1"}, nil)
		f.syncer.EXPECT().Sync(ctx, coordinator.LoanCreated).Return(nil)

		require.NoError(t, f.h.CreateLoan(ctx, form.LoanValues{MemberID: "m1", BookID: "b1", DueAt: "2026-03-11"}))
		assert.Equal(t, "Loan created successfully!", f.notice(t).Message)
	})

	t.Run("no copies available", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().CreateLoan(ctx, gomock.Any()).
			Return(entity.Loan{}, &libraryapi.HTTPError{StatusCode: 400, Message: "No copies available"})

		err := f.h.CreateLoan(ctx, form.LoanValues{MemberID: "m1", BookID: "b1", DueAt: "2026-04-01"})
		require.Error(t, err)
		assert.Equal(t, "No copies available", f.notice(t).Message)
	})
}

func TestReturnAndDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("return syncs loan views", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().ReturnLoan(ctx, "l1").Return(entity.Loan{ID: "l1"}, nil)
		f.syncer.EXPECT().Sync(ctx, coordinator.LoanReturned).Return(nil)

		require.NoError(t, f.h.ReturnLoan(ctx, "l1"))
		assert.Equal(t, "Book returned successfully!", f.notice(t).Message)
	})

	t.Run("return selected requires a loan", func(t *testing.T) {
		f := newFixture(t)
		assertValidation(t, f.h.ReturnSelected(ctx, " "), "Please select a loan")
	})

	t.Run("return selected", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().ReturnLoan(ctx, "l2").Return(entity.Loan{ID: "l2"}, nil)
		f.syncer.EXPECT().Sync(ctx, coordinator.LoanReturned).Return(nil)
		require.NoError(t, f.h.ReturnSelected(ctx, "l2"))
	})

	t.Run("delete book", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().DeleteBook(ctx, "b1").Return(nil)
		f.syncer.EXPECT().Sync(ctx, coordinator.BookDeleted).Return(nil)
		require.NoError(t, f.h.DeleteBook(ctx, "b1"))
		assert.Equal(t, "Book deleted successfully!", f.notice(t).Message)
	})

	t.Run("delete member failure", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().DeleteMember(ctx, "m1").Return(&libraryapi.HTTPError{StatusCode: 404})
		require.Error(t, f.h.DeleteMember(ctx, "m1"))
		assert.Equal(t, "Failed to delete member", f.notice(t).Message)
	})
}

func TestEditSession(t *testing.T) {
	ctx := context.Background()

	t.Run("book edit round trip", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().GetBook(ctx, "b1").Return(entity.Book{ID: "b1", ISBN: "1", Title: "Dune", Author: "Herbert", Copies: 3}, nil)

		s, err := f.h.OpenEdit(ctx, form.KindBook, "b1")
		require.NoError(t, err)
		assert.Equal(t, "Edit Book", s.Title())

		values := s.Values()
		assert.Equal(t, "3", values.Book.Copies)
		values.Book.Copies = "4"

		f.api.EXPECT().UpdateBook(ctx, "b1", libraryapi.BookInput{ISBN: "1", Title: "Dune", Author: "Herbert", Copies: 4}).Return(entity.Book{}, nil)
		f.syncer.EXPECT().Sync(ctx, coordinator.BookUpdated).Return(nil)

		require.NoError(t, f.h.SubmitEdit(ctx, s, values))
		assert.Equal(t, "Book updated successfully!", f.notice(t).Message)
	})

	t.Run("member edit", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().GetMember(ctx, "m1").Return(entity.Member{ID: "m1", Name: "Ada", Email: "ada@example.com"}, nil)
		s, err := f.h.OpenEdit(ctx, form.KindMember, "m1")
		require.NoError(t, err)

		f.api.EXPECT().UpdateMember(ctx, "m1", libraryapi.MemberInput{Name: "Ada L.", Email: "ada@example.com"}).Return(entity.Member{}, nil)
		f.syncer.EXPECT().Sync(ctx, coordinator.MemberUpdated).Return(nil)

		require.NoError(t, f.h.SubmitEdit(ctx, s, form.EditValues{Member: form.MemberValues{Name: "Ada L.", Email: "ada@example.com"}}))
		assert.Equal(t, "Member updated successfully!", f.notice(t).Message)
	})

	t.Run("update failure uses generic message", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().UpdateMember(ctx, "m1", gomock.Any()).Return(entity.Member{}, &libraryapi.HTTPError{StatusCode: 500})

		s := &form.EditSession{Kind: form.KindMember, ID: "m1"}
		require.Error(t, f.h.SubmitEdit(ctx, s, form.EditValues{Member: form.MemberValues{Name: "Ada", Email: "ada@example.com"}}))
		assert.Equal(t, "Failed to update", f.notice(t).Message)
	})

	t.Run("open failure", func(t *testing.T) {
		f := newFixture(t)
		f.api.EXPECT().GetBook(ctx, "gone").Return(entity.Book{}, &libraryapi.HTTPError{StatusCode: 404})

		s, err := f.h.OpenEdit(ctx, form.KindBook, "gone")
		require.Error(t, err)
		assert.Nil(t, s)
		assert.Equal(t, view.Notice{Kind: view.NoticeError, Message: "Error loading data"}, f.notice(t))
	})

	t.Run("no session", func(t *testing.T) {
		f := newFixture(t)
		assert.Error(t, f.h.SubmitEdit(ctx, nil, form.EditValues{}))
	})

	t.Run("parse kind", func(t *testing.T) {
		k, err := form.ParseKind("Member")
		require.NoError(t, err)
		assert.Equal(t, form.KindMember, k)

		_, err = form.ParseKind("loan")
		assert.Error(t, err)
	})
}

func TestSuccessStatusWithPlainBodySyncs(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, "Created")
		case http.MethodPatch:
			io.WriteString(w, `"Book returned"`)
		default:
			io.WriteString(w, `[]`)
		}
	}))
	defer srv.Close()

	client, err := libraryapi.NewClient(srv.URL + "/api")
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	syncer := mocks.NewMockSyncer(ctrl)
	board := view.NewBoard()
	h := form.NewHandlers(client, syncer, board,
		form.WithClock(func() time.Time { return today }),
		form.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	gomock.InOrder(
		syncer.EXPECT().Sync(ctx, coordinator.BookCreated).Return(nil),
		syncer.EXPECT().Sync(ctx, coordinator.LoanCreated).Return(nil),
		syncer.EXPECT().Sync(ctx, coordinator.LoanReturned).Return(nil),
		syncer.EXPECT().Sync(ctx, coordinator.MemberUpdated).Return(nil),
	)

	require.NoError(t, h.CreateBook(ctx, form.BookValues{ISBN: "1", Title: "Dune", Author: "Herbert", Copies: "1"}))
	n, _ := board.TakeNotice()
	assert.Equal(t, view.Notice{Kind: view.NoticeSuccess, Message: "Book added successfully!"}, n)

	require.NoError(t, h.CreateLoan(ctx, form.LoanValues{MemberID: "m1", BookID: "b1", DueAt: "2026-03-20"}))
	require.NoError(t, h.ReturnLoan(ctx, "l1"))
	n, _ = board.TakeNotice()
	assert.Equal(t, "Book returned successfully!", n.Message)

	require.NoError(t, h.UpdateMember(ctx, "m1", form.MemberValues{Name: "Ada", Email: "ada@example.com"}))
}
