package libraryapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"librarydesk/internal/entity"
	"librarydesk/internal/platform/libraryapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *libraryapi.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := libraryapi.NewClient(srv.URL + "/api")
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := libraryapi.NewClient("")
	assert.Error(t, err)

	_, err = libraryapi.NewClient("/relative/api")
	assert.Error(t, err)

	c, err := libraryapi.NewClient("http://localhost:8081/api/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8081/api", c.BaseURL())
}

func TestClient_ListBooks_BothShapes(t *testing.T) {
	body := `[{"_id":"b1","isbn":"978","title":"Dune","author":"Herbert","copies":3,"availableCopies":2}]`

	bare := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/books", r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		io.WriteString(w, body)
	})
	wrapped := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"books":`+body+`}`)
	})

	fromBare, err := bare.ListBooks(context.Background())
	require.NoError(t, err)
	fromWrapped, err := wrapped.ListBooks(context.Background())
	require.NoError(t, err)

	require.Len(t, fromBare, 1)
	assert.Equal(t, fromBare, fromWrapped)
	assert.Equal(t, 2, fromBare[0].AvailableCopies)
}

func TestClient_CreateBook_SendsJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/books", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in libraryapi.BookInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, libraryapi.BookInput{ISBN: "978", Title: "Dune", Author: "Herbert", Copies: 3}, in)

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"_id":"b1","isbn":"978","title":"Dune","author":"Herbert","copies":3,"availableCopies":3}`)
	})

	b, err := c.CreateBook(context.Background(), libraryapi.BookInput{ISBN: "978", Title: "Dune", Author: "Herbert", Copies: 3})
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)
}

func TestClient_Paths(t *testing.T) {
	var got []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Method+" "+r.URL.EscapedPath())
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{}`)
	})
	ctx := context.Background()

	_, _ = c.GetBook(ctx, "b 1")
	_, _ = c.UpdateBook(ctx, "b1", libraryapi.BookInput{})
	_ = c.DeleteBook(ctx, "b1")
	_, _ = c.GetMember(ctx, "m1")
	_, _ = c.UpdateMember(ctx, "m1", libraryapi.MemberInput{})
	_ = c.DeleteMember(ctx, "m1")
	_, _ = c.CreateLoan(ctx, libraryapi.LoanInput{})
	_, _ = c.ReturnLoan(ctx, "l1")

	assert.Equal(t, []string{
		"GET /api/books/b%201",
		"PUT /api/books/b1",
		"DELETE /api/books/b1",
		"GET /api/members/m1",
		"PUT /api/members/m1",
		"DELETE /api/members/m1",
		"POST /api/loans",
		"PATCH /api/loans/l1/return",
	}, got)
}

func TestClient_HTTPError(t *testing.T) {
	t.Run("with server message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"message":"No copies available"}`)
		})

		_, err := c.CreateLoan(context.Background(), libraryapi.LoanInput{MemberID: "m1", BookID: "b1", DueAt: "2030-01-01"})
		require.Error(t, err)

		var httpErr *libraryapi.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
		assert.Equal(t, "No copies available", libraryapi.MessageOf(err, "Failed to create loan"))
		assert.False(t, libraryapi.IsNetwork(err))
	})

	t.Run("without message", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `not found`)
		})

		err := c.DeleteBook(context.Background(), "missing")
		var httpErr *libraryapi.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.True(t, httpErr.NotFound())
		assert.Equal(t, "Failed to delete book", libraryapi.MessageOf(err, "Failed to delete book"))
	})
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := libraryapi.NewClient(url + "/api")
	require.NoError(t, err)

	_, err = c.ListMembers(context.Background())
	require.Error(t, err)
	assert.True(t, libraryapi.IsNetwork(err))
	assert.Equal(t, "Error loading members", libraryapi.MessageOf(err, "Error loading members"))
}

func TestClient_NoRetry(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.ListLoans(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestClient_Ping(t *testing.T) {
	ok := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"books":[]}`)
	})
	assert.NoError(t, ok.Ping(context.Background()))

	bad := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"up"}`)
	})
	assert.ErrorIs(t, bad.Ping(context.Background()), libraryapi.ErrUnexpectedShape)
}

func TestClient_MutationSuccessIgnoresBody(t *testing.T) {
	for _, body := range []string{`Created`, `"Book returned"`, `[]`, ``} {
		t.Run(body, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				io.WriteString(w, body)
			})
			ctx := context.Background()

			b, err := c.CreateBook(ctx, libraryapi.BookInput{ISBN: "978", Title: "Dune", Author: "Herbert", Copies: 1})
			require.NoError(t, err)
			assert.Equal(t, entity.Book{}, b)

			_, err = c.UpdateBook(ctx, "b1", libraryapi.BookInput{ISBN: "978", Title: "Dune", Author: "Herbert", Copies: 1})
			assert.NoError(t, err)
			_, err = c.CreateMember(ctx, libraryapi.MemberInput{Name: "Ada", Email: "ada@example.com"})
			assert.NoError(t, err)
			_, err = c.UpdateMember(ctx, "m1", libraryapi.MemberInput{Name: "Ada", Email: "ada@example.com"})
			assert.NoError(t, err)
			_, err = c.CreateLoan(ctx, libraryapi.LoanInput{MemberID: "m1", BookID: "b1", DueAt: "2030-01-01"})
			assert.NoError(t, err)

			l, err := c.ReturnLoan(ctx, "l1")
			require.NoError(t, err)
			assert.Empty(t, l.ID)
		})
	}
}
