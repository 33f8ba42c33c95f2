package sandbox

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"librarydesk/internal/httpx"
)

const maxBodyBytes = 1 << 20

type Options struct {
	// BareLists answers list routes with a bare JSON array instead of an
	// object wrapping the array under the collection name.
	BareLists      bool
	AllowedOrigins []string
	Logger         *slog.Logger
}

type Handler struct {
	store     Store
	bareLists bool
	origins   []string
	validate  *validator.Validate
	log       *slog.Logger
}

func NewHandler(store Store, opts Options) *Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &Handler{
		store:     store,
		bareLists: opts.BareLists,
		origins:   origins,
		validate:  v,
		log:       log,
	}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api.HandleFunc("/books", h.listBooks).Methods(http.MethodGet)
	api.HandleFunc("/books", h.createBook).Methods(http.MethodPost)
	api.HandleFunc("/books/{id}", h.getBook).Methods(http.MethodGet)
	api.HandleFunc("/books/{id}", h.updateBook).Methods(http.MethodPut)
	api.HandleFunc("/books/{id}", h.deleteBook).Methods(http.MethodDelete)

	api.HandleFunc("/members", h.listMembers).Methods(http.MethodGet)
	api.HandleFunc("/members", h.createMember).Methods(http.MethodPost)
	api.HandleFunc("/members/{id}", h.getMember).Methods(http.MethodGet)
	api.HandleFunc("/members/{id}", h.updateMember).Methods(http.MethodPut)
	api.HandleFunc("/members/{id}", h.deleteMember).Methods(http.MethodDelete)

	api.HandleFunc("/loans", h.listLoans).Methods(http.MethodGet)
	api.HandleFunc("/loans", h.createLoan).Methods(http.MethodPost)
	api.HandleFunc("/loans/{id}/return", h.returnLoan).Methods(http.MethodPatch)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// Routes is the full sandbox server: router, CORS and the common middleware.
func (h *Handler) Routes() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", httpx.RequestIDHeader},
	})
	return httpx.Chain(c.Handler(h.Router()),
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(h.log),
		httpx.RecoveryMiddleware(h.log),
		httpx.RequestSizeLimitMiddleware(maxBodyBytes),
	)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeList(w http.ResponseWriter, key string, items any) {
	if h.bareLists {
		httpx.JSON(w, http.StatusOK, items)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{key: items})
}

// decode reads and validates a request body. On failure it answers the
// request and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.Decode(r, v); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		httpx.Error(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", field))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, ", ")
}

// fail maps a store error to a response. noun names the resource in
// messages ("Book", "Member", "Loan").
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, noun string) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Error(w, http.StatusNotFound, noun+" not found")
	case errors.Is(err, ErrDuplicate):
		field := "ISBN"
		if noun == "Member" {
			field = "email"
		}
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("A %s with this %s already exists", strings.ToLower(noun), field))
	case errors.Is(err, ErrNoCopiesAvailable):
		httpx.Error(w, http.StatusBadRequest, "No copies available")
	case errors.Is(err, ErrAlreadyReturned):
		httpx.Error(w, http.StatusBadRequest, "Loan already returned")
	case errors.Is(err, ErrHasActiveLoans):
		httpx.Error(w, http.StatusBadRequest, noun+" has active loans")
	case errors.Is(err, ErrCopiesBelowLoaned):
		httpx.Error(w, http.StatusBadRequest, "Copies cannot be less than active loans")
	default:
		h.log.Error("store failure", "request_id", httpx.RequestIDFrom(r), "err", err)
		httpx.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}

type bookRequest struct {
	ISBN   string `json:"isbn" validate:"required"`
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	Copies int    `json:"copies" validate:"gte=1"`
}

func (b bookRequest) draft() BookDraft {
	return BookDraft{
		ISBN:   strings.TrimSpace(b.ISBN),
		Title:  strings.TrimSpace(b.Title),
		Author: strings.TrimSpace(b.Author),
		Copies: b.Copies,
	}
}

func (h *Handler) listBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.store.ListBooks(r.Context())
	if err != nil {
		h.fail(w, r, err, "Book")
		return
	}
	h.writeList(w, "books", books)
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.GetBook(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "Book")
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) createBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.store.CreateBook(r.Context(), req.draft())
	if err != nil {
		h.fail(w, r, err, "Book")
		return
	}
	httpx.JSON(w, http.StatusCreated, b)
}

func (h *Handler) updateBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !h.decode(w, r, &req) {
		return
	}
	b, err := h.store.UpdateBook(r.Context(), mux.Vars(r)["id"], req.draft())
	if err != nil {
		h.fail(w, r, err, "Book")
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) deleteBook(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteBook(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err, "Book")
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.MessageResponse{Message: "Book deleted"})
}

type memberRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (m memberRequest) draft() MemberDraft {
	return MemberDraft{Name: strings.TrimSpace(m.Name), Email: strings.TrimSpace(m.Email)}
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListMembers(r.Context())
	if err != nil {
		h.fail(w, r, err, "Member")
		return
	}
	h.writeList(w, "members", members)
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	m, err := h.store.GetMember(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "Member")
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, err := h.store.CreateMember(r.Context(), req.draft())
	if err != nil {
		h.fail(w, r, err, "Member")
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) updateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, err := h.store.UpdateMember(r.Context(), mux.Vars(r)["id"], req.draft())
	if err != nil {
		h.fail(w, r, err, "Member")
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) deleteMember(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteMember(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err, "Member")
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.MessageResponse{Message: "Member deleted"})
}

type loanRequest struct {
	MemberID string `json:"memberId" validate:"required"`
	BookID   string `json:"bookId" validate:"required"`
	DueAt    string `json:"dueAt" validate:"required"`
}

// parseDue accepts a calendar date or a full RFC 3339 timestamp.
func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.store.ListLoans(r.Context())
	if err != nil {
		h.fail(w, r, err, "Loan")
		return
	}
	h.writeList(w, "loans", loans)
}

func (h *Handler) createLoan(w http.ResponseWriter, r *http.Request) {
	var req loanRequest
	if !h.decode(w, r, &req) {
		return
	}
	due, err := parseDue(strings.TrimSpace(req.DueAt))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "dueAt must be a date")
		return
	}
	l, err := h.store.CreateLoan(r.Context(), LoanDraft{MemberID: req.MemberID, BookID: req.BookID, DueAt: due})
	if err != nil {
		h.fail(w, r, err, "Member or book")
		return
	}
	httpx.JSON(w, http.StatusCreated, l)
}

func (h *Handler) returnLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.store.ReturnLoan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "Loan")
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}
