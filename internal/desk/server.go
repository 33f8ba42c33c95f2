package desk

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"librarydesk/internal/form"
	"librarydesk/internal/httpx"
	"librarydesk/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const maxFormBytes = 64 << 10

var funcs = template.FuncMap{
	"statusLabel": func(s view.APIStatus) string {
		switch s {
		case view.StatusOnline:
			return "Online"
		case view.StatusOffline:
			return "Offline"
		default:
			return "Checking..."
		}
	},
	"sectionLabel": func(n view.Name) string {
		return strings.ToUpper(string(n[:1])) + string(n[1:])
	},
}

var (
	pageTmpl = template.Must(template.New("page").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/sections.html"))
	editTmpl = template.Must(template.New("edit").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/edit.html"))
)

type ServerOptions struct {
	EnableHSTS     bool
	RateLimitRPS   float64
	RateLimitBurst int
}

type pageData struct {
	Sections    []view.Name
	Active      view.Name
	Status      view.APIStatus
	APIURL      string
	Notice      *view.Notice
	Query       string
	Panel       view.Panel
	Rows        []view.Row
	Books       []view.Option
	Members     []view.Option
	ActiveLoans []view.Option
	MinDue      string

	Edit   *form.EditSession
	Values form.EditValues
}

// Routes returns the desk web handler. ctx bounds background work of the
// middleware.
func (a *App) Routes(ctx context.Context, opts ServerOptions) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", a.index)
	mux.HandleFunc("GET /nav/{section}", a.navigate)

	mux.HandleFunc("POST /books", a.createBook)
	mux.HandleFunc("POST /members", a.createMember)
	mux.HandleFunc("POST /loans", a.createLoan)
	mux.HandleFunc("POST /books/{id}/delete", a.deleteBook)
	mux.HandleFunc("POST /members/{id}/delete", a.deleteMember)
	mux.HandleFunc("POST /loans/{id}/return", a.returnLoan)
	mux.HandleFunc("POST /loans/return", a.returnSelected)

	mux.HandleFunc("GET /edit/{kind}/{id}", a.openEdit)
	mux.HandleFunc("POST /edit/{kind}/{id}", a.submitEdit)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", a.ready)

	static, _ := fs.Sub(staticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mws := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(a.log),
		httpx.RecoveryMiddleware(a.log),
		httpx.SecurityHeadersMiddleware(opts.EnableHSTS),
	}
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst < 1 {
			burst = 1
		}
		mws = append(mws, httpx.NewRateLimiter(ctx, opts.RateLimitRPS, burst).Middleware)
	}
	mws = append(mws, httpx.RequestSizeLimitMiddleware(maxFormBytes))
	return httpx.Chain(mux, mws...)
}

func (a *App) baseData() pageData {
	d := pageData{
		Sections: view.Names(),
		Active:   a.board.Active(),
		Status:   a.board.Status(),
		APIURL:   a.api.BaseURL(),
	}
	if n, ok := a.board.TakeNotice(); ok {
		d.Notice = &n
	}
	return d
}

func (a *App) render(w http.ResponseWriter, r *http.Request, t *template.Template, status int, d pageData) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", d); err != nil {
		a.log.Error("render page failed", "request_id", httpx.RequestIDFrom(r), "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// index draws the active section from the board without fetching.
func (a *App) index(w http.ResponseWriter, r *http.Request) {
	d := a.baseData()
	d.Query = r.URL.Query().Get("q")
	d.Panel = a.board.Panel(d.Active)
	d.Rows = d.Panel.Filter(d.Query)
	if d.Active == view.Loans {
		d.Books = a.board.Panel(view.Books).Options
		d.Members = a.board.Panel(view.Members).Options
		d.ActiveLoans = d.Panel.Options
		d.MinDue = a.now().AddDate(0, 0, 1).Format("2006-01-02")
	}
	a.render(w, r, pageTmpl, http.StatusOK, d)
}

func (a *App) navigate(w http.ResponseWriter, r *http.Request) {
	n, ok := view.ParseName(r.PathValue("section"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	_ = a.Navigate(r.Context(), n)
	backHome(w, r)
}

func backHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func bookValues(r *http.Request) form.BookValues {
	return form.BookValues{
		ISBN:   r.PostFormValue("isbn"),
		Title:  r.PostFormValue("title"),
		Author: r.PostFormValue("author"),
		Copies: r.PostFormValue("copies"),
	}
}

func memberValues(r *http.Request) form.MemberValues {
	return form.MemberValues{
		Name:  r.PostFormValue("name"),
		Email: r.PostFormValue("email"),
	}
}

// Failures of the form handlers are already posted to the board, so the
// action handlers only redirect.

func (a *App) createBook(w http.ResponseWriter, r *http.Request) {
	_ = a.forms.CreateBook(r.Context(), bookValues(r))
	backHome(w, r)
}

func (a *App) createMember(w http.ResponseWriter, r *http.Request) {
	_ = a.forms.CreateMember(r.Context(), memberValues(r))
	backHome(w, r)
}

func (a *App) createLoan(w http.ResponseWriter, r *http.Request) {
	_ = a.forms.CreateLoan(r.Context(), form.LoanValues{
		MemberID: r.PostFormValue("memberId"),
		BookID:   r.PostFormValue("bookId"),
		DueAt:    r.PostFormValue("dueAt"),
	})
	backHome(w, r)
}

func (a *App) deleteBook(w http.ResponseWriter, r *http.Request) {
	_ = a.forms.DeleteBook(r.Context(), r.PathValue("id"))
	backHome(w, r)
}

func (a *App) deleteMember(w http.ResponseWriter, r *http.Request) {
	_ = a.forms.DeleteMember(r.Context(), r.PathValue("id"))
	backHome(w, r)
}

func (a *App) returnLoan(w http.ResponseWriter, r *http.Request) {
	_ = a.forms.ReturnLoan(r.Context(), r.PathValue("id"))
	backHome(w, r)
}

func (a *App) returnSelected(w http.ResponseWriter, r *http.Request) {
	_ = a.forms.ReturnSelected(r.Context(), r.PostFormValue("loanId"))
	backHome(w, r)
}

func (a *App) openEdit(w http.ResponseWriter, r *http.Request) {
	kind, err := form.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s, err := a.forms.OpenEdit(r.Context(), kind, r.PathValue("id"))
	if err != nil {
		backHome(w, r)
		return
	}
	d := a.baseData()
	d.Edit = s
	d.Values = s.Values()
	a.render(w, r, editTmpl, http.StatusOK, d)
}

// submitEdit keeps the form open with the submitted values when the update
// does not go through.
func (a *App) submitEdit(w http.ResponseWriter, r *http.Request) {
	kind, err := form.ParseKind(r.PathValue("kind"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s := &form.EditSession{Kind: kind, ID: r.PathValue("id")}
	values := form.EditValues{Book: bookValues(r), Member: memberValues(r)}
	if err := a.forms.SubmitEdit(r.Context(), s, values); err != nil {
		d := a.baseData()
		d.Edit = s
		d.Values = values
		a.render(w, r, editTmpl, http.StatusUnprocessableEntity, d)
		return
	}
	backHome(w, r)
}

func (a *App) ready(w http.ResponseWriter, r *http.Request) {
	if err := a.api.Ping(r.Context()); err != nil {
		httpx.Error(w, http.StatusServiceUnavailable, "library api unavailable")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
