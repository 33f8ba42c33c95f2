package view

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"time"

	"librarydesk/internal/entity"
)

const dateLayout = "Jan 2, 2006"

var rowTemplates = template.Must(template.New("rows").Parse(`
{{define "book"}}<div class="data-item"><div class="item-info"><h4>{{.Title}}</h4><p><strong>ISBN:</strong> {{.ISBN}}</p><p><strong>Author:</strong> {{.Author}}</p><p><strong>Copies:</strong> {{.AvailableCopies}}/{{.Copies}} available</p></div><div class="item-actions"><a class="btn-edit" href="/edit/book/{{.ID}}">Edit</a><form method="post" action="/books/{{.ID}}/delete"><button class="btn-delete" type="submit">Delete</button></form></div></div>{{end}}
{{define "member"}}<div class="data-item"><div class="item-info"><h4>{{.Name}}</h4><p><strong>Email:</strong> {{.Email}}</p><p><strong>Joined:</strong> {{.Joined}}</p></div><div class="item-actions"><a class="btn-edit" href="/edit/member/{{.ID}}">Edit</a><form method="post" action="/members/{{.ID}}/delete"><button class="btn-delete" type="submit">Delete</button></form></div></div>{{end}}
{{define "loan"}}<div class="data-item{{if .Overdue}} overdue{{end}}"><div class="item-info"><h4>{{.Title}}</h4><p><strong>Borrowed by:</strong> {{.Member}}</p><p><strong>Due Date:</strong> {{.Due}}</p>{{if .Overdue}}<p class="overdue-label">OVERDUE</p>{{end}}</div><div class="item-actions"><form method="post" action="/loans/{{.ID}}/return"><button class="btn-return" type="submit">Return</button></form></div></div>{{end}}
{{define "activity"}}<div class="activity-item"><div><strong>{{.Member}}</strong> borrowed &#34;{{.Title}}&#34;</div><div>{{.Date}}</div></div>{{end}}
`))

func execute(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := rowTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		// the templates are static; a failure here is a programming error
		panic(fmt.Sprintf("view: render %s: %v", name, err))
	}
	return template.HTML(buf.String())
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(dateLayout)
}

// RenderBooks draws one row per book and the loan-form book selector, which
// only offers books with available copies.
func RenderBooks(books []entity.Book) Panel {
	p := Panel{View: Books, Rows: make([]Row, 0, len(books)), Options: []Option{}}
	for _, b := range books {
		p.Rows = append(p.Rows, Row{
			ID: b.ID,
			Text: fmt.Sprintf("%s ISBN: %s Author: %s Copies: %d/%d available",
				b.Title, b.ISBN, b.Author, b.AvailableCopies, b.Copies),
			HTML: execute("book", b),
		})
		if b.Loanable() {
			p.Options = append(p.Options, Option{
				Value: b.ID,
				Label: fmt.Sprintf("%s (%s) - %d available", b.Title, b.Author, b.AvailableCopies),
			})
		}
	}
	return p
}

func RenderMembers(members []entity.Member) Panel {
	p := Panel{View: Members, Rows: make([]Row, 0, len(members)), Options: make([]Option, 0, len(members))}
	for _, m := range members {
		joined := formatDate(m.JoinedAt)
		p.Rows = append(p.Rows, Row{
			ID:   m.ID,
			Text: fmt.Sprintf("%s Email: %s Joined: %s", m.Name, m.Email, joined),
			HTML: execute("member", struct {
				ID, Name, Email, Joined string
			}{m.ID, m.Name, m.Email, joined}),
		})
		p.Options = append(p.Options, Option{
			Value: m.ID,
			Label: fmt.Sprintf("%s (%s)", m.Name, m.Email),
		})
	}
	return p
}

// RenderLoans draws the outstanding loans only, flagging the ones overdue at
// now, and fills the active-loan selector of the return form.
func RenderLoans(loans []entity.Loan, now time.Time) Panel {
	active := entity.ActiveLoans(loans)
	p := Panel{View: Loans, Rows: make([]Row, 0, len(active)), Options: make([]Option, 0, len(active))}
	for _, l := range active {
		overdue := l.OverdueAt(now)
		title := l.Book.DisplayTitle()
		member := l.Member.DisplayName()
		due := formatDate(l.DueAt)

		text := fmt.Sprintf("%s Borrowed by: %s Due Date: %s", title, member, due)
		if overdue {
			text += " OVERDUE"
		}
		p.Rows = append(p.Rows, Row{
			ID:   l.ID,
			Text: text,
			HTML: execute("loan", struct {
				ID, Title, Member, Due string
				Overdue                bool
			}{l.ID, title, member, due, overdue}),
		})
		p.Options = append(p.Options, Option{
			Value: l.ID,
			Label: shortName(l.Member.Name) + " - " + shortName(l.Book.Title),
		})
	}
	return p
}

func shortName(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

const recentActivity = 5

// RenderDashboard counts every book and member, breaks loans down into
// active and overdue at now, and lists the most recent loans newest first.
func RenderDashboard(books []entity.Book, members []entity.Member, loans []entity.Loan, now time.Time) Panel {
	active := entity.ActiveLoans(loans)
	p := Panel{
		View: Dashboard,
		Stats: Stats{
			TotalBooks:   len(books),
			TotalMembers: len(members),
			ActiveLoans:  len(active),
			OverdueLoans: entity.CountOverdue(active, now),
		},
	}

	start := len(loans) - recentActivity
	if start < 0 {
		start = 0
	}
	recent := loans[start:]
	p.Rows = make([]Row, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		l := recent[i]
		member := l.Member.DisplayName()
		title := l.Book.DisplayTitle()
		date := formatDate(l.LoanedAt)
		p.Rows = append(p.Rows, Row{
			ID:   l.ID,
			Text: fmt.Sprintf("%s borrowed %s %s", member, strconv.Quote(title), date),
			HTML: execute("activity", struct {
				Member, Title, Date string
			}{member, title, date}),
		})
	}
	return p
}
