// Package view holds the presentation surface of the desk and the refreshers
// that redraw it. Every refresh re-fetches the authoritative list from the
// library API and swaps the whole panel; nothing is patched in place.
package view

import (
	"bytes"
	"html/template"
	"strings"
	"sync"
)

type Name string

const (
	Dashboard Name = "dashboard"
	Books     Name = "books"
	Members   Name = "members"
	Loans     Name = "loans"
)

// Names lists the sections in navigation order.
func Names() []Name {
	return []Name{Dashboard, Books, Members, Loans}
}

func ParseName(s string) (Name, bool) {
	for _, n := range Names() {
		if string(n) == strings.ToLower(strings.TrimSpace(s)) {
			return n, true
		}
	}
	return "", false
}

// Row is one rendered list item. Text is the visible text content, used for
// filtering and by the terminal front-end.
type Row struct {
	ID   string
	Text string
	HTML template.HTML
}

// Option feeds a selector of another form (loan book/member, active loans).
type Option struct {
	Value string
	Label string
}

type Stats struct {
	TotalBooks   int
	TotalMembers int
	ActiveLoans  int
	OverdueLoans int
}

// Panel is the rendered state of one view.
type Panel struct {
	View    Name
	Loaded  bool
	Rows    []Row
	Options []Option
	Stats   Stats
}

// HTML concatenates the rendered rows.
func (p Panel) HTML() template.HTML {
	var buf bytes.Buffer
	for _, r := range p.Rows {
		buf.WriteString(string(r.HTML))
	}
	return template.HTML(buf.String())
}

// Filter keeps the rows whose text contains term, case-insensitively.
// An empty term keeps everything.
func (p Panel) Filter(term string) []Row {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return p.Rows
	}
	rows := make([]Row, 0, len(p.Rows))
	for _, r := range p.Rows {
		if strings.Contains(strings.ToLower(r.Text), term) {
			rows = append(rows, r)
		}
	}
	return rows
}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
	NoticeInfo    NoticeKind = "info"
)

type Notice struct {
	Kind    NoticeKind
	Message string
}

type APIStatus string

const (
	StatusChecking APIStatus = "checking"
	StatusOnline   APIStatus = "online"
	StatusOffline  APIStatus = "offline"
)

// Board is the shared presentation surface. Writers replace whole panels;
// when two refreshes of the same view race, the last one to finish wins.
type Board struct {
	mu     sync.RWMutex
	panels map[Name]Panel
	active Name
	status APIStatus
	notice *Notice
}

func NewBoard() *Board {
	b := &Board{
		panels: make(map[Name]Panel, len(Names())),
		active: Dashboard,
		status: StatusChecking,
	}
	for _, n := range Names() {
		b.panels[n] = Panel{View: n}
	}
	return b
}

func (b *Board) Put(p Panel) {
	p.Loaded = true
	b.mu.Lock()
	b.panels[p.View] = p
	b.mu.Unlock()
}

func (b *Board) Panel(n Name) Panel {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.panels[n]
}

func (b *Board) Activate(n Name) {
	b.mu.Lock()
	b.active = n
	b.mu.Unlock()
}

func (b *Board) Active() Name {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.active
}

func (b *Board) SetStatus(s APIStatus) {
	b.mu.Lock()
	b.status = s
	b.mu.Unlock()
}

func (b *Board) Status() APIStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Notify replaces the pending notification.
func (b *Board) Notify(kind NoticeKind, msg string) {
	b.mu.Lock()
	b.notice = &Notice{Kind: kind, Message: msg}
	b.mu.Unlock()
}

// TakeNotice returns the pending notification and clears it; notifications
// are shown once.
func (b *Board) TakeNotice() (Notice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.notice == nil {
		return Notice{}, false
	}
	n := *b.notice
	b.notice = nil
	return n, true
}
