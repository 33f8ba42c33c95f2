package entity

import (
	"bytes"
	"encoding/json"
	"time"
)

const (
	UnknownMember = "Unknown Member"
	UnknownBook   = "Unknown Book"
)

// MemberRef is the member side of a loan. The API sends either the bare
// member id or the populated member document.
type MemberRef struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

func (r *MemberRef) UnmarshalJSON(data []byte) error {
	type plain MemberRef
	var p plain
	id, populated, err := decodeRef(data, &p)
	if err != nil {
		return err
	}
	if populated {
		*r = MemberRef(p)
		return nil
	}
	*r = MemberRef{ID: id}
	return nil
}

func (r MemberRef) MarshalJSON() ([]byte, error) {
	if r.Name == "" && r.Email == "" {
		return json.Marshal(r.ID)
	}
	type plain MemberRef
	return json.Marshal(plain(r))
}

// DisplayName returns the member name, or a placeholder when the reference
// was not populated by the backend.
func (r MemberRef) DisplayName() string {
	if r.Name == "" {
		return UnknownMember
	}
	return r.Name
}

// BookRef is the book side of a loan, bare id or populated document.
type BookRef struct {
	ID     string `json:"_id"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

func (r *BookRef) UnmarshalJSON(data []byte) error {
	type plain BookRef
	var p plain
	id, populated, err := decodeRef(data, &p)
	if err != nil {
		return err
	}
	if populated {
		*r = BookRef(p)
		return nil
	}
	*r = BookRef{ID: id}
	return nil
}

func (r BookRef) MarshalJSON() ([]byte, error) {
	if r.Title == "" && r.Author == "" {
		return json.Marshal(r.ID)
	}
	type plain BookRef
	return json.Marshal(plain(r))
}

func (r BookRef) DisplayTitle() string {
	if r.Title == "" {
		return UnknownBook
	}
	return r.Title
}

// decodeRef decodes a reference that is either a JSON string (the id), null,
// or an object decoded into populated.
func decodeRef(data []byte, populated any) (string, bool, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", false, nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return "", false, err
		}
		return id, false, nil
	}
	if err := json.Unmarshal(trimmed, populated); err != nil {
		return "", false, err
	}
	return "", true, nil
}

// Loan records a book lent to a member. A nil ReturnedAt means the loan is
// still active.
type Loan struct {
	ID         string     `json:"_id"`
	Member     MemberRef  `json:"memberId"`
	Book       BookRef    `json:"bookId"`
	LoanedAt   time.Time  `json:"loanedAt"`
	DueAt      time.Time  `json:"dueAt"`
	ReturnedAt *time.Time `json:"returnedAt"`
}

func (l Loan) Active() bool {
	return l.ReturnedAt == nil
}

// OverdueAt reports whether the loan is active and its due time lies
// strictly before now. The result is a point-in-time label and must be
// recomputed for every render.
func (l Loan) OverdueAt(now time.Time) bool {
	return l.Active() && l.DueAt.Before(now)
}

// ActiveLoans keeps the loans that have not been returned, preserving order.
func ActiveLoans(loans []Loan) []Loan {
	active := make([]Loan, 0, len(loans))
	for _, l := range loans {
		if l.Active() {
			active = append(active, l)
		}
	}
	return active
}

func CountOverdue(loans []Loan, now time.Time) int {
	n := 0
	for _, l := range loans {
		if l.OverdueAt(now) {
			n++
		}
	}
	return n
}
