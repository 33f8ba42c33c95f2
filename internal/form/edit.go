package form

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"librarydesk/internal/entity"
)

type Kind string

const (
	KindBook   Kind = "book"
	KindMember Kind = "member"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindBook:
		return KindBook, nil
	case KindMember:
		return KindMember, nil
	default:
		return "", fmt.Errorf("unknown edit kind %q", s)
	}
}

// EditSession is one open edit of a book or member. It carries the target
// through the whole flow, so two edits never share state.
type EditSession struct {
	Kind   Kind
	ID     string
	Book   entity.Book
	Member entity.Member
}

// Title is the heading of the edit form.
func (s *EditSession) Title() string {
	if s.Kind == KindMember {
		return "Edit Member"
	}
	return "Edit Book"
}

// Values returns the current item as form values, used to prefill the form.
func (s *EditSession) Values() EditValues {
	switch s.Kind {
	case KindMember:
		return EditValues{Member: MemberValues{Name: s.Member.Name, Email: s.Member.Email}}
	default:
		return EditValues{Book: BookValues{
			ISBN:   s.Book.ISBN,
			Title:  s.Book.Title,
			Author: s.Book.Author,
			Copies: strconv.Itoa(s.Book.Copies),
		}}
	}
}

// EditValues holds the submitted edit form. Only the part matching the
// session kind is read.
type EditValues struct {
	Book   BookValues
	Member MemberValues
}

const msgLoadFailed = "Error loading data"

// OpenEdit loads the item to edit.
func (h *Handlers) OpenEdit(ctx context.Context, kind Kind, id string) (*EditSession, error) {
	s := &EditSession{Kind: kind, ID: id}
	var err error
	switch kind {
	case KindBook:
		s.Book, err = h.api.GetBook(ctx, id)
	case KindMember:
		s.Member, err = h.api.GetMember(ctx, id)
	default:
		err = fmt.Errorf("unknown edit kind %q", kind)
	}
	if err != nil {
		h.log.Warn("open edit failed", "kind", string(kind), "id", id, "err", err)
		return nil, h.reject(&Failure{Message: msgLoadFailed, Err: err})
	}
	return s, nil
}

// SubmitEdit sends the edit of s.
func (h *Handlers) SubmitEdit(ctx context.Context, s *EditSession, v EditValues) error {
	if s == nil {
		return fmt.Errorf("no edit in progress")
	}
	switch s.Kind {
	case KindBook:
		return h.UpdateBook(ctx, s.ID, v.Book)
	case KindMember:
		return h.UpdateMember(ctx, s.ID, v.Member)
	default:
		return fmt.Errorf("unknown edit kind %q", s.Kind)
	}
}
