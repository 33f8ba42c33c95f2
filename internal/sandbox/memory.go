package sandbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"librarydesk/internal/entity"
)

type bookRecord struct {
	id, isbn, title, author string
	copies                  int
}

type memberRecord struct {
	id, name, email string
	joinedAt        time.Time
}

type loanRecord struct {
	id, memberID, bookID string
	loanedAt, dueAt      time.Time
	returnedAt           *time.Time
}

// MemoryStore keeps everything in process memory, in insertion order.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	books   []*bookRecord
	members []*memberRecord
	loans   []*loanRecord
}

func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

func (s *MemoryStore) findBook(id string) (int, *bookRecord) {
	for i, b := range s.books {
		if b.id == id {
			return i, b
		}
	}
	return -1, nil
}

func (s *MemoryStore) findMember(id string) (int, *memberRecord) {
	for i, m := range s.members {
		if m.id == id {
			return i, m
		}
	}
	return -1, nil
}

func (s *MemoryStore) activeLoans(match func(*loanRecord) bool) int {
	n := 0
	for _, l := range s.loans {
		if l.returnedAt == nil && match(l) {
			n++
		}
	}
	return n
}

func (s *MemoryStore) bookEntity(b *bookRecord) entity.Book {
	loaned := s.activeLoans(func(l *loanRecord) bool { return l.bookID == b.id })
	return entity.Book{
		ID:              b.id,
		ISBN:            b.isbn,
		Title:           b.title,
		Author:          b.author,
		Copies:          b.copies,
		AvailableCopies: b.copies - loaned,
	}
}

func memberEntity(m *memberRecord) entity.Member {
	return entity.Member{ID: m.id, Name: m.name, Email: m.email, JoinedAt: m.joinedAt}
}

func (s *MemoryStore) loanEntity(l *loanRecord) entity.Loan {
	out := entity.Loan{
		ID:         l.id,
		Member:     entity.MemberRef{ID: l.memberID},
		Book:       entity.BookRef{ID: l.bookID},
		LoanedAt:   l.loanedAt,
		DueAt:      l.dueAt,
		ReturnedAt: l.returnedAt,
	}
	if _, m := s.findMember(l.memberID); m != nil {
		out.Member = entity.MemberRef{ID: m.id, Name: m.name, Email: m.email}
	}
	if _, b := s.findBook(l.bookID); b != nil {
		out.Book = entity.BookRef{ID: b.id, Title: b.title, Author: b.author}
	}
	return out
}

func (s *MemoryStore) ListBooks(_ context.Context) ([]entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Book, 0, len(s.books))
	for _, b := range s.books {
		out = append(out, s.bookEntity(b))
	}
	return out, nil
}

func (s *MemoryStore) GetBook(_ context.Context, id string) (entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, b := s.findBook(id)
	if b == nil {
		return entity.Book{}, ErrNotFound
	}
	return s.bookEntity(b), nil
}

func (s *MemoryStore) isbnTaken(isbn, exceptID string) bool {
	for _, b := range s.books {
		if b.id != exceptID && b.isbn == isbn {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateBook(_ context.Context, d BookDraft) (entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isbnTaken(d.ISBN, "") {
		return entity.Book{}, ErrDuplicate
	}
	b := &bookRecord{id: uuid.NewString(), isbn: d.ISBN, title: d.Title, author: d.Author, copies: d.Copies}
	s.books = append(s.books, b)
	return s.bookEntity(b), nil
}

func (s *MemoryStore) UpdateBook(_ context.Context, id string, d BookDraft) (entity.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, b := s.findBook(id)
	if b == nil {
		return entity.Book{}, ErrNotFound
	}
	if s.isbnTaken(d.ISBN, id) {
		return entity.Book{}, ErrDuplicate
	}
	if d.Copies < s.activeLoans(func(l *loanRecord) bool { return l.bookID == id }) {
		return entity.Book{}, ErrCopiesBelowLoaned
	}
	b.isbn, b.title, b.author, b.copies = d.ISBN, d.Title, d.Author, d.Copies
	return s.bookEntity(b), nil
}

func (s *MemoryStore) DeleteBook(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, b := s.findBook(id)
	if b == nil {
		return ErrNotFound
	}
	if s.activeLoans(func(l *loanRecord) bool { return l.bookID == id }) > 0 {
		return ErrHasActiveLoans
	}
	s.books = append(s.books[:i], s.books[i+1:]...)
	return nil
}

func (s *MemoryStore) ListMembers(_ context.Context) ([]entity.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, memberEntity(m))
	}
	return out, nil
}

func (s *MemoryStore) GetMember(_ context.Context, id string) (entity.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, m := s.findMember(id)
	if m == nil {
		return entity.Member{}, ErrNotFound
	}
	return memberEntity(m), nil
}

func (s *MemoryStore) emailTaken(email, exceptID string) bool {
	for _, m := range s.members {
		if m.id != exceptID && strings.EqualFold(m.email, email) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateMember(_ context.Context, d MemberDraft) (entity.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTaken(d.Email, "") {
		return entity.Member{}, ErrDuplicate
	}
	m := &memberRecord{id: uuid.NewString(), name: d.Name, email: d.Email, joinedAt: s.now().UTC()}
	s.members = append(s.members, m)
	return memberEntity(m), nil
}

func (s *MemoryStore) UpdateMember(_ context.Context, id string, d MemberDraft) (entity.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, m := s.findMember(id)
	if m == nil {
		return entity.Member{}, ErrNotFound
	}
	if s.emailTaken(d.Email, id) {
		return entity.Member{}, ErrDuplicate
	}
	m.name, m.email = d.Name, d.Email
	return memberEntity(m), nil
}

func (s *MemoryStore) DeleteMember(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, m := s.findMember(id)
	if m == nil {
		return ErrNotFound
	}
	if s.activeLoans(func(l *loanRecord) bool { return l.memberID == id }) > 0 {
		return ErrHasActiveLoans
	}
	s.members = append(s.members[:i], s.members[i+1:]...)
	return nil
}

func (s *MemoryStore) ListLoans(_ context.Context) ([]entity.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		out = append(out, s.loanEntity(l))
	}
	return out, nil
}

func (s *MemoryStore) CreateLoan(_ context.Context, d LoanDraft) (entity.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, m := s.findMember(d.MemberID); m == nil {
		return entity.Loan{}, ErrNotFound
	}
	_, b := s.findBook(d.BookID)
	if b == nil {
		return entity.Loan{}, ErrNotFound
	}
	if s.bookEntity(b).AvailableCopies <= 0 {
		return entity.Loan{}, ErrNoCopiesAvailable
	}
	l := &loanRecord{
		id:       uuid.NewString(),
		memberID: d.MemberID,
		bookID:   d.BookID,
		loanedAt: s.now().UTC(),
		dueAt:    d.DueAt.UTC(),
	}
	s.loans = append(s.loans, l)
	return s.loanEntity(l), nil
}

func (s *MemoryStore) ReturnLoan(_ context.Context, id string) (entity.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.loans {
		if l.id != id {
			continue
		}
		if l.returnedAt != nil {
			return entity.Loan{}, ErrAlreadyReturned
		}
		now := s.now().UTC()
		l.returnedAt = &now
		return s.loanEntity(l), nil
	}
	return entity.Loan{}, ErrNotFound
}
