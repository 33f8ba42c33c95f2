package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"librarydesk/internal/entity"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresStore(db *pgxpool.Pool, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

const bookColumns = `
	SELECT b.id, b.isbn, b.title, b.author, b.copies,
	       b.copies - (SELECT COUNT(*) FROM loans l WHERE l.book_id = b.id AND l.returned_at IS NULL)
	FROM books b`

func scanBook(row pgx.Row) (entity.Book, error) {
	var b entity.Book
	err := row.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Copies, &b.AvailableCopies)
	return b, err
}

func (s *PostgresStore) ListBooks(ctx context.Context) ([]entity.Book, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.Query(ctx, bookColumns+` ORDER BY b.created_at, b.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetBook(ctx context.Context, id string) (entity.Book, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(s.db.QueryRow(ctx, bookColumns+` WHERE b.id = $1`, id))
	if err != nil {
		return entity.Book{}, mapErr(err)
	}
	return b, nil
}

func (s *PostgresStore) CreateBook(ctx context.Context, d BookDraft) (entity.Book, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	id := uuid.NewString()
	_, err := s.db.Exec(ctx,
		`INSERT INTO books (id, isbn, title, author, copies) VALUES ($1, $2, $3, $4, $5)`,
		id, d.ISBN, d.Title, d.Author, d.Copies)
	if err != nil {
		return entity.Book{}, mapErr(err)
	}
	return entity.Book{ID: id, ISBN: d.ISBN, Title: d.Title, Author: d.Author, Copies: d.Copies, AvailableCopies: d.Copies}, nil
}

func (s *PostgresStore) UpdateBook(ctx context.Context, id string, d BookDraft) (entity.Book, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var out entity.Book
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var loaned int
		err := tx.QueryRow(ctx,
			`SELECT COUNT(l.id) FROM books b
			 LEFT JOIN loans l ON l.book_id = b.id AND l.returned_at IS NULL
			 WHERE b.id = $1
			 GROUP BY b.id`, id).Scan(&loaned)
		if err != nil {
			return err
		}
		if d.Copies < loaned {
			return ErrCopiesBelowLoaned
		}
		if _, err := tx.Exec(ctx,
			`UPDATE books SET isbn = $2, title = $3, author = $4, copies = $5, updated_at = NOW() WHERE id = $1`,
			id, d.ISBN, d.Title, d.Author, d.Copies); err != nil {
			return err
		}
		out = entity.Book{ID: id, ISBN: d.ISBN, Title: d.Title, Author: d.Author, Copies: d.Copies, AvailableCopies: d.Copies - loaned}
		return nil
	})
	if err != nil {
		return entity.Book{}, mapErr(err)
	}
	return out, nil
}

func (s *PostgresStore) deleteWithoutActiveLoans(ctx context.Context, table, column, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return mapErr(pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var active int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM loans WHERE `+column+` = $1 AND returned_at IS NULL`, id).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return ErrHasActiveLoans
		}
		tag, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}))
}

func (s *PostgresStore) DeleteBook(ctx context.Context, id string) error {
	return s.deleteWithoutActiveLoans(ctx, "books", "book_id", id)
}

const memberColumns = `SELECT id, name, email, joined_at FROM members`

func scanMember(row pgx.Row) (entity.Member, error) {
	var m entity.Member
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.JoinedAt)
	m.JoinedAt = m.JoinedAt.UTC()
	return m, err
}

func (s *PostgresStore) ListMembers(ctx context.Context) ([]entity.Member, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.Query(ctx, memberColumns+` ORDER BY joined_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetMember(ctx context.Context, id string) (entity.Member, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	m, err := scanMember(s.db.QueryRow(ctx, memberColumns+` WHERE id = $1`, id))
	if err != nil {
		return entity.Member{}, mapErr(err)
	}
	return m, nil
}

func (s *PostgresStore) CreateMember(ctx context.Context, d MemberDraft) (entity.Member, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	m, err := scanMember(s.db.QueryRow(ctx,
		`INSERT INTO members (id, name, email) VALUES ($1, $2, $3) RETURNING id, name, email, joined_at`,
		uuid.NewString(), d.Name, d.Email))
	if err != nil {
		return entity.Member{}, mapErr(err)
	}
	return m, nil
}

func (s *PostgresStore) UpdateMember(ctx context.Context, id string, d MemberDraft) (entity.Member, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	m, err := scanMember(s.db.QueryRow(ctx,
		`UPDATE members SET name = $2, email = $3 WHERE id = $1 RETURNING id, name, email, joined_at`,
		id, d.Name, d.Email))
	if err != nil {
		return entity.Member{}, mapErr(err)
	}
	return m, nil
}

func (s *PostgresStore) DeleteMember(ctx context.Context, id string) error {
	return s.deleteWithoutActiveLoans(ctx, "members", "member_id", id)
}

const loanColumns = `
	SELECT l.id, l.member_id, m.name, m.email, l.book_id, b.title, b.author,
	       l.loaned_at, l.due_at, l.returned_at
	FROM loans l
	LEFT JOIN members m ON m.id = l.member_id
	LEFT JOIN books b ON b.id = l.book_id`

func scanLoan(row pgx.Row) (entity.Loan, error) {
	var (
		l                     entity.Loan
		memberID, name, email *string
		bookID, title, author *string
		returnedAt            *time.Time
	)
	if err := row.Scan(&l.ID, &memberID, &name, &email, &bookID, &title, &author,
		&l.LoanedAt, &l.DueAt, &returnedAt); err != nil {
		return entity.Loan{}, err
	}
	l.Member = entity.MemberRef{ID: deref(memberID), Name: deref(name), Email: deref(email)}
	l.Book = entity.BookRef{ID: deref(bookID), Title: deref(title), Author: deref(author)}
	l.LoanedAt = l.LoanedAt.UTC()
	l.DueAt = l.DueAt.UTC()
	if returnedAt != nil {
		t := returnedAt.UTC()
		l.ReturnedAt = &t
	}
	return l, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *PostgresStore) ListLoans(ctx context.Context) ([]entity.Loan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	rows, err := s.db.Query(ctx, loanColumns+` ORDER BY l.loaned_at, l.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.Loan{}
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateLoan locks the book row so concurrent loans cannot both take the
// last copy.
func (s *PostgresStore) CreateLoan(ctx context.Context, d LoanDraft) (entity.Loan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id := uuid.NewString()
	err := pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM members WHERE id = $1)`, d.MemberID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		var copies int
		if err := tx.QueryRow(ctx, `SELECT copies FROM books WHERE id = $1 FOR UPDATE`, d.BookID).Scan(&copies); err != nil {
			return err
		}
		var loaned int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM loans WHERE book_id = $1 AND returned_at IS NULL`, d.BookID).Scan(&loaned); err != nil {
			return err
		}
		if copies-loaned <= 0 {
			return ErrNoCopiesAvailable
		}

		_, err := tx.Exec(ctx,
			`INSERT INTO loans (id, member_id, book_id, due_at) VALUES ($1, $2, $3, $4)`,
			id, d.MemberID, d.BookID, d.DueAt)
		return err
	})
	if err != nil {
		return entity.Loan{}, mapErr(err)
	}
	return s.getLoan(ctx, id)
}

func (s *PostgresStore) getLoan(ctx context.Context, id string) (entity.Loan, error) {
	l, err := scanLoan(s.db.QueryRow(ctx, loanColumns+` WHERE l.id = $1`, id))
	if err != nil {
		return entity.Loan{}, mapErr(err)
	}
	return l, nil
}

func (s *PostgresStore) ReturnLoan(ctx context.Context, id string) (entity.Loan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.db.Exec(ctx, `UPDATE loans SET returned_at = NOW() WHERE id = $1 AND returned_at IS NULL`, id)
	if err != nil {
		return entity.Loan{}, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.getLoan(ctx, id); err != nil {
			return entity.Loan{}, err
		}
		return entity.Loan{}, ErrAlreadyReturned
	}
	return s.getLoan(ctx, id)
}
