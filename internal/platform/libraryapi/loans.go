package libraryapi

import (
	"context"
	"fmt"
	"net/http"

	"librarydesk/internal/entity"
)

// LoanInput is the create payload for a loan. DueAt is a calendar date
// formatted as 2006-01-02, the way the loan form submits it.
type LoanInput struct {
	MemberID string `json:"memberId"`
	BookID   string `json:"bookId"`
	DueAt    string `json:"dueAt"`
}

func (c *Client) ListLoans(ctx context.Context) ([]entity.Loan, error) {
	body, err := c.do(ctx, http.MethodGet, "/loans", nil)
	if err != nil {
		return nil, err
	}
	var loans []entity.Loan
	if err := DecodeList(body, "loans", &loans); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return loans, nil
}

func (c *Client) CreateLoan(ctx context.Context, in LoanInput) (entity.Loan, error) {
	body, err := c.do(ctx, http.MethodPost, "/loans", in)
	if err != nil {
		return entity.Loan{}, err
	}
	return written[entity.Loan](body, "loan"), nil
}

// ReturnLoan marks the loan as returned.
func (c *Client) ReturnLoan(ctx context.Context, id string) (entity.Loan, error) {
	body, err := c.do(ctx, http.MethodPatch, resourcePath("loans", id, "return"), nil)
	if err != nil {
		return entity.Loan{}, err
	}
	return written[entity.Loan](body, "loan"), nil
}
