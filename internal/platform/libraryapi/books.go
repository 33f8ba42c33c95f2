package libraryapi

import (
	"context"
	"fmt"
	"net/http"

	"librarydesk/internal/entity"
)

// BookInput is the create/update payload for a book.
type BookInput struct {
	ISBN   string `json:"isbn"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Copies int    `json:"copies"`
}

func (c *Client) ListBooks(ctx context.Context) ([]entity.Book, error) {
	body, err := c.do(ctx, http.MethodGet, "/books", nil)
	if err != nil {
		return nil, err
	}
	var books []entity.Book
	if err := DecodeList(body, "books", &books); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

func (c *Client) GetBook(ctx context.Context, id string) (entity.Book, error) {
	body, err := c.do(ctx, http.MethodGet, resourcePath("books", id), nil)
	if err != nil {
		return entity.Book{}, err
	}
	var b entity.Book
	if err := DecodeItem(body, "book", &b); err != nil {
		return entity.Book{}, fmt.Errorf("get book %s: %w", id, err)
	}
	return b, nil
}

func (c *Client) CreateBook(ctx context.Context, in BookInput) (entity.Book, error) {
	body, err := c.do(ctx, http.MethodPost, "/books", in)
	if err != nil {
		return entity.Book{}, err
	}
	return written[entity.Book](body, "book"), nil
}

func (c *Client) UpdateBook(ctx context.Context, id string, in BookInput) (entity.Book, error) {
	body, err := c.do(ctx, http.MethodPut, resourcePath("books", id), in)
	if err != nil {
		return entity.Book{}, err
	}
	return written[entity.Book](body, "book"), nil
}

func (c *Client) DeleteBook(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, resourcePath("books", id), nil)
	return err
}
