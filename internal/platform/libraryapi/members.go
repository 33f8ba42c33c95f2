package libraryapi

import (
	"context"
	"fmt"
	"net/http"

	"librarydesk/internal/entity"
)

type MemberInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (c *Client) ListMembers(ctx context.Context) ([]entity.Member, error) {
	body, err := c.do(ctx, http.MethodGet, "/members", nil)
	if err != nil {
		return nil, err
	}
	var members []entity.Member
	if err := DecodeList(body, "members", &members); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

func (c *Client) GetMember(ctx context.Context, id string) (entity.Member, error) {
	body, err := c.do(ctx, http.MethodGet, resourcePath("members", id), nil)
	if err != nil {
		return entity.Member{}, err
	}
	var m entity.Member
	if err := DecodeItem(body, "member", &m); err != nil {
		return entity.Member{}, fmt.Errorf("get member %s: %w", id, err)
	}
	return m, nil
}

func (c *Client) CreateMember(ctx context.Context, in MemberInput) (entity.Member, error) {
	body, err := c.do(ctx, http.MethodPost, "/members", in)
	if err != nil {
		return entity.Member{}, err
	}
	return written[entity.Member](body, "member"), nil
}

func (c *Client) UpdateMember(ctx context.Context, id string, in MemberInput) (entity.Member, error) {
	body, err := c.do(ctx, http.MethodPut, resourcePath("members", id), in)
	if err != nil {
		return entity.Member{}, err
	}
	return written[entity.Member](body, "member"), nil
}

func (c *Client) DeleteMember(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, resourcePath("members", id), nil)
	return err
}
