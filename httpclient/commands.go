package httpclient

import (
	"context"
	"net/http"
	"net/url"

	"prism-sync/domain"
)

func cardPath(id string) string  { return "/api/cards/" + url.PathEscape(id) }
func boardPath(id string) string { return "/api/boards/" + url.PathEscape(id) }

func (c *Client) CreateCard(ctx context.Context, draft domain.CardDraft) (domain.Card, error) {
	var out domain.Card
	err := c.do(ctx, http.MethodPost, "/api/cards", "/api/cards", draft, &out)
	return out, err
}

func (c *Client) UpdateCard(ctx context.Context, id string, patch domain.CardPatch) (domain.Card, error) {
	var out domain.Card
	err := c.do(ctx, http.MethodPatch, "/api/cards/{id}", cardPath(id), patch, &out)
	return out, err
}

// MoveCard persists a stage and position change.
func (c *Client) MoveCard(ctx context.Context, id string, to domain.Placement) (domain.Card, error) {
	var out domain.Card
	err := c.do(ctx, http.MethodPost, "/api/cards/{id}/move", cardPath(id)+"/move", to, &out)
	return out, err
}

func (c *Client) DeleteCard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/cards/{id}", cardPath(id), nil, nil)
}

// ListCards fetches every card of a board.
func (c *Client) ListCards(ctx context.Context, boardID string) ([]domain.Card, error) {
	var out []domain.Card
	err := c.do(ctx, http.MethodGet, "/api/boards/{id}/cards", boardPath(boardID)+"/cards", nil, &out)
	return out, err
}

func (c *Client) ListBoards(ctx context.Context) ([]domain.Board, error) {
	var out []domain.Board
	err := c.do(ctx, http.MethodGet, "/api/boards", "/api/boards", nil, &out)
	return out, err
}

func (c *Client) CreateBoard(ctx context.Context, name string) (domain.Board, error) {
	var out domain.Board
	body := struct {
		Name string `json:"name"`
	}{Name: name}
	err := c.do(ctx, http.MethodPost, "/api/boards", "/api/boards", body, &out)
	return out, err
}

func (c *Client) UpdateBoard(ctx context.Context, id string, patch domain.BoardPatch) (domain.Board, error) {
	var out domain.Board
	err := c.do(ctx, http.MethodPatch, "/api/boards/{id}", boardPath(id), patch, &out)
	return out, err
}

// ReorderBoard moves a board to a new ordinal position.
func (c *Client) ReorderBoard(ctx context.Context, id string, position float64) (domain.Board, error) {
	var out domain.Board
	body := struct {
		Position float64 `json:"position"`
	}{Position: position}
	err := c.do(ctx, http.MethodPost, "/api/boards/{id}/reorder", boardPath(id)+"/reorder", body, &out)
	return out, err
}

func (c *Client) DeleteBoard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/boards/{id}", boardPath(id), nil, nil)
}
