package domain

import (
	"context"
	"time"
)

// ClientPageSize is the number of clients returned per listing page.
const ClientPageSize = 100

// Client is a customer record. ClaveCliente is the immutable business key;
// ID is an opaque generated identifier.
type Client struct {
	ID            string
	ClaveCliente  string
	Nombre        string
	Celular       string
	Email         string
	CharacterIcon CharacterIcon
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ClientUpdate is a partial update addressed by ClaveCliente. Nil fields are
// left unchanged. UpdatedAt is always written.
type ClientUpdate struct {
	ClaveCliente  string
	Nombre        *string
	Celular       *string
	Email         *string
	CharacterIcon *CharacterIcon
	UpdatedAt     time.Time
}

// ClientRepository persists clients. Implementations must enforce the
// uniqueness of ClaveCliente themselves and report violations as
// ErrClientExists; the service-level existence check is only a courtesy.
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	GetByKey(ctx context.Context, key string) (*Client, error)
	// DeleteByKey removes the client and returns the removed record in one
	// atomic step.
	DeleteByKey(ctx context.Context, key string) (*Client, error)
	Update(ctx context.Context, update ClientUpdate) (*Client, error)
	// ListPage returns the clients on a 1-based page of ClientPageSize
	// records, ordered by creation.
	ListPage(ctx context.Context, page int) ([]Client, error)
	// TotalPages is ceil(count / ClientPageSize), computed on every call.
	TotalPages(ctx context.Context) (int, error)
}

// PageCount is the number of ClientPageSize pages needed for total records.
func PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + ClientPageSize - 1) / ClientPageSize
}
