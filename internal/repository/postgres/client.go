package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msomdec/client-registry/internal/domain"
)

// ClientRepository implements domain.ClientRepository using Postgres, with
// the character icon held in a JSONB column.
type ClientRepository struct {
	pool *pgxpool.Pool
}

var _ domain.ClientRepository = (*ClientRepository)(nil)

const clientColumns = `id, clave_cliente, nombre, celular, email, character_icon, created_at, updated_at`

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	icon, err := encodeIcon(client.CharacterIcon)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8)`,
		client.ID, client.ClaveCliente, client.Nombre, client.Celular, client.Email,
		icon, client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrClientExists
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *ClientRepository) GetByKey(ctx context.Context, key string) (*domain.Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE clave_cliente = $1`, key)
	return scanOne(row, "query client")
}

func (r *ClientRepository) DeleteByKey(ctx context.Context, key string) (*domain.Client, error) {
	row := r.pool.QueryRow(ctx, `DELETE FROM clients WHERE clave_cliente = $1 RETURNING `+clientColumns, key)
	return scanOne(row, "delete client")
}

func (r *ClientRepository) Update(ctx context.Context, upd domain.ClientUpdate) (*domain.Client, error) {
	var icon *string
	if upd.CharacterIcon != nil {
		encoded, err := encodeIcon(*upd.CharacterIcon)
		if err != nil {
			return nil, err
		}
		icon = &encoded
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE clients SET
			nombre = COALESCE($1, nombre),
			celular = COALESCE($2, celular),
			email = COALESCE($3, email),
			character_icon = COALESCE($4::jsonb, character_icon),
			updated_at = $5
		 WHERE clave_cliente = $6
		 RETURNING `+clientColumns,
		upd.Nombre, upd.Celular, upd.Email, icon, upd.UpdatedAt, upd.ClaveCliente,
	)
	return scanOne(row, "update client")
}

func (r *ClientRepository) ListPage(ctx context.Context, page int) ([]domain.Client, error) {
	if page < 1 {
		return nil, domain.ErrInvalidPage
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY seq LIMIT $1 OFFSET $2`,
		domain.ClientPageSize, (page-1)*domain.ClientPageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("query clients page: %w", err)
	}
	defer rows.Close()

	clients := make([]domain.Client, 0, domain.ClientPageSize)
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) TotalPages(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM clients").Scan(&count); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return domain.PageCount(count), nil
}

func scanOne(row pgx.Row, op string) (*domain.Client, error) {
	c, err := scanClient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func scanClient(row pgx.Row) (*domain.Client, error) {
	var (
		c    domain.Client
		icon []byte
	)
	if err := row.Scan(&c.ID, &c.ClaveCliente, &c.Nombre, &c.Celular, &c.Email, &icon, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(icon, &c.CharacterIcon); err != nil {
		return nil, fmt.Errorf("decode character icon for %s: %w", c.ClaveCliente, err)
	}
	return &c, nil
}

func encodeIcon(icon domain.CharacterIcon) (string, error) {
	if !icon.Persistable() {
		return "", fmt.Errorf("%w: %q icons must be uploaded before saving", domain.ErrInvalidCharacterIcon, icon.Kind())
	}
	b, err := json.Marshal(icon)
	if err != nil {
		return "", fmt.Errorf("encode character icon: %w", err)
	}
	return string(b), nil
}
