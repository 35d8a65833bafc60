package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/msomdec/client-registry/internal/domain"
)

// ClientRepository implements domain.ClientRepository using SQLite. The
// character icon is stored as a JSON document in a TEXT column.
type ClientRepository struct {
	db *sql.DB
}

var _ domain.ClientRepository = (*ClientRepository)(nil)

// NewClientRepository creates a new SQLite-backed ClientRepository.
func NewClientRepository(db *DB) *ClientRepository {
	return &ClientRepository{db: db.SqlDB}
}

const clientColumns = `id, clave_cliente, nombre, celular, email, character_icon, created_at, updated_at`

func (r *ClientRepository) Create(ctx context.Context, client *domain.Client) error {
	icon, err := encodeIcon(client.CharacterIcon)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID, client.ClaveCliente, client.Nombre, client.Celular, client.Email,
		icon, client.CreatedAt, client.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrClientExists
		}
		return fmt.Errorf("insert client: %w", err)
	}
	return nil
}

func (r *ClientRepository) GetByKey(ctx context.Context, key string) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+clientColumns+` FROM clients WHERE clave_cliente = ?`, key,
	)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("query client: %w", err)
	}
	return client, nil
}

// DeleteByKey removes the client and returns the removed record in a single
// statement, so a concurrent delete of the same key observes ErrClientNotFound.
func (r *ClientRepository) DeleteByKey(ctx context.Context, key string) (*domain.Client, error) {
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM clients WHERE clave_cliente = ? RETURNING `+clientColumns, key,
	)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("delete client: %w", err)
	}
	return client, nil
}

// Update overwrites only the fields set on upd. Absent fields keep their
// stored values and created_at is never written.
func (r *ClientRepository) Update(ctx context.Context, upd domain.ClientUpdate) (*domain.Client, error) {
	var icon any
	if upd.CharacterIcon != nil {
		encoded, err := encodeIcon(*upd.CharacterIcon)
		if err != nil {
			return nil, err
		}
		icon = encoded
	}

	row := r.db.QueryRowContext(ctx,
		`UPDATE clients SET
			nombre = COALESCE(?, nombre),
			celular = COALESCE(?, celular),
			email = COALESCE(?, email),
			character_icon = COALESCE(?, character_icon),
			updated_at = ?
		 WHERE clave_cliente = ?
		 RETURNING `+clientColumns,
		nullable(upd.Nombre), nullable(upd.Celular), nullable(upd.Email), icon,
		upd.UpdatedAt, upd.ClaveCliente,
	)
	client, err := scanClient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrClientNotFound
		}
		return nil, fmt.Errorf("update client: %w", err)
	}
	return client, nil
}

func (r *ClientRepository) ListPage(ctx context.Context, page int) ([]domain.Client, error) {
	if page < 1 {
		return nil, domain.ErrInvalidPage
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+clientColumns+` FROM clients ORDER BY seq LIMIT ? OFFSET ?`,
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
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM clients").Scan(&count); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return domain.PageCount(count), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(s rowScanner) (*domain.Client, error) {
	var (
		c    domain.Client
		icon string
	)
	if err := s.Scan(&c.ID, &c.ClaveCliente, &c.Nombre, &c.Celular, &c.Email, &icon, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(icon), &c.CharacterIcon); err != nil {
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

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
