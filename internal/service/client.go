package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/client-registry/internal/domain"
)

// ClientService orchestrates the client lifecycle: validation, duplicate
// detection, avatar upload and cleanup, and persistence.
type ClientService struct {
	clients domain.ClientRepository
	images  domain.ImageHost
	now     func() time.Time
}

func NewClientService(clients domain.ClientRepository, images domain.ImageHost) *ClientService {
	return &ClientService{
		clients: clients,
		images:  images,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateClientInput carries raw request fields. ClaveCliente may be a string
// or a number. CharacterIcon may be a digit, a number or an *ImageUpload.
type CreateClientInput struct {
	ClaveCliente  any
	Nombre        string
	Celular       string
	Email         string
	CharacterIcon any
}

// UpdateClientInput is a partial update. Empty strings and a nil icon leave
// the stored values unchanged.
type UpdateClientInput struct {
	ClaveCliente  string
	Nombre        string
	Celular       string
	Email         string
	CharacterIcon any
}

// ClientPage is one page of the client listing. Count is the number of
// clients on this page, not the global total.
type ClientPage struct {
	Page       int
	TotalPages int
	Clients    []domain.Client
	Count      int
}

func (s *ClientService) Create(ctx context.Context, in CreateClientInput) (*domain.Client, error) {
	key, err := domain.NewClientKey(in.ClaveCliente)
	if err != nil {
		return nil, err
	}
	name, err := domain.NewPersonName(in.Nombre)
	if err != nil {
		return nil, err
	}
	phone, err := domain.NewPhoneNumber(in.Celular)
	if err != nil {
		return nil, err
	}
	email, err := domain.NewEmailAddress(in.Email)
	if err != nil {
		return nil, err
	}
	icon, err := parseInputIcon(in.CharacterIcon)
	if err != nil {
		return nil, err
	}

	_, err = s.clients.GetByKey(ctx, key.String())
	switch {
	case err == nil:
		return nil, domain.ErrClientExists
	case !errors.Is(err, domain.ErrClientNotFound):
		return nil, fmt.Errorf("check client key: %w", err)
	}

	icon, uploaded, err := s.resolveIcon(ctx, icon, key)
	if err != nil {
		return nil, err
	}

	now := s.now()
	client := &domain.Client{
		ID:            uuid.NewString(),
		ClaveCliente:  key.String(),
		Nombre:        name.String(),
		Celular:       phone.String(),
		Email:         email.String(),
		CharacterIcon: icon,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		if uploaded {
			logOrphan(key, icon, err)
		}
		if errors.Is(err, domain.ErrClientExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create client: %w", err)
	}
	return client, nil
}

// Update applies a partial update. A new hosted avatar replaces the old one,
// which is deleted only after the update has been written.
func (s *ClientService) Update(ctx context.Context, in UpdateClientInput) (*domain.Client, error) {
	key, err := domain.NewClientKey(in.ClaveCliente)
	if err != nil {
		return nil, err
	}

	upd := domain.ClientUpdate{ClaveCliente: key.String()}
	if in.Nombre != "" {
		name, err := domain.NewPersonName(in.Nombre)
		if err != nil {
			return nil, err
		}
		upd.Nombre = ptr(name.String())
	}
	if in.Celular != "" {
		phone, err := domain.NewPhoneNumber(in.Celular)
		if err != nil {
			return nil, err
		}
		upd.Celular = ptr(phone.String())
	}
	if in.Email != "" {
		email, err := domain.NewEmailAddress(in.Email)
		if err != nil {
			return nil, err
		}
		upd.Email = ptr(email.String())
	}

	var icon domain.CharacterIcon
	if in.CharacterIcon != nil {
		if icon, err = parseInputIcon(in.CharacterIcon); err != nil {
			return nil, err
		}
	}

	existing, err := s.clients.GetByKey(ctx, key.String())
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get client: %w", err)
	}

	uploaded := false
	if !icon.IsZero() {
		if icon, uploaded, err = s.resolveIcon(ctx, icon, key); err != nil {
			return nil, err
		}
		upd.CharacterIcon = &icon
	}

	upd.UpdatedAt = s.now()
	updated, err := s.clients.Update(ctx, upd)
	if err != nil {
		if uploaded {
			logOrphan(key, icon, err)
		}
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update client: %w", err)
	}

	if upd.CharacterIcon != nil {
		old, wasHosted := existing.CharacterIcon.Hosted()
		if current, _ := updated.CharacterIcon.Hosted(); wasHosted && old.ID != current.ID {
			s.deleteImage(ctx, key, old.ID)
		}
	}
	return updated, nil
}

// Delete removes the client and then, best-effort, its hosted avatar.
func (s *ClientService) Delete(ctx context.Context, rawKey string) (*domain.Client, error) {
	key, err := domain.NewClientKey(rawKey)
	if err != nil {
		return nil, err
	}

	deleted, err := s.clients.DeleteByKey(ctx, key.String())
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete client: %w", err)
	}

	if hosted, ok := deleted.CharacterIcon.Hosted(); ok {
		s.deleteImage(ctx, key, hosted.ID)
	}
	return deleted, nil
}

func (s *ClientService) Get(ctx context.Context, rawKey string) (*domain.Client, error) {
	key, err := domain.NewClientKey(rawKey)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetByKey(ctx, key.String())
	if err != nil {
		if errors.Is(err, domain.ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get client: %w", err)
	}
	return client, nil
}

// GetPage returns one page of clients. The total page count is read fresh
// on every call.
func (s *ClientService) GetPage(ctx context.Context, requested int) (*ClientPage, error) {
	total, err := s.clients.TotalPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("count pages: %w", err)
	}
	page, err := domain.NewPageNumber(requested, total)
	if err != nil {
		return nil, err
	}

	clients, err := s.clients.ListPage(ctx, page.Int())
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return &ClientPage{
		Page:       page.Int(),
		TotalPages: total,
		Clients:    clients,
		Count:      len(clients),
	}, nil
}

// resolveIcon uploads a pending file and returns the hosted reference.
// Built-in icons pass through untouched.
func (s *ClientService) resolveIcon(ctx context.Context, icon domain.CharacterIcon, key domain.ClientKey) (domain.CharacterIcon, bool, error) {
	upload, ok := icon.Upload()
	if !ok {
		return icon, false, nil
	}

	hosted, err := s.images.Upload(ctx, upload, "clients/"+key.String())
	if err != nil {
		return domain.CharacterIcon{}, false, fmt.Errorf("upload character icon: %w", err)
	}
	resolved, err := domain.NewHostedIcon(hosted)
	if err != nil {
		return domain.CharacterIcon{}, false, fmt.Errorf("%w: image host returned %+v", domain.ErrExternalService, hosted)
	}
	return resolved, true, nil
}

func (s *ClientService) deleteImage(ctx context.Context, key domain.ClientKey, id string) {
	if err := s.images.Delete(ctx, id); err != nil {
		slog.Warn("hosted image not deleted",
			"claveCliente", key.String(),
			"imageID", id,
			"error", err,
		)
	}
}

// parseInputIcon accepts the icon shapes a caller may send. Hosted
// references are only ever produced by an upload.
func parseInputIcon(raw any) (domain.CharacterIcon, error) {
	icon, err := domain.ParseCharacterIcon(raw)
	if err != nil {
		return domain.CharacterIcon{}, err
	}
	if icon.Kind() == domain.IconHosted {
		return domain.CharacterIcon{}, fmt.Errorf("%w: send a number or an image file", domain.ErrInvalidCharacterIcon)
	}
	return icon, nil
}

func logOrphan(key domain.ClientKey, icon domain.CharacterIcon, cause error) {
	hosted, _ := icon.Hosted()
	slog.Warn("uploaded image orphaned by failed write",
		"claveCliente", key.String(),
		"imageID", hosted.ID,
		"error", cause,
	)
}

func ptr[T any](v T) *T { return &v }
