package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/msomdec/client-registry/internal/domain"
)

// DefaultMaxImageSize bounds uploaded avatars.
const DefaultMaxImageSize = 10 * 1024 * 1024 // 10MB

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ImageStore implements domain.ImageHost on top of a FileStore. Uploaded
// images are publicly addressable at baseURL + "/" + id.
type ImageStore struct {
	files   domain.FileStore
	baseURL string
	maxSize int64
}

var _ domain.ImageHost = (*ImageStore)(nil)

func NewImageStore(files domain.FileStore, baseURL string, maxSize int64) *ImageStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	return &ImageStore{
		files:   files,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		maxSize: maxSize,
	}
}

// Upload validates the payload and stores it under namespace.
func (s *ImageStore) Upload(ctx context.Context, upload *domain.ImageUpload, namespace string) (domain.HostedImage, error) {
	data, err := upload.Bytes()
	if err != nil {
		return domain.HostedImage{}, fmt.Errorf("%w: %v", domain.ErrInvalidCharacterIcon, err)
	}
	if len(data) == 0 {
		return domain.HostedImage{}, fmt.Errorf("%w: empty file", domain.ErrInvalidCharacterIcon)
	}
	if int64(len(data)) > s.maxSize {
		return domain.HostedImage{}, fmt.Errorf("%w: image exceeds %d byte limit", domain.ErrInvalidCharacterIcon, s.maxSize)
	}

	// The sniffed type wins over whatever the client declared.
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return domain.HostedImage{}, fmt.Errorf("%w: only JPEG, PNG, GIF and WEBP images are accepted", domain.ErrInvalidCharacterIcon)
	}

	key := path.Join(cleanNamespace(namespace), uuid.NewString()+ext)
	if err := s.files.Save(ctx, key, contentType, data); err != nil {
		if errors.Is(err, domain.ErrExternalService) {
			return domain.HostedImage{}, err
		}
		return domain.HostedImage{}, fmt.Errorf("%w: store image: %v", domain.ErrExternalService, err)
	}

	slog.Info("image uploaded",
		"id", key,
		"filename", upload.Filename,
		"contentType", contentType,
		"size", len(data),
	)
	return domain.HostedImage{ID: key, URL: s.baseURL + "/" + key}, nil
}

// Delete removes a stored image. A missing image is reported as ErrNotFound.
func (s *ImageStore) Delete(ctx context.Context, id string) error {
	if err := s.files.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrExternalService) {
			return err
		}
		return fmt.Errorf("%w: delete image: %v", domain.ErrExternalService, err)
	}
	return nil
}

// Open returns the stored bytes and content type of an image.
func (s *ImageStore) Open(ctx context.Context, id string) ([]byte, string, error) {
	data, contentType, err := s.files.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// cleanNamespace keeps each path segment URL-safe so the stored key and the
// served path are identical.
func cleanNamespace(namespace string) string {
	segments := strings.Split(namespace, "/")
	kept := segments[:0]
	for _, seg := range segments {
		seg = strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
				return r
			default:
				return '_'
			}
		}, seg)
		if seg == "" || seg == "." || seg == ".." {
			continue
		}
		kept = append(kept, seg)
	}
	if len(kept) == 0 {
		return "images"
	}
	return strings.Join(kept, "/")
}
