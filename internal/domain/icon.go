package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"regexp"
)

// IconKind tags the variant held by a CharacterIcon.
type IconKind string

const (
	// IconBuiltin is one of the ten built-in avatars, indexed 0-9.
	IconBuiltin IconKind = "Icon"
	// IconHosted references an image already uploaded to the image host.
	IconHosted IconKind = "URL"
	// IconUpload is a raw file that still has to be uploaded. It never
	// reaches a repository.
	IconUpload IconKind = "File"
)

const (
	MinBuiltinIcon = 0
	MaxBuiltinIcon = 9
)

// HostedImage is the reference returned by the image host after an upload.
type HostedImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// ImageUpload is a raw binary payload received from a client. Either Data
// (with ContentType and FieldName) or Path must be set.
type ImageUpload struct {
	FieldName   string
	Filename    string
	ContentType string
	Data        []byte
	Path        string
}

// Bytes returns the payload, reading it from Path when it was spooled to disk.
func (u *ImageUpload) Bytes() ([]byte, error) {
	if u.Data != nil {
		return u.Data, nil
	}
	if u.Path == "" {
		return nil, fmt.Errorf("%w: empty upload", ErrInvalidCharacterIcon)
	}
	data, err := os.ReadFile(u.Path)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", u.Path, err)
	}
	return data, nil
}

func (u *ImageUpload) valid() bool {
	if u == nil {
		return false
	}
	if u.Data != nil && u.ContentType != "" && u.FieldName != "" {
		return true
	}
	return u.Path != ""
}

// CharacterIcon is a client's avatar. It is a closed union of IconBuiltin,
// IconHosted and IconUpload; the zero value holds no variant.
type CharacterIcon struct {
	kind   IconKind
	index  int
	hosted HostedImage
	upload *ImageUpload
}

var singleDigit = regexp.MustCompile(`^[0-9]$`)

// ParseCharacterIcon resolves raw request input into a CharacterIcon.
//
// A single-digit string or a whole number in 0-9 yields IconBuiltin, an
// id+url reference yields IconHosted and a file payload yields IconUpload.
// Anything else fails with ErrInvalidCharacterIcon.
func ParseCharacterIcon(raw any) (CharacterIcon, error) {
	switch v := raw.(type) {
	case string:
		if !singleDigit.MatchString(v) {
			return CharacterIcon{}, fmt.Errorf("%w: string must be a single digit (0-9), got %q", ErrInvalidCharacterIcon, v)
		}
		return NewBuiltinIcon(int(v[0] - '0'))
	case int:
		return NewBuiltinIcon(v)
	case int64:
		if v < MinBuiltinIcon || v > MaxBuiltinIcon {
			return CharacterIcon{}, fmt.Errorf("%w: number must be between 0 and 9, got %d", ErrInvalidCharacterIcon, v)
		}
		return NewBuiltinIcon(int(v))
	case float64:
		if v != math.Trunc(v) {
			return CharacterIcon{}, fmt.Errorf("%w: number must be a whole number, got %v", ErrInvalidCharacterIcon, v)
		}
		if v < MinBuiltinIcon || v > MaxBuiltinIcon {
			return CharacterIcon{}, fmt.Errorf("%w: number must be between 0 and 9, got %v", ErrInvalidCharacterIcon, v)
		}
		return NewBuiltinIcon(int(v))
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return CharacterIcon{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidCharacterIcon, v)
		}
		return ParseCharacterIcon(n)
	case HostedImage:
		return NewHostedIcon(v)
	case *HostedImage:
		if v == nil {
			break
		}
		return NewHostedIcon(*v)
	case map[string]any:
		id, idOK := v["id"].(string)
		url, urlOK := v["url"].(string)
		if idOK && urlOK {
			return NewHostedIcon(HostedImage{ID: id, URL: url})
		}
	case *ImageUpload:
		return NewUploadIcon(v)
	case ImageUpload:
		return NewUploadIcon(&v)
	case CharacterIcon:
		if v.kind != "" {
			return v, nil
		}
	}
	return CharacterIcon{}, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidCharacterIcon, raw)
}

func NewBuiltinIcon(index int) (CharacterIcon, error) {
	if index < MinBuiltinIcon || index > MaxBuiltinIcon {
		return CharacterIcon{}, fmt.Errorf("%w: number must be between 0 and 9, got %d", ErrInvalidCharacterIcon, index)
	}
	return CharacterIcon{kind: IconBuiltin, index: index}, nil
}

func NewHostedIcon(img HostedImage) (CharacterIcon, error) {
	if img.ID == "" || img.URL == "" {
		return CharacterIcon{}, fmt.Errorf("%w: hosted image needs both id and url", ErrInvalidCharacterIcon)
	}
	return CharacterIcon{kind: IconHosted, hosted: img}, nil
}

func NewUploadIcon(upload *ImageUpload) (CharacterIcon, error) {
	if !upload.valid() {
		return CharacterIcon{}, fmt.Errorf("%w: file payload is missing data, content type or field name", ErrInvalidCharacterIcon)
	}
	return CharacterIcon{kind: IconUpload, upload: upload}, nil
}

func (c CharacterIcon) Kind() IconKind { return c.kind }

func (c CharacterIcon) IsZero() bool { return c.kind == "" }

// Index returns the built-in avatar index.
func (c CharacterIcon) Index() (int, bool) {
	return c.index, c.kind == IconBuiltin
}

// Hosted returns the hosted image reference.
func (c CharacterIcon) Hosted() (HostedImage, bool) {
	return c.hosted, c.kind == IconHosted
}

// Upload returns the pending file payload.
func (c CharacterIcon) Upload() (*ImageUpload, bool) {
	return c.upload, c.kind == IconUpload
}

// Persistable reports whether the icon may be written to a repository.
func (c CharacterIcon) Persistable() bool {
	return c.kind == IconBuiltin || c.kind == IconHosted
}

var errNotPersistable = errors.New("character icon is not persistable")

// MarshalJSON encodes a built-in icon as a bare number and a hosted image
// as {"id","url"}. Upload and zero icons cannot be encoded.
func (c CharacterIcon) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case IconBuiltin:
		return json.Marshal(c.index)
	case IconHosted:
		return json.Marshal(c.hosted)
	default:
		return nil, fmt.Errorf("%w: kind %q", errNotPersistable, c.kind)
	}
}

func (c *CharacterIcon) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCharacterIcon, err)
	}
	icon, err := ParseCharacterIcon(raw)
	if err != nil {
		return err
	}
	if !icon.Persistable() {
		return fmt.Errorf("%w: kind %q", errNotPersistable, icon.kind)
	}
	*c = icon
	return nil
}
