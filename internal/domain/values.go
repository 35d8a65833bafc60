package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ClientKey is the business identifier of a client (claveCliente).
// Numeric input is accepted and normalized to its decimal string form.
type ClientKey struct {
	value string
}

// NewClientKey validates a raw client key. It accepts strings and numbers.
func NewClientKey(raw any) (ClientKey, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return ClientKey{}, fmt.Errorf("%w: %v", ErrInvalidClientKey, v)
		}
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ClientKey{}, ErrInvalidClientKey
	default:
		return ClientKey{}, fmt.Errorf("%w: unsupported type %T", ErrInvalidClientKey, raw)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return ClientKey{}, ErrInvalidClientKey
	}
	return ClientKey{value: s}, nil
}

func (k ClientKey) String() string { return k.value }

// PersonName is a non-blank display name.
type PersonName struct {
	value string
}

func NewPersonName(raw string) (PersonName, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return PersonName{}, ErrInvalidName
	}
	return PersonName{value: s}, nil
}

func (n PersonName) String() string { return n.value }

// PhoneNumber holds exactly ten ASCII digits.
type PhoneNumber struct {
	value string
}

var phoneRegex = regexp.MustCompile(`^[0-9]{10}$`)

func NewPhoneNumber(raw string) (PhoneNumber, error) {
	s := strings.TrimSpace(raw)
	if !phoneRegex.MatchString(s) {
		return PhoneNumber{}, fmt.Errorf("%w: got %d characters", ErrInvalidPhone, utf8.RuneCountInString(s))
	}
	return PhoneNumber{value: s}, nil
}

func (p PhoneNumber) String() string { return p.value }

// AllowedEmailDomains is the business allow-list of mail providers.
// Addresses on any other domain are rejected even when well formed.
var AllowedEmailDomains = []string{
	"gmail.com",
	"yahoo.com",
	"outlook.com",
}

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// EmailAddress is a syntactically valid address on an allow-listed domain.
type EmailAddress struct {
	value string
}

func NewEmailAddress(raw string) (EmailAddress, error) {
	s := strings.TrimSpace(raw)
	if !emailRegex.MatchString(s) {
		return EmailAddress{}, fmt.Errorf("%w: [ %s ]", ErrInvalidEmail, raw)
	}

	_, domain, _ := strings.Cut(s, "@")
	domain = strings.ToLower(domain)
	for _, allowed := range AllowedEmailDomains {
		if domain == allowed {
			return EmailAddress{value: s}, nil
		}
	}
	return EmailAddress{}, fmt.Errorf("%w: [ %s ] domain %q is not accepted", ErrInvalidEmail, raw, domain)
}

func (e EmailAddress) String() string { return e.value }

// Username identifies a user account for display purposes.
type Username struct {
	value string
}

func NewUsername(raw string) (Username, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Username{}, ErrInvalidUsername
	}
	if utf8.RuneCountInString(s) > 50 {
		return Username{}, fmt.Errorf("%w: must be 50 characters or fewer", ErrInvalidUsername)
	}
	return Username{value: s}, nil
}

func (u Username) String() string { return u.value }

// MinPasswordLength is the shortest plaintext password accepted at registration.
const MinPasswordLength = 8

// Password is a plaintext password that satisfies the registration policy.
// It is only ever handed to a PasswordHasher and must not be persisted.
type Password struct {
	value string
}

func NewPassword(raw string) (Password, error) {
	if utf8.RuneCountInString(raw) < MinPasswordLength {
		return Password{}, fmt.Errorf("%w: must be at least %d characters", ErrInvalidPassword, MinPasswordLength)
	}
	if strings.TrimSpace(raw) == "" {
		return Password{}, ErrInvalidPassword
	}
	return Password{value: raw}, nil
}

func (p Password) String() string { return p.value }

// PageNumber is a 1-based page index known to be within [1, totalPages].
type PageNumber struct {
	value int
}

// NewPageNumber fails with ErrNoPages when there is nothing to page through
// and with ErrInvalidPage when requested falls outside [1, totalPages].
func NewPageNumber(requested, totalPages int) (PageNumber, error) {
	if totalPages < 1 {
		return PageNumber{}, ErrNoPages
	}
	if requested < 1 || requested > totalPages {
		return PageNumber{}, fmt.Errorf("%w: must be between 1 and %d", ErrInvalidPage, totalPages)
	}
	return PageNumber{value: requested}, nil
}

func (p PageNumber) Int() int { return p.value }
