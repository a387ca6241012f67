package validation

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// Patch is a decoded JSON object whose fields are applied one by one. Absent
// fields leave the destination untouched; an explicit null clears optional
// fields and is rejected for required ones.
type Patch map[string]json.RawMessage

// ParsePatch decodes a JSON object
func ParsePatch(data []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if p == nil {
		return Patch{}, nil
	}
	return p, nil
}

// Has reports whether field was sent
func (p Patch) Has(field string) bool {
	_, ok := p[field]
	return ok
}

// Fields returns the names of the fields that were sent, sorted
func (p Patch) Fields() []string {
	fields := make([]string, 0, len(p))
	for field := range p {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (p Patch) isNull(field string) bool {
	return bytes.Equal(bytes.TrimSpace(p[field]), []byte("null"))
}

func (p Patch) decode(field string, dst interface{}, message string) error {
	if err := json.Unmarshal(p[field], dst); err != nil {
		return NewFieldError(field, message)
	}
	return nil
}

// String applies a required string field
func (p Patch) String(field string, dst *string) error {
	if !p.Has(field) {
		return nil
	}
	if p.isNull(field) {
		return NewFieldError(field, field+" is required")
	}
	return p.decode(field, dst, "must be a string")
}

// OptionalString applies a nullable string field. Empty strings clear it too.
func (p Patch) OptionalString(field string, dst **string) error {
	if !p.Has(field) {
		return nil
	}
	if p.isNull(field) {
		*dst = nil
		return nil
	}
	var s string
	if err := p.decode(field, &s, "must be a string"); err != nil {
		return err
	}
	if s == "" {
		*dst = nil
		return nil
	}
	*dst = &s
	return nil
}

// NonNegativeInt applies a required integer field that may not be negative
func (p Patch) NonNegativeInt(field string, dst *int) error {
	if !p.Has(field) {
		return nil
	}
	if p.isNull(field) {
		return NewFieldError(field, field+" is required")
	}
	var n int
	if err := p.decode(field, &n, "must be an integer"); err != nil {
		return err
	}
	if n < 0 {
		return NewFieldError(field, "must not be negative")
	}
	*dst = n
	return nil
}

// OptionalNonNegativeInt applies a nullable non-negative integer field
func (p Patch) OptionalNonNegativeInt(field string, dst **int) error {
	if !p.Has(field) {
		return nil
	}
	if p.isNull(field) {
		*dst = nil
		return nil
	}
	var n int
	if err := p.decode(field, &n, "must be an integer"); err != nil {
		return err
	}
	if n < 0 {
		return NewFieldError(field, "must not be negative")
	}
	*dst = &n
	return nil
}

// OptionalDate applies a nullable date field given as RFC 3339 or YYYY-MM-DD.
// Empty strings clear it.
func (p Patch) OptionalDate(field string, dst **time.Time) error {
	if !p.Has(field) {
		return nil
	}
	if p.isNull(field) {
		*dst = nil
		return nil
	}
	var s string
	if err := p.decode(field, &s, "invalid date"); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*dst = nil
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return NewFieldError(field, "invalid date")
	}
	*dst = &t
	return nil
}

// StringSlice applies a list of strings; null resets it to empty
func (p Patch) StringSlice(field string, dst *[]string) error {
	if !p.Has(field) {
		return nil
	}
	if p.isNull(field) {
		*dst = []string{}
		return nil
	}
	var out []string
	if err := p.decode(field, &out, "must be a list of strings"); err != nil {
		return err
	}
	if out == nil {
		out = []string{}
	}
	*dst = out
	return nil
}

// PositiveIntSlice applies a non-empty list of positive integers
func (p Patch) PositiveIntSlice(field string, dst *[]int) error {
	if !p.Has(field) {
		return nil
	}
	var out []int
	if p.isNull(field) {
		return NewFieldError(field, field+" is required")
	}
	if err := p.decode(field, &out, "must be a list of integers"); err != nil {
		return err
	}
	if len(out) == 0 {
		return NewFieldError(field, "must not be empty")
	}
	for _, n := range out {
		if n <= 0 {
			return NewFieldError(field, "must contain positive integers")
		}
	}
	*dst = out
	return nil
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. The
// result is always UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
