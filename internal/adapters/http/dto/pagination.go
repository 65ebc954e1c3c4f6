package dto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"
)

// Page size bounds for GET /api/v1/quotes.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Cursor errors.
var (
	// ErrInvalidCursor is returned when a cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrStaleCursor is returned for a cursor issued against an earlier
	// fetch of the quote page.
	ErrStaleCursor = errors.New("cursor refers to a previous fetch")
)

// PaginationRequest holds the paging query parameters.
type PaginationRequest struct {
	// Cursor is the NextCursor of a previous response. Empty for the first page.
	Cursor string `form:"cursor"`

	Limit int `form:"limit" validate:"omitempty,gte=1,lte=100"`
}

// GetLimit returns the limit with defaults applied.
func (p *PaginationRequest) GetLimit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}

	return min(p.Limit, MaxLimit)
}

// Offset resolves the cursor to a position in the collection fetched at
// generation. An empty cursor is offset 0.
func (p *PaginationRequest) Offset(generation string) (int, error) {
	if p.Cursor == "" {
		return 0, nil
	}

	data, err := DecodeCursor(p.Cursor)
	if err != nil {
		return 0, err
	}

	if data.Generation != generation {
		return 0, ErrStaleCursor
	}

	return data.Offset, nil
}

// CursorData is the decoded form of a page cursor. Quotes have no identity of
// their own, so a cursor is a position within one fetch.
type CursorData struct {
	Offset     int    `json:"o"`
	Generation string `json:"g"`
}

// EncodeCursor encodes cursor data to an opaque URL-safe string.
func EncodeCursor(data CursorData) string {
	raw, err := json.Marshal(data)
	if err != nil {
		return ""
	}

	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(encoded string) (CursorData, error) {
	var data CursorData

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return data, ErrInvalidCursor
	}

	if err := json.Unmarshal(raw, &data); err != nil || data.Offset < 0 {
		return CursorData{}, ErrInvalidCursor
	}

	return data, nil
}

// Paginate returns the page of items starting at offset, and the cursor of
// the next page ("" on the last page).
func Paginate[T any](items []T, offset, limit int, generation string) ([]T, string) {
	if offset >= len(items) {
		return []T{}, ""
	}

	end := min(offset+limit, len(items))
	if end == len(items) {
		return items[offset:end], ""
	}

	return items[offset:end], EncodeCursor(CursorData{Offset: end, Generation: generation})
}

// Generation identifies one fetch by its timestamp.
func Generation(fetchedAtUnixNano int64) string {
	return strconv.FormatInt(fetchedAtUnixNano, 36)
}
