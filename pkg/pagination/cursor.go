// Package pagination pages through ordered in-memory lists with opaque cursors.
// A cursor records the position and id of the last item served, so a page
// stays anchored to that item when the list shifts between requests.
package pagination

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Cursor points just past the item with ID at Position.
type Cursor struct {
	Position int
	ID       string
}

// Encode serializes the cursor as base64("pos:{position}:id:{id}").
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("pos:%d:id:%s", c.Position, c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses an encoded cursor. An empty string is no cursor.
func DecodeCursor(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, nil
	}

	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	raw := string(data)
	if !strings.HasPrefix(raw, "pos:") {
		return nil, fmt.Errorf("invalid cursor format: missing pos prefix")
	}
	parts := strings.SplitN(raw[len("pos:"):], ":id:", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid cursor format: missing id segment")
	}

	pos, err := strconv.Atoi(parts[0])
	if err != nil || pos < 0 {
		return nil, fmt.Errorf("invalid cursor position %q", parts[0])
	}
	return &Cursor{Position: pos, ID: parts[1]}, nil
}

// ClampLimit keeps limit within [1, MaxLimit], using DefaultLimit for zero
// or negative values.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

type Params struct {
	Limit  int
	Cursor *Cursor
}

// Parse validates a first/after pair. first == 0 means DefaultLimit.
func Parse(first int, after string) (Params, error) {
	if first < 0 {
		return Params{}, fmt.Errorf("first must not be negative")
	}
	cursor, err := DecodeCursor(after)
	if err != nil {
		return Params{}, fmt.Errorf("invalid after cursor: %w", err)
	}
	return Params{Limit: ClampLimit(first), Cursor: cursor}, nil
}

type PageInfo struct {
	TotalCount  int     `json:"totalCount"`
	HasNextPage bool    `json:"hasNextPage"`
	EndCursor   *string `json:"endCursor,omitempty"`
}

// Slice returns the page of items following params.Cursor. The cursor's item
// is looked up by id first; when it is gone the stored position is used.
func Slice[T any](items []T, params Params, idOf func(T) string) ([]T, PageInfo) {
	start := resume(items, params.Cursor, idOf)
	limit := ClampLimit(params.Limit)

	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	page := items[start:end]

	info := PageInfo{
		TotalCount:  len(items),
		HasNextPage: end < len(items),
	}
	if len(page) > 0 {
		cursor := Cursor{Position: end - 1, ID: idOf(page[len(page)-1])}.Encode()
		info.EndCursor = &cursor
	}
	return page, info
}

func resume[T any](items []T, cursor *Cursor, idOf func(T) string) int {
	if cursor == nil {
		return 0
	}
	if cursor.Position < len(items) && idOf(items[cursor.Position]) == cursor.ID {
		return cursor.Position + 1
	}
	for i, item := range items {
		if idOf(item) == cursor.ID {
			return i + 1
		}
	}
	if cursor.Position >= len(items) {
		return len(items)
	}
	return cursor.Position + 1
}
