package store

import (
	"encoding/base64"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// Page is a numbered page of a listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

func numberedPage[T any](items []T, total int64, page, pageSize int) *Page[T] {
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
	}
}

// KeysetPage is a slice of a newest-first listing. NextCursor resumes
// after the last item and is empty on the final page.
type KeysetPage[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
	HasMore    bool   `json:"has_more"`
}

// OrderCursor is the (created_at, id) position of an order in the
// newest-first ordering.
type OrderCursor struct {
	CreatedAt time.Time
	ID        int64
}

// cursorStart sorts after every real order.
var cursorStart = OrderCursor{
	CreatedAt: time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC),
	ID:        math.MaxInt64,
}

var errMalformedCursor = errors.New("malformed cursor")

// keysetPage trims rows fetched with limit+1 and points the cursor at the
// last row kept.
func keysetPage[T any](rows []T, limit int, position func(T) OrderCursor) *KeysetPage[T] {
	page := &KeysetPage[T]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.HasMore = true
	}
	if page.HasMore && len(page.Items) > 0 {
		page.NextCursor = EncodeCursor(position(page.Items[len(page.Items)-1]))
	}
	return page
}

// EncodeCursor packs the position as "<unix nanos>.<id>" in URL-safe base64.
func EncodeCursor(cursor OrderCursor) string {
	raw := strconv.FormatInt(cursor.CreatedAt.UnixNano(), 10) + "." + strconv.FormatInt(cursor.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor. The empty cursor starts at the newest
// order.
func DecodeCursor(encoded string) (OrderCursor, error) {
	if encoded == "" {
		return cursorStart, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return OrderCursor{}, errMalformedCursor
	}

	nanos, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return OrderCursor{}, errMalformedCursor
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return OrderCursor{}, errMalformedCursor
	}
	orderID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return OrderCursor{}, errMalformedCursor
	}

	return OrderCursor{CreatedAt: time.Unix(0, ts).UTC(), ID: orderID}, nil
}
