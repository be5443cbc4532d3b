package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"

	"libraryapi/internal/entity"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

var errBadCursor = errors.New("invalid cursor")

// cursorData is the opaque position handed back to clients as next_cursor.
type cursorData struct {
	AfterID int64 `json:"after_id"`
}

func encodeCursor(afterID int64) string {
	if afterID <= 0 {
		return ""
	}
	b, err := jsoniter.Marshal(cursorData{AfterID: afterID})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(b)
}

func decodeCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, errBadCursor
	}
	var data cursorData
	if err := jsoniter.Unmarshal(decoded, &data); err != nil || data.AfterID <= 0 {
		return 0, errBadCursor
	}
	return data.AfterID, nil
}

type page struct {
	afterID int64
	limit   int
}

func parsePage(r *http.Request) (page, error) {
	afterID, err := decodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		return page{}, err
	}
	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return page{}, errors.New("invalid limit")
		}
		limit = min(n, maxPageSize)
	}
	return page{afterID: afterID, limit: limit}, nil
}

// paginateOrders returns the orders after p.afterID, at most p.limit of them,
// and the cursor for the next page if there is one. orders must be sorted by ID.
func paginateOrders(orders []entity.Order, p page) ([]entity.Order, string) {
	start := 0
	for start < len(orders) && orders[start].ID <= p.afterID {
		start++
	}
	rest := orders[start:]
	if len(rest) <= p.limit {
		return rest, ""
	}
	out := rest[:p.limit]
	return out, encodeCursor(out[len(out)-1].ID)
}
