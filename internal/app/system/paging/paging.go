// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// DefaultLimit is the page size used when the client does not ask for one.
const DefaultLimit = 20

// MaxLimit caps what a client may request per page.
const MaxLimit = 100

// Parse extracts 1-based "page" and "limit" query parameters, clamping
// them to sane values.
func Parse(r *http.Request) (page, limit int) {
	page = 1
	if v := query.Get(r, "page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			page = n
		}
	}
	limit = DefaultLimit
	if v := query.Get(r, "limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 1 {
			limit = n
		}
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Page is the wire shape of a paginated listing.
type Page struct {
	Items      any   `json:"items"`
	Total      int64 `json:"total"`
	PageNum    int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// Envelope wraps a result slice with its paging metadata.
func Envelope(items any, total int64, page, limit int) Page {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page{
		Items:      items,
		Total:      total,
		PageNum:    page,
		Limit:      limit,
		TotalPages: pages,
	}
}
