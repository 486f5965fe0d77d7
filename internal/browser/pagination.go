package browser

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/aura-webinar/viostream/internal/viostream"
)

// Paging defaults for the media browser.
const (
	DefaultPageSize   = 24
	DefaultSortColumn = viostream.SortCreatedDate
	DefaultSortOrder  = "desc"
)

var (
	allowedSortColumns = map[string]bool{viostream.SortCreatedDate: true, viostream.SortTitle: true}
	allowedSortOrders  = map[string]bool{"asc": true, "desc": true}
)

// Pagination is a validated media list request. Build it with ParsePagination.
type Pagination struct {
	PageSize   int
	PageNumber int
	SortColumn string
	SortOrder  string
	SearchTerm string
}

// DefaultPagination is the first page in newest-first order.
func DefaultPagination() Pagination {
	return Pagination{
		PageSize:   DefaultPageSize,
		PageNumber: 1,
		SortColumn: DefaultSortColumn,
		SortOrder:  DefaultSortOrder,
	}
}

// ParsePagination reads page_size, page, sort, order and search from q.
// Out-of-range or unknown values are coerced to a safe value, never rejected.
func ParsePagination(q url.Values) Pagination {
	p := DefaultPagination()

	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("page_size"))); err == nil {
		p.PageSize = clamp(n, 1, viostream.MaxPageSize)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("page"))); err == nil && n > 1 {
		p.PageNumber = n
	}
	if s := q.Get("sort"); allowedSortColumns[s] {
		p.SortColumn = s
	}
	if o := q.Get("order"); allowedSortOrders[o] {
		p.SortOrder = o
	}
	p.SearchTerm = q.Get("search")
	return p
}

// ListParams converts p into client parameters. SearchTerm is only set when non-empty.
func (p Pagination) ListParams() viostream.ListParams {
	return viostream.ListParams{
		SearchTerm: p.SearchTerm,
		SortColumn: p.SortColumn,
		SortOrder:  p.SortOrder,
		PageSize:   p.PageSize,
		PageNumber: p.PageNumber,
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
