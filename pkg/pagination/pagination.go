package pagination

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Params holds page and sort parameters extracted from query strings.
type Params struct {
	Page    int       `json:"page"`
	PerPage int       `json:"per_page"`
	SortBy  string    `json:"sort_by,omitempty"`
	Order   Direction `json:"order,omitempty"`
}

// Sorting lists the sort fields a listing accepts. The first entry is the
// default.
type Sorting struct {
	Allowed      []string
	DefaultOrder Direction
}

// DefaultParams returns page 1 of DefaultPerPage items, ascending.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage, Order: Asc}
}

// Offset returns the number of rows to skip.
func (p Params) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// Normalize clamps out-of-range values back to defaults.
func (p Params) Normalize(s Sorting) Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 || p.PerPage > MaxPerPage {
		p.PerPage = DefaultPerPage
	}
	if len(s.Allowed) > 0 && !slices.Contains(s.Allowed, p.SortBy) {
		p.SortBy = s.Allowed[0]
	}
	if p.Order != Asc && p.Order != Desc {
		p.Order = s.DefaultOrder
		if p.Order == "" {
			p.Order = Asc
		}
	}
	return p
}

// FromRequest reads page, per_page, sort and order query parameters. Unknown
// sort fields fall back to the first allowed field. sort also accepts the
// "field,desc" form.
func FromRequest(r *http.Request, s Sorting) Params {
	q := r.URL.Query()
	p := Params{}

	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("per_page")); err == nil {
		p.PerPage = v
	}

	sort := q.Get("sort")
	if field, dir, ok := strings.Cut(sort, ","); ok {
		sort = field
		p.Order = Direction(strings.ToLower(dir))
	}
	p.SortBy = strings.ToLower(strings.TrimSpace(sort))
	if o := q.Get("order"); o != "" {
		p.Order = Direction(strings.ToLower(o))
	}

	return p.Normalize(s)
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult creates a paginated result. A nil data slice is reported as empty.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	if data == nil {
		data = []T{}
	}
	perPage := params.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	totalPages := (totalCount + perPage - 1) / perPage

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    perPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// Map converts the items of a result while keeping its page metadata.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	out := make([]U, len(r.Data))
	for i, v := range r.Data {
		out[i] = fn(v)
	}
	return Result[U]{
		Data:       out,
		TotalCount: r.TotalCount,
		Page:       r.Page,
		PerPage:    r.PerPage,
		TotalPages: r.TotalPages,
		HasNext:    r.HasNext,
		HasPrev:    r.HasPrev,
	}
}
