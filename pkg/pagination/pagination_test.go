package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var orderSorting = Sorting{Allowed: []string{"created_at", "total_amount", "status"}, DefaultOrder: Asc}

func TestFromRequest_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/orders", nil)
	p := FromRequest(r, orderSorting)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, Asc, p.Order)
	assert.Equal(t, 0, p.Offset())
}

func TestFromRequest_Explicit(t *testing.T) {
	r := httptest.NewRequest("GET", "/orders?page=3&per_page=10&sort=total_amount&order=DESC", nil)
	p := FromRequest(r, orderSorting)

	assert.Equal(t, 3, p.Page)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, "total_amount", p.SortBy)
	assert.Equal(t, Desc, p.Order)
	assert.Equal(t, 20, p.Offset())
}

func TestFromRequest_CommaSortForm(t *testing.T) {
	r := httptest.NewRequest("GET", "/orders?sort=status,desc", nil)
	p := FromRequest(r, orderSorting)

	assert.Equal(t, "status", p.SortBy)
	assert.Equal(t, Desc, p.Order)
}

func TestFromRequest_RejectsUnknownSortAndBadValues(t *testing.T) {
	r := httptest.NewRequest("GET", "/orders?page=-2&per_page=1000&sort=customer_email;drop&order=sideways", nil)
	p := FromRequest(r, orderSorting)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPerPage, p.PerPage)
	assert.Equal(t, "created_at", p.SortBy)
	assert.Equal(t, Asc, p.Order)
}

func TestNewResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		page      int
		perPage   int
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"empty", 0, 1, 20, 0, false, false},
		{"exact fit", 40, 1, 20, 2, true, false},
		{"remainder", 41, 3, 20, 3, false, true},
		{"middle", 100, 2, 10, 10, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult[int](nil, tt.total, Params{Page: tt.page, PerPage: tt.perPage})
			assert.NotNil(t, r.Data)
			assert.Equal(t, tt.wantPages, r.TotalPages)
			assert.Equal(t, tt.wantNext, r.HasNext)
			assert.Equal(t, tt.wantPrev, r.HasPrev)
		})
	}
}

func TestMap_KeepsMetadata(t *testing.T) {
	r := NewResult([]int{1, 2}, 12, Params{Page: 2, PerPage: 2})
	m := Map(r, func(v int) string { return string(rune('a' + v)) })

	assert.Equal(t, []string{"b", "c"}, m.Data)
	assert.Equal(t, 12, m.TotalCount)
	assert.Equal(t, 6, m.TotalPages)
	assert.True(t, m.HasPrev)
}
