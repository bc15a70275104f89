package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults on zero", 0, 0, 1, 20, 0},
		{"second page", 2, 10, 2, 10, 10},
		{"limit capped", 1, 500, 1, 100, 0},
		{"negative page", -3, 5, 1, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.page, tt.limit)
			if p.Page != tt.wantPage || p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("New(%d, %d) = %+v, want page=%d limit=%d offset=%d",
					tt.page, tt.limit, p, tt.wantPage, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query     string
		wantBy    string
		wantOrder string
	}{
		{"", "", SortDesc},
		{"sortBy=challan_date&sortOrder=ASC", "challan_date", SortAsc},
		{"sort_by=purchase_no&sort_order=asc", "purchase_no", SortAsc},
		{"sortBy=total_meters&sortOrder=sideways", "total_meters", SortDesc},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/api/purchases?"+tt.query, nil)

			s := ParseSort(c)
			if s.By != tt.wantBy || s.Order != tt.wantOrder {
				t.Errorf("ParseSort(%q) = %+v, want by=%q order=%q", tt.query, s, tt.wantBy, tt.wantOrder)
			}
		})
	}
}
