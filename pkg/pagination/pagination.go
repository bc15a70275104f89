package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// Params holds validated pagination parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Sort holds the requested sort field and direction
type Sort struct {
	By    string
	Order string
}

// Parse extracts and validates page/limit from query parameters
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	return New(page, limit)
}

// New normalises raw page/limit values
func New(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// ParseSort reads sortBy/sortOrder (camelCase as sent by the dashboard, snake_case accepted too).
// An unknown direction falls back to descending.
func ParseSort(c *gin.Context) Sort {
	by := c.Query("sortBy")
	if by == "" {
		by = c.Query("sort_by")
	}
	order := c.Query("sortOrder")
	if order == "" {
		order = c.Query("sort_order")
	}
	return NewSort(by, order)
}

// NewSort normalises a sort request
func NewSort(by, order string) Sort {
	order = strings.ToLower(strings.TrimSpace(order))
	if order != SortAsc {
		order = SortDesc
	}
	return Sort{By: strings.TrimSpace(by), Order: order}
}
