// Package pagination holds page/per_page arithmetic.
package pagination

import (
	"errors"
	"fmt"
	"math"
)

const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 200
)

// ErrInvalidPagination is returned for page < 1 or per_page < 1.
var ErrInvalidPagination = errors.New("invalid pagination")

// Meta describes one page of a result set.
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Validate fails fast on non-positive page numbers or sizes.
func Validate(page, perPage int) error {
	if page < 1 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPagination, page)
	}
	if perPage < 1 {
		return fmt.Errorf("%w: per_page must be >= 1, got %d", ErrInvalidPagination, perPage)
	}
	return nil
}

// Offset returns the number of items to skip before page.
func Offset(page, perPage int) int64 {
	return int64(page-1) * int64(perPage)
}

// TotalPages is ceil(total / perPage), and 0 when total is 0.
func TotalPages(total int64, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(perPage)))
}

// Paginate builds the Meta for a result set of total items.
func Paginate(total int64, page, perPage int) Meta {
	return Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: TotalPages(total, perPage),
	}
}

// Normalize applies defaults to zero values and caps perPage at MaxPerPage.
// Negative values are left untouched so Validate can reject them.
func Normalize(page, perPage int) (int, int) {
	if page == 0 {
		page = DefaultPage
	}
	if perPage == 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}
