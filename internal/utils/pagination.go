package utils

import (
	"strconv"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request
type Page struct {
	Number int
	Size   int
}

// ParsePage reads page and page_size query values. Missing or malformed
// values fall back to the first page of DefaultPageSize; oversized pages
// are clamped to MaxPageSize.
func ParsePage(pageStr, sizeStr string) Page {
	p := Page{Number: 1, Size: DefaultPageSize}
	if n, err := strconv.Atoi(pageStr); err == nil && n > 0 {
		p.Number = n
	}
	if n, err := strconv.Atoi(sizeStr); err == nil && n > 0 {
		p.Size = min(n, MaxPageSize)
	}
	return p
}

// Offset is the number of rows to skip for the page
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageInfo is the pagination metadata returned with list responses
type PageInfo struct {
	Page        int
	PageSize    int
	TotalPages  int
	HasNext     bool
	HasPrevious bool
}

// Describe computes the metadata of p for a result set of total rows.
// An empty result still has one page.
func (p Page) Describe(total int64) PageInfo {
	totalPages := 1
	if total > 0 {
		totalPages = int((total + int64(p.Size) - 1) / int64(p.Size))
	}
	return PageInfo{
		Page:        p.Number,
		PageSize:    p.Size,
		TotalPages:  totalPages,
		HasNext:     p.Number < totalPages,
		HasPrevious: p.Number > 1,
	}
}
