// Package pagination holds page request parsing and page result shaping for list endpoints.
package pagination

import (
	"net/url"
	"strconv"
)

// Config bounds page sizes.
type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Request is a normalized page request.
type Request struct {
	Page     int
	PageSize int
}

// Normalize clamps the request to cfg.
func (r *Request) Normalize(cfg Config) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	if cfg.MaxPageSize > 0 && r.PageSize > cfg.MaxPageSize {
		r.PageSize = cfg.MaxPageSize
	}
}

// Offset is the number of rows to skip.
func (r Request) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// FromQuery reads page and the page size from sizeParam. Unparseable values fall back to defaults.
func FromQuery(values url.Values, sizeParam string, cfg Config) Request {
	page, _ := strconv.Atoi(values.Get("page"))
	size, _ := strconv.Atoi(values.Get(sizeParam))
	req := Request{Page: page, PageSize: size}
	req.Normalize(cfg)
	return req
}

// Result is one page of items plus totals.
type Result[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewResult computes total pages; an empty result still reports one page.
func NewResult[T any](items []T, total int, req Request) Result[T] {
	pages := 1
	if req.PageSize > 0 && total > 0 {
		pages = (total + req.PageSize - 1) / req.PageSize
	}
	if items == nil {
		items = []T{}
	}
	return Result[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: pages,
	}
}
