package feed

import "github.com/rpupo63/blog-backend/models"

const (
	DefaultPageSize = 12
	MaxPageSize     = 100
)

type Page struct {
	Number     int `json:"page"`
	Size       int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate returns one page of records. page counts from 1; out of range
// pages are empty.
func Paginate(records []models.Blog, page, pageSize int) ([]models.Blog, Page) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	meta := Page{
		Number:     page,
		Size:       pageSize,
		Total:      len(records),
		TotalPages: (len(records) + pageSize - 1) / pageSize,
	}

	start := (page - 1) * pageSize
	if start >= len(records) {
		return []models.Blog{}, meta
	}
	end := min(start+pageSize, len(records))
	return records[start:end], meta
}
