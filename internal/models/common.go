package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// ListFilter captures common paging parameters. PageSize <= 0 requests an
// unpaged full list.
type ListFilter struct {
	Page     int
	PageSize int
}

// Normalize clamps paging values in place; a non-positive size keeps the
// unpaged marker.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize > 100 {
		f.PageSize = 100
	}
}

// Paged reports whether the filter requests a paged result.
func (f ListFilter) Paged() bool {
	return f.PageSize > 0
}
