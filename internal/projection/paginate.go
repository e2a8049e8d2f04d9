package projection

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 9

// Page is one slice of a longer list.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages"`
	TotalItems int  `json:"total_items"`
	HasPrev    bool `json:"has_prev"`
	HasNext    bool `json:"has_next"`
}

// Paginate returns the requested page. There is always at least one page;
// the page number is clamped into range.
func Paginate[T any](items []T, pageNumber, pageSize int) Page[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	n := len(items)
	totalPages := (n + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageNumber > totalPages {
		pageNumber = totalPages
	}
	start := (pageNumber - 1) * pageSize
	end := start + pageSize
	if end > n {
		end = n
	}
	pageItems := make([]T, 0, end-start)
	pageItems = append(pageItems, items[start:end]...)
	return Page[T]{
		Items:      pageItems,
		Page:       pageNumber,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalItems: n,
		HasPrev:    pageNumber > 1,
		HasNext:    pageNumber < totalPages,
	}
}
