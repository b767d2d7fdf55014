package pagination

// Defaults and bounds for page-based list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Pagination carries the page query parameters shared by every list
// endpoint. Handlers bind it with ShouldBindQuery; the binding tags
// reject out-of-range values before they reach a repository.
type Pagination struct {
	Page     int `form:"page" binding:"min=1"`
	PageSize int `form:"page_size" binding:"min=1,max=100"`
}

// New returns pagination positioned on the first page with the default
// size. Query binding overwrites only the fields the client sent.
func New() *Pagination {
	return &Pagination{Page: DefaultPage, PageSize: DefaultPageSize}
}

// Offset returns the row offset of the current page.
func (p *Pagination) Offset() int {
	page := p.Page
	if page < 1 {
		page = DefaultPage
	}
	return (page - 1) * p.Limit()
}

// Limit returns the page size clamped to the allowed range.
func (p *Pagination) Limit() int {
	switch {
	case p.PageSize < 1:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	}
	return p.PageSize
}

// TotalPages returns how many pages the total row count spans.
func (p *Pagination) TotalPages(total int64) int {
	if total <= 0 {
		return 0
	}
	size := int64(p.Limit())
	return int((total + size - 1) / size)
}
