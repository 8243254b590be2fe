package models

// Pagination describes an offset window over a list. Count is the size of the
// full list, not of the returned page.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Count  int `json:"count"`
}

// Paging bounds for list endpoints.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 200
)

// Window returns the [start, end) bounds of the page within a list of total items.
func (p Pagination) Window(total int) (int, int) {
	start := p.Offset
	if start > total {
		start = total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}
