package shared

import "strings"

// Filter is a paged list query. Equals holds exact column matches that the
// repository checks against its own whitelist.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Equals   map[string]string
}

// DefaultFilter returns the first page of 20, newest first
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Equals:   map[string]string{},
	}
}

// Where adds an exact match. Empty values are ignored so optional query
// parameters can be passed through unchecked.
func (f Filter) Where(column, value string) Filter {
	if value == "" {
		return f
	}
	equals := make(map[string]string, len(f.Equals)+1)
	for k, v := range f.Equals {
		equals[k] = v
	}
	equals[column] = value
	f.Equals = equals
	return f
}

// Paged reports whether the query should be limited
func (f Filter) Paged() bool {
	return f.Page > 0 && f.PageSize > 0
}

// Offset returns the row offset of the requested page
func (f Filter) Offset() int {
	if f.Page <= 1 || f.PageSize <= 0 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Ascending reports whether results are ordered oldest first
func (f Filter) Ascending() bool {
	return strings.EqualFold(f.OrderDir, "asc")
}
