package persistence

import (
	"maps"
	"slices"
	"strings"

	"github.com/schoolops/enrollment/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// columnSet whitelists the columns a list query may touch. Anything else in a
// filter is dropped rather than interpolated.
type columnSet map[string]bool

// applicationSortColumns are the reviewer queue sort keys
var applicationSortColumns = columnSet{
	"created_at":        true,
	"updated_at":        true,
	"confirmation_code": true,
	"last_name":         true,
	"grade_level":       true,
	"academic_period":   true,
	"status":            true,
}

// applicationMatchColumns are the reviewer queue exact-match filters
var applicationMatchColumns = columnSet{
	"status":          true,
	"grade_level":     true,
	"category":        true,
	"academic_period": true,
}

// pick returns field when whitelisted, otherwise fallback
func (c columnSet) pick(field, fallback string) string {
	field = strings.TrimSpace(field)
	if c[field] {
		return field
	}
	return fallback
}

// whereEquals adds one equality condition per whitelisted column, in column order
func (c columnSet) whereEquals(query *gorm.DB, equals map[string]string) *gorm.DB {
	for _, column := range slices.Sorted(maps.Keys(equals)) {
		if !c[column] || equals[column] == "" {
			continue
		}
		query = query.Where(clause.Eq{Column: clause.Column{Name: column}, Value: equals[column]})
	}
	return query
}

// orderBy sorts by the requested column, breaking ties by newest first
func orderBy(query *gorm.DB, filter shared.Filter, sortable columnSet) *gorm.DB {
	column := sortable.pick(filter.OrderBy, "created_at")
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: !filter.Ascending()})
	if column != "created_at" {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true})
	}
	return query
}

// paginate limits the query to the filter's page
func paginate(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if !filter.Paged() {
		return query
	}
	return query.Offset(filter.Offset()).Limit(filter.PageSize)
}
