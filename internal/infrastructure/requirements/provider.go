// Package requirements resolves the document types an application must provide
// from the service configuration.
package requirements

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/schoolops/enrollment/internal/domain/enrollment"
	"github.com/schoolops/enrollment/internal/infrastructure/config"
)

// Wildcard matches any grade or category
const Wildcard = "*"

// ErrNoRequirements is returned when no rule matches a grade and category
var ErrNoRequirements = errors.New("no document requirements configured")

var _ enrollment.RequirementsProvider = (*ConfigProvider)(nil)

// ConfigProvider serves requirements from config.RequirementsConfig.
// Lookup order: grade + category, grade "*", default category, default "*".
type ConfigProvider struct {
	defaults map[string][]string
	grades   map[string]map[string][]string
}

// NewConfigProvider creates a provider over cfg. Keys are matched case-insensitively.
func NewConfigProvider(cfg config.RequirementsConfig) *ConfigProvider {
	p := &ConfigProvider{
		defaults: normalize(cfg.Default),
		grades:   make(map[string]map[string][]string, len(cfg.Grades)),
	}
	for grade, byCategory := range cfg.Grades {
		p.grades[strings.ToUpper(strings.TrimSpace(grade))] = normalize(byCategory)
	}
	return p
}

// RequiredDocumentTypes returns a fresh slice of required document types
func (p *ConfigProvider) RequiredDocumentTypes(_ context.Context, gradeLevel string, category enrollment.EnrollmentCategory) ([]string, error) {
	grade := strings.ToUpper(strings.TrimSpace(gradeLevel))
	cat := strings.ToUpper(strings.TrimSpace(string(category)))

	if byCategory, ok := p.grades[grade]; ok {
		if types, ok := lookup(byCategory, cat); ok {
			return types, nil
		}
	}
	if types, ok := lookup(p.defaults, cat); ok {
		return types, nil
	}
	return nil, fmt.Errorf("%w for grade %s, category %s", ErrNoRequirements, gradeLevel, category)
}

func lookup(byCategory map[string][]string, category string) ([]string, bool) {
	if types, ok := byCategory[category]; ok {
		return append([]string(nil), types...), true
	}
	if types, ok := byCategory[Wildcard]; ok {
		return append([]string(nil), types...), true
	}
	return nil, false
}

// normalize upper-cases keys and types, dropping blanks and duplicates
func normalize(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for key, types := range in {
		seen := make(map[string]struct{}, len(types))
		clean := make([]string, 0, len(types))
		for _, t := range types {
			t = strings.ToUpper(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			clean = append(clean, t)
		}
		out[strings.ToUpper(strings.TrimSpace(key))] = clean
	}
	return out
}
