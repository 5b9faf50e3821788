// Package catalog resolves default categories for transactions that matched
// no merchant rule.
package catalog

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/rumor-ml/commons.systems/smsparse/internal/domain"
)

const (
	defaultExpiration = 30 * time.Minute
	cleanupInterval   = time.Hour
)

// Source supplies the default category for a direction. Implementations may
// be backed by remote configuration; the catalog caches their answers.
type Source interface {
	DefaultCategory(direction domain.Direction) (domain.Category, error)
}

// StaticSource is the built-in Source: income maps to the income category,
// expenses to the catch-all other.
type StaticSource struct{}

func (StaticSource) DefaultCategory(direction domain.Direction) (domain.Category, error) {
	if direction == domain.DirectionIncome {
		return domain.CategoryIncome, nil
	}
	return domain.CategoryOther, nil
}

// Catalog caches category lookups in front of a Source.
type Catalog struct {
	source Source
	cache  *gocache.Cache
}

// New creates a Catalog over the given source. A nil source falls back to
// StaticSource.
func New(source Source) *Catalog {
	if source == nil {
		source = StaticSource{}
	}
	return &Catalog{
		source: source,
		cache:  gocache.New(defaultExpiration, cleanupInterval),
	}
}

// DefaultCategoryFor returns the category to assign when no rule matched.
func (c *Catalog) DefaultCategoryFor(direction domain.Direction) (domain.Category, error) {
	key := string(direction)
	if cached, found := c.cache.Get(key); found {
		return cached.(domain.Category), nil
	}

	category, err := c.source.DefaultCategory(direction)
	if err != nil {
		return "", err
	}
	c.cache.Set(key, category, gocache.DefaultExpiration)
	return category, nil
}
