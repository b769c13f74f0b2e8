package pagination

import (
	"fmt"
	"strings"
)

const (
	// DefaultSize is the standard page size when one is not provided.
	DefaultSize = 20
	// MaxSize caps how many rows any page query can request.
	MaxSize = 100
)

// Params holds offset pagination inputs from controllers or services.
type Params struct {
	Page int
	Size int
	Sort string
	Desc bool
}

// sortColumns maps API sort names to the columns they order by. Anything
// outside this table is rejected before it can reach a query.
var sortColumns = map[string]string{
	"createdAt":     "created_at",
	"updatedAt":     "updated_at",
	"title":         "title",
	"viewCount":     "view_count",
	"likeCount":     "like_count",
	"downloadCount": "download_count",
}

// DefaultSort orders newest rows first when the caller does not choose.
const DefaultSort = "createdAt"

// NormalizeSize enforces the configured default and maximum page sizes.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// NormalizePage clamps the page number to a 1-based index.
func NormalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

// Offset converts the normalized page and size into a row offset.
func (p Params) Offset() int {
	return (NormalizePage(p.Page) - 1) * NormalizeSize(p.Size)
}

// Limit returns the normalized page size.
func (p Params) Limit() int {
	return NormalizeSize(p.Size)
}

// OrderClause resolves the sort name against the allow-list and renders a
// SQL ORDER BY expression. Unknown names return an error instead of being
// passed through.
func (p Params) OrderClause() (string, error) {
	sort := strings.TrimSpace(p.Sort)
	if sort == "" {
		sort = DefaultSort
	}
	column, ok := sortColumns[sort]
	if !ok {
		return "", fmt.Errorf("unsupported sort field %q", sort)
	}
	direction := "ASC"
	if p.Desc {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s", column, direction), nil
}

// SortFields lists the accepted sort names, for error details.
func SortFields() []string {
	fields := make([]string, 0, len(sortColumns))
	for name := range sortColumns {
		fields = append(fields, name)
	}
	return fields
}
