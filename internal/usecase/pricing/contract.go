package pricing

import (
	"context"

	"github.com/nexusacademy/creditguard/internal/domain"
)

// CatalogReader provides read access to the tool-cost catalog.
type CatalogReader interface {
	List(ctx context.Context) ([]domain.ToolCost, error)
}

// CatalogWriter is implemented by catalogs that accept price updates. The
// resolver type-asserts for it so read-only catalogs still satisfy New.
type CatalogWriter interface {
	Upsert(ctx context.Context, tc domain.ToolCost) error
}
