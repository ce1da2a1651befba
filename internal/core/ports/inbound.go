package ports

import (
	"context"

	"github.com/jangwonlee-rptly/heimdex-search/internal/core/domain"
)

// SceneSearcher is the inbound contract for ranked scene search.
type SceneSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResult, error)
}
