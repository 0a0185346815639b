// Package catalog manages the category, subcategory and product hierarchy.
//
// Deactivation cascades downward inside one atomic unit: switching off a category
// switches off its subcategories and their products, switching off a subcategory
// switches off its products. Activation never cascades.
package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/suteetoe/storecore/internal/repository"
	"github.com/suteetoe/storecore/internal/storage"
	"github.com/suteetoe/storecore/pkg/logger"
	"github.com/suteetoe/storecore/prometheus"
)

// Service is the catalog component
type Service struct {
	store   repository.Store
	files   storage.FileStore
	metrics *prometheus.Metrics
}

// NewService wires the catalog to its persistence and file-storage collaborators
func NewService(store repository.Store, files storage.FileStore, metrics *prometheus.Metrics) *Service {
	if files == nil {
		files = storage.Nop{}
	}
	return &Service{store: store, files: files, metrics: metrics}
}

// ToggleResult reports the new state of a node and how many children a
// deactivation switched off
type ToggleResult struct {
	ID                       uint  `json:"id"`
	Active                   bool  `json:"active"`
	SubcategoriesDeactivated int64 `json:"subcategories_deactivated"`
	ProductsDeactivated      int64 `json:"products_deactivated"`
}

func (s *Service) atomic(ctx context.Context, op string, fn func(tx repository.Store) error) error {
	defer s.metrics.TrackDBOperation(op)(time.Now())
	return s.store.Atomic(ctx, fn)
}

// removeFile notifies the file store; failures are logged and swallowed
func (s *Service) removeFile(ctx context.Context, ref string) {
	if ref == "" {
		return
	}
	if err := s.files.Delete(ctx, ref); err != nil {
		logger.FromContext(ctx).Warn("Failed to delete product image",
			zap.String("image_ref", ref),
			zap.Error(err))
	}
}
