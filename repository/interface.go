package repository

import (
	"context"
	"errors"

	"storefront-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrDuplicateSlug   = errors.New("slug already in use")
	ErrVersionConflict = errors.New("product was modified concurrently")
)

// ProductRepo defines the product persistence used by the catalog service.
// Update is a whole-document compare-and-swap on Version, so a review change
// and the derived rating/numReviews land in the same write.
type ProductRepo interface {
	EnsureIndexes(ctx context.Context) error
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	FindBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, limit, skip int) ([]*models.Product, int64, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
