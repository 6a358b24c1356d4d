package services

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"storefront-service/apperrors"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxWriteAttempts bounds the read-modify-write loop when another request
// wins the version race.
const maxWriteAttempts = 3

type ProductService struct {
	repo      repository.ProductRepo
	validator *ProductValidator
	events    *EventPublisher
	metrics   MetricsRecorder
	logger    *zap.Logger
	now       func() time.Time
}

func NewProductService(repo repository.ProductRepo, validator *ProductValidator, events *EventPublisher, metrics MetricsRecorder, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		repo:      repo,
		validator: validator,
		events:    events,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create normalizes and validates p, then stores it owned by userID.
func (s *ProductService) Create(ctx context.Context, userID string, p *models.Product) (*models.Product, error) {
	p.ID = primitive.NilObjectID
	p.User = userID
	p.Reviews = nil
	p.Version = 0
	p.CreatedAt = time.Time{}
	p.Normalize(s.now())

	if err := s.validator.ValidateProduct(p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, s.storeError("create product", err)
	}

	s.logger.Info("product created", zap.String("product_id", p.ID.Hex()), zap.String("slug", p.Slug))
	s.publish(ctx, EventProductCreated, p, "")
	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricProductsCreated, nil)
	}
	return p, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, s.storeError("find product", err)
	}
	return p, nil
}

func (s *ProductService) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, s.storeError("find product by slug", err)
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, page, perPage int) ([]*models.Product, int64, error) {
	products, total, err := s.repo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, s.storeError("list products", err)
	}
	return products, total, nil
}

// Update overlays the JSON patch onto the stored product. Only the owner may
// update it. Identity, owner, reviews and the derived rating fields cannot be
// changed this way.
func (s *ProductService) Update(ctx context.Context, id, userID string, patch []byte) (*models.Product, error) {
	oid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}

	p, err := s.mutate(ctx, oid, func(p *models.Product) error {
		if p.User != userID {
			return notOwner()
		}
		// json.Unmarshal decodes arrays into the existing backing array, so
		// the reviews must not share it with p.
		keep := *p
		keep.Reviews = slices.Clone(p.Reviews)
		if err := json.Unmarshal(patch, p); err != nil {
			return apperrors.New(apperrors.KindValidation, "Invalid product payload", err)
		}
		p.ID = keep.ID
		p.User = keep.User
		p.Reviews = keep.Reviews
		p.Version = keep.Version
		p.CreatedAt = keep.CreatedAt
		p.Normalize(s.now())
		return s.validator.ValidateProduct(p)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, EventProductUpdated, p, "")
	return p, nil
}

// Delete removes the product. Only the owner may delete it.
func (s *ProductService) Delete(ctx context.Context, id, userID string) error {
	oid, err := parseID("id", id)
	if err != nil {
		return err
	}
	p, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return s.storeError("find product", err)
	}
	if p.User != userID {
		return notOwner()
	}
	if err := s.repo.Delete(ctx, oid); err != nil {
		return s.storeError("delete product", err)
	}
	s.logger.Info("product deleted", zap.String("product_id", oid.Hex()))
	s.publish(ctx, EventProductDeleted, &models.Product{ID: oid}, "")
	return nil
}

func (s *ProductService) AddReview(ctx context.Context, productID string, in ReviewInput) (*models.Product, error) {
	oid, err := parseID("id", productID)
	if err != nil {
		return nil, err
	}
	candidate := in.review()
	if err := s.validator.ValidateReview(&candidate); err != nil {
		return nil, err
	}

	var reviewID primitive.ObjectID
	p, err := s.mutate(ctx, oid, func(p *models.Product) error {
		r, err := p.AddReview(candidate, s.now())
		if err != nil {
			return err
		}
		reviewID = r.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.reviewChanged(ctx, p, reviewID)
	return p, nil
}

func (s *ProductService) UpdateReview(ctx context.Context, productID, reviewID string, in ReviewInput) (*models.Product, error) {
	oid, err := parseID("id", productID)
	if err != nil {
		return nil, err
	}
	rid, err := parseID("reviewId", reviewID)
	if err != nil {
		return nil, err
	}
	candidate := in.review()
	if err := s.validator.ValidateReview(&candidate); err != nil {
		return nil, err
	}

	p, err := s.mutate(ctx, oid, func(p *models.Product) error {
		_, err := p.UpdateReview(rid, in.UserID, in.Rating, in.Comment, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.reviewChanged(ctx, p, rid)
	return p, nil
}

func (s *ProductService) DeleteReview(ctx context.Context, productID, reviewID, userID string) (*models.Product, error) {
	oid, err := parseID("id", productID)
	if err != nil {
		return nil, err
	}
	rid, err := parseID("reviewId", reviewID)
	if err != nil {
		return nil, err
	}

	p, err := s.mutate(ctx, oid, func(p *models.Product) error {
		return p.RemoveReview(rid, userID)
	})
	if err != nil {
		return nil, err
	}
	s.reviewChanged(ctx, p, rid)
	return p, nil
}

// mutate loads the product, applies fn and writes it back with a version
// check, retrying from a fresh read when a concurrent write got there first.
func (s *ProductService) mutate(ctx context.Context, id primitive.ObjectID, fn func(p *models.Product) error) (*models.Product, error) {
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		p, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, s.storeError("find product", err)
		}
		if err := fn(p); err != nil {
			return nil, s.domainError(err)
		}
		p.UpdatedAt = s.now()

		err = s.repo.Update(ctx, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, s.storeError("update product", err)
		}
		s.logger.Debug("version conflict, retrying",
			zap.String("product_id", id.Hex()),
			zap.Int("attempt", attempt),
		)
	}
	return nil, apperrors.New(apperrors.KindConflict, "Product was modified concurrently, please retry", repository.ErrVersionConflict)
}

func (s *ProductService) reviewChanged(ctx context.Context, p *models.Product, reviewID primitive.ObjectID) {
	s.logger.Info("review changed",
		zap.String("product_id", p.ID.Hex()),
		zap.String("review_id", reviewID.Hex()),
		zap.Float64("rating", p.Rating),
		zap.Int("num_reviews", p.NumReviews),
	)
	s.publish(ctx, EventReviewChanged, p, reviewID.Hex())
	if s.metrics != nil {
		_ = s.metrics.RecordCount(ctx, aws_pkg.MetricReviewsChanged, nil)
	}
}

func (s *ProductService) publish(ctx context.Context, eventType string, p *models.Product, reviewID string) {
	s.events.Publish(ctx, CatalogEvent{
		EventType:  eventType,
		ProductID:  p.ID.Hex(),
		Slug:       p.Slug,
		ReviewID:   reviewID,
		Rating:     p.Rating,
		NumReviews: p.NumReviews,
		Timestamp:  s.now(),
	})
}

func (s *ProductService) domainError(err error) error {
	var appErr *apperrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrAlreadyReviewed):
		return apperrors.New(apperrors.KindValidation, "Product already reviewed", err)
	case errors.Is(err, models.ErrReviewNotFound):
		return apperrors.New(apperrors.KindNotFound, "Review not found", err)
	case errors.Is(err, models.ErrNotReviewAuthor):
		return apperrors.New(apperrors.KindForbidden, "You can only change your own review", err)
	}
	return apperrors.New(apperrors.KindInternal, "Internal server error", err)
}

func (s *ProductService) storeError(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.New(apperrors.KindNotFound, "Product not found", err)
	case errors.Is(err, repository.ErrDuplicateSlug):
		return apperrors.New(apperrors.KindConflict, "Slug already in use", err)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.New(apperrors.KindConflict, "Product was modified concurrently, please retry", err)
	}
	s.logger.Error("product store failure", zap.String("op", op), zap.Error(err))
	return apperrors.New(apperrors.KindInternal, "Internal server error", err)
}

func notOwner() error {
	return apperrors.New(apperrors.KindForbidden, "Not allowed to change this product", nil)
}

func parseID(field, raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperrors.Validation([]apperrors.FieldError{{
			Field:   field,
			Rule:    "objectid",
			Message: field + " is not a valid id",
		}})
	}
	return id, nil
}
