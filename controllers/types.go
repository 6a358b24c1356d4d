package controllers

import (
	"context"
	"net/http"

	"storefront-service/models"
	"storefront-service/services"
)

// Default pagination values
const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
	MaxPage        = 100000
)

// ProductServiceAPI defines the catalog operations used by the handlers
type ProductServiceAPI interface {
	Create(ctx context.Context, userID string, p *models.Product) (*models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, page, perPage int) ([]*models.Product, int64, error)
	Update(ctx context.Context, id, userID string, patch []byte) (*models.Product, error)
	Delete(ctx context.Context, id, userID string) error
	AddReview(ctx context.Context, productID string, in services.ReviewInput) (*models.Product, error)
	UpdateReview(ctx context.Context, productID, reviewID string, in services.ReviewInput) (*models.Product, error)
	DeleteReview(ctx context.Context, productID, reviewID, userID string) (*models.Product, error)
}

// UploadServiceAPI defines the media operations used by the handlers
type UploadServiceAPI interface {
	MaxFiles() int
	MaxFileBytes() int64
	UploadOne(ctx context.Context, file *services.FileUpload) (string, error)
	UploadMany(ctx context.Context, files []services.FileUpload) ([]models.UploadedImage, error)
	ListImages(ctx context.Context) ([]models.StoredImage, error)
	DeleteImage(ctx context.Context, key string) (*models.DeleteResult, error)
}

// SessionAPI is satisfied by *auth.SessionIssuer.
type SessionAPI interface {
	IssueSession(w http.ResponseWriter, userID string) (string, error)
	ClearSession(w http.ResponseWriter)
}

// ReviewRequest is the body of review create and edit calls.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SessionRequest is the body of the internal session call.
type SessionRequest struct {
	UserID string `json:"userId" binding:"required"`
}
