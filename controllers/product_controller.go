package controllers

import (
	"io"
	"net/http"

	"storefront-service/apperrors"
	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

// ProductController serves the catalog and review endpoints.
type ProductController struct {
	service ProductServiceAPI
}

func NewProductController(service ProductServiceAPI) *ProductController {
	return &ProductController{service: service}
}

// GetProducts retrieves a page of products, newest first.
func (pc *ProductController) GetProducts(c *gin.Context) {
	page, perPage := pagination(c)

	products, total, err := pc.service.List(c.Request.Context(), page, perPage)
	if err != nil {
		respondError(c, err)
		return
	}
	if products == nil {
		products = []*models.Product{}
	}
	c.JSON(http.StatusOK, buildListResponse(products, total, page, perPage))
}

func (pc *ProductController) GetProduct(c *gin.Context) {
	p, err := pc.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) GetProductBySlug(c *gin.Context) {
	p, err := pc.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CreateProduct creates a product owned by the authenticated user.
func (pc *ProductController) CreateProduct(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	var p models.Product
	if err := c.ShouldBindJSON(&p); err != nil {
		respondError(c, invalidBody(err))
		return
	}

	created, err := pc.service.Create(c.Request.Context(), uid, &p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateProduct applies a partial JSON document to the caller's product.
func (pc *ProductController) UpdateProduct(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	patch, err := io.ReadAll(c.Request.Body)
	if err != nil || len(patch) == 0 {
		respondError(c, apperrors.New(apperrors.KindValidation, "Invalid request body", err))
		return
	}

	updated, err := pc.service.Update(c.Request.Context(), c.Param("id"), uid, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (pc *ProductController) DeleteProduct(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	if err := pc.service.Delete(c.Request.Context(), c.Param("id"), uid); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product removed"})
}

// CreateReview adds the caller's review to the product.
func (pc *ProductController) CreateReview(c *gin.Context) {
	in, ok := pc.reviewInput(c)
	if !ok {
		return
	}

	p, err := pc.service.AddReview(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateReview edits the caller's own review.
func (pc *ProductController) UpdateReview(c *gin.Context) {
	in, ok := pc.reviewInput(c)
	if !ok {
		return
	}

	p, err := pc.service.UpdateReview(c.Request.Context(), c.Param("id"), c.Param("reviewId"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteReview removes the caller's own review.
func (pc *ProductController) DeleteReview(c *gin.Context) {
	uid, ok := requireUser(c)
	if !ok {
		return
	}

	p, err := pc.service.DeleteReview(c.Request.Context(), c.Param("id"), c.Param("reviewId"), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (pc *ProductController) reviewInput(c *gin.Context) (services.ReviewInput, bool) {
	uid, ok := requireUser(c)
	if !ok {
		return services.ReviewInput{}, false
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, invalidBody(err))
		return services.ReviewInput{}, false
	}

	return services.ReviewInput{
		UserID:   uid,
		UserName: c.GetHeader(UserNameHeader),
		Rating:   req.Rating,
		Comment:  req.Comment,
	}, true
}
