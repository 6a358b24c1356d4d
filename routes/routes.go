package routes

import (
	"net/http"

	"storefront-service/controllers"
	"storefront-service/middleware"

	"github.com/gin-gonic/gin"
)

// Guards holds the middleware protecting route groups.
type Guards struct {
	Session     gin.HandlerFunc
	Internal    gin.HandlerFunc
	UploadLimit gin.HandlerFunc
}

// RegisterRoutes wires every handler onto the engine.
func RegisterRoutes(r *gin.Engine, pc *controllers.ProductController, uc *controllers.UploadController, sc *controllers.SessionController, g Guards) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	uploadRoutes := r.Group("/upload")
	if g.UploadLimit != nil {
		uploadRoutes.Use(g.UploadLimit)
	}
	{
		uploadRoutes.POST("", uc.UploadSingle)
		uploadRoutes.POST("/multiple", uc.UploadMultiple)
		uploadRoutes.GET("", uc.ListImages)
		uploadRoutes.DELETE("/:key", uc.DeleteImage)
	}

	productRoutes := r.Group("/products")
	{
		productRoutes.GET("", pc.GetProducts)
		productRoutes.GET("/:id", pc.GetProduct)
		productRoutes.GET("/slug/:slug", pc.GetProductBySlug)
	}

	authed := r.Group("/products", g.Session)
	{
		authed.POST("", pc.CreateProduct)
		authed.PUT("/:id", pc.UpdateProduct)
		authed.DELETE("/:id", pc.DeleteProduct)
		authed.POST("/:id/reviews", pc.CreateReview)
		authed.PUT("/:id/reviews/:reviewId", pc.UpdateReview)
		authed.DELETE("/:id/reviews/:reviewId", pc.DeleteReview)
	}

	r.POST("/internal/sessions", g.Internal, sc.IssueSession)
	r.POST("/sessions/logout", sc.Logout)
}

// DefaultGuards builds the guards from a session verifier and the internal key.
func DefaultGuards(verifier middleware.SessionVerifier, internalKey string, uploadLimit gin.HandlerFunc) Guards {
	return Guards{
		Session:     middleware.Authenticate(verifier),
		Internal:    middleware.InternalOnly(internalKey),
		UploadLimit: uploadLimit,
	}
}
