package controllers

import (
	"errors"
	"strconv"

	"storefront-service/apperrors"
	"storefront-service/logger"
	"storefront-service/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserNameHeader carries the display name forwarded by the gateway.
const UserNameHeader = "X-User-Name"

// respondError writes err as {message[, fields][, error]}. Server-side
// failures are logged with their cause; the cause never reaches the body.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	if appErr.Code >= 500 {
		logger.Error(c, appErr.Message, appErr.Err, zap.String("kind", string(appErr.Kind)))
	}
	_ = c.Error(err)
	c.JSON(appErr.Code, appErr.Response())
}

// userID returns the id set by the session middleware.
func userID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.UserIDKey)
	return id, id != ""
}

func requireUser(c *gin.Context) (string, bool) {
	id, ok := userID(c)
	if !ok {
		respondError(c, apperrors.New(apperrors.KindUnauthorized, "Not authorized, no token", nil))
	}
	return id, ok
}

// pagination reads page and perPage, falling back to the defaults on bad input.
func pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	if err != nil || page < 1 {
		page = DefaultPage
	}
	if page > MaxPage {
		page = MaxPage
	}
	perPage, err := strconv.Atoi(c.DefaultQuery("perPage", strconv.Itoa(DefaultPerPage)))
	if err != nil || perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// buildListResponse builds the paginated product list body
func buildListResponse(products any, total int64, page, perPage int) gin.H {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return gin.H{
		"products": products,
		"meta": gin.H{
			"page":       page,
			"perPage":    perPage,
			"total":      total,
			"totalPages": totalPages,
		},
	}
}

func invalidBody(err error) *apperrors.Error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.New(apperrors.KindValidation, "Invalid request body", err)
}
