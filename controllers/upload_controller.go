package controllers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"storefront-service/apperrors"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

// Multipart field names
const (
	SingleImageField = "image"
	MultiImageField  = "images"
)

// multipartOverhead covers form boundaries and part headers on top of the
// file bytes themselves.
const multipartOverhead = 1 << 20

// UploadController serves the image upload endpoints.
type UploadController struct {
	service UploadServiceAPI
}

func NewUploadController(service UploadServiceAPI) *UploadController {
	return &UploadController{service: service}
}

// UploadSingle handles POST /upload with one file in field "image".
func (uc *UploadController) UploadSingle(c *gin.Context) {
	uc.limitBody(c, 1)
	header, err := c.FormFile(SingleImageField)
	if err != nil {
		respondError(c, formError(err, apperrors.New(apperrors.KindMissingFile, "No file uploaded", err)))
		return
	}

	file, err := readFile(header, uc.service.MaxFileBytes())
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := uc.service.UploadOne(c.Request.Context(), file)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Image uploaded successfully",
		"imageUrl": url,
	})
}

// UploadMultiple handles POST /upload/multiple with files in field "images".
func (uc *UploadController) UploadMultiple(c *gin.Context) {
	uc.limitBody(c, uc.service.MaxFiles())
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, formError(err, apperrors.New(apperrors.KindEmptyUpload, "No files uploaded", err)))
		return
	}

	headers := form.File[MultiImageField]
	if len(headers) > uc.service.MaxFiles() {
		respondError(c, apperrors.New(apperrors.KindTooManyFiles,
			fmt.Sprintf("Too many files, at most %d are allowed", uc.service.MaxFiles()), nil))
		return
	}

	files := make([]services.FileUpload, 0, len(headers))
	for _, h := range headers {
		f, err := readFile(h, uc.service.MaxFileBytes())
		if err != nil {
			respondError(c, err)
			return
		}
		files = append(files, *f)
	}

	images, err := uc.service.UploadMany(c.Request.Context(), files)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Images uploaded successfully",
		"images":  images,
	})
}

// ListImages handles GET /upload.
func (uc *UploadController) ListImages(c *gin.Context) {
	images, err := uc.service.ListImages(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, images)
}

// DeleteImage handles DELETE /upload/:key.
func (uc *UploadController) DeleteImage(c *gin.Context) {
	result, err := uc.service.DeleteImage(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{"message": "Image deleted successfully"}
	if !result.Existed {
		body["warning"] = "image not found"
	}
	c.JSON(http.StatusOK, body)
}

// limitBody caps the request body at files full-size images plus form overhead.
func (uc *UploadController) limitBody(c *gin.Context, files int) {
	limit := int64(files)*uc.service.MaxFileBytes() + multipartOverhead
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
}

// formError reports an oversized body as such, and anything else as fallback.
func formError(err error, fallback *apperrors.Error) *apperrors.Error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.New(apperrors.KindValidation, "Request body too large", err)
	}
	return fallback
}

// readFile rejects files over maxBytes before reading them into memory.
func readFile(header *multipart.FileHeader, maxBytes int64) (*services.FileUpload, error) {
	if header.Size > maxBytes {
		return nil, services.FileTooLarge(header.Filename, maxBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "Could not read uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "Could not read uploaded file", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, services.FileTooLarge(header.Filename, maxBytes)
	}
	return &services.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
