package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/apperrors"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// allowedImageTypes is the upload allow-list, keyed by declared MIME type.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

const (
	DefaultMaxFiles     = 5
	DefaultMaxFileBytes = 10 << 20
	DefaultStoreTimeout = 15 * time.Second
)

// ObjectStore is the subset of the S3 client the upload service needs.
type ObjectStore interface {
	manager.UploadAPIClient
	s3.ListObjectsV2APIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type UploadConfig struct {
	Bucket string
	// Endpoint is the public base URL; object URLs are <Endpoint>/<Bucket>/<key>.
	Endpoint     string
	MaxFiles     int
	MaxFileBytes int64
	Timeout      time.Duration
}

type UploadService struct {
	store    ObjectStore
	uploader *manager.Uploader
	cfg      UploadConfig
	metrics  MetricsRecorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewUploadService(store ObjectStore, cfg UploadConfig, metrics MetricsRecorder, logger *zap.Logger) *UploadService {
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = DefaultMaxFiles
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultStoreTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		store:    store,
		uploader: manager.NewUploader(store),
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// MaxFiles is the largest batch UploadMany accepts.
func (s *UploadService) MaxFiles() int {
	return s.cfg.MaxFiles
}

// MaxFileBytes is the per-file size cap.
func (s *UploadService) MaxFileBytes() int64 {
	return s.cfg.MaxFileBytes
}

// FileTooLarge reports a file over the per-file size cap.
func FileTooLarge(filename string, limit int64) error {
	return apperrors.Validation([]apperrors.FieldError{{
		Field:   filename,
		Rule:    "max_size",
		Message: fmt.Sprintf("%s exceeds the %d byte limit", filename, limit),
	}})
}

// UploadOne stores a single image and returns its public URL.
func (s *UploadService) UploadOne(ctx context.Context, file *FileUpload) (string, error) {
	if file == nil {
		return "", apperrors.New(apperrors.KindMissingFile, "No file uploaded", nil)
	}
	ext, err := s.check(file)
	if err != nil {
		return "", err
	}

	start := time.Now()
	key, err := s.put(ctx, file, ext)
	if err != nil {
		s.logger.Error("Error uploading to S3", zap.String("filename", file.Filename), zap.Error(err))
		s.count(ctx, aws_pkg.MetricImageUploadFailed, 1, "UploadOne")
		return "", apperrors.New(apperrors.KindUploadFailed, "File upload failed", err).WithDetail(storeErrorSummary(err))
	}

	s.count(ctx, aws_pkg.MetricImagesUploaded, 1, "UploadOne")
	s.latency(ctx, time.Since(start), "UploadOne")
	s.logger.Info("image uploaded", zap.String("key", key), zap.Int("bytes", len(file.Data)))
	return s.url(key), nil
}

// UploadMany validates the whole batch before touching the store, then
// uploads the files one by one in order. When an upload fails, the files of
// this batch that were already stored are deleted again.
func (s *UploadService) UploadMany(ctx context.Context, files []FileUpload) ([]models.UploadedImage, error) {
	if len(files) == 0 {
		return nil, apperrors.New(apperrors.KindEmptyUpload, "No files uploaded", nil)
	}
	if len(files) > s.cfg.MaxFiles {
		return nil, apperrors.New(apperrors.KindTooManyFiles, fmt.Sprintf("Too many files, at most %d are allowed", s.cfg.MaxFiles), nil)
	}

	exts := make([]string, len(files))
	for i := range files {
		ext, err := s.check(&files[i])
		if err != nil {
			return nil, err
		}
		exts[i] = ext
	}

	start := time.Now()
	uploaded := make([]string, 0, len(files))
	images := make([]models.UploadedImage, 0, len(files))
	for i := range files {
		key, err := s.put(ctx, &files[i], exts[i])
		if err != nil {
			s.logger.Error("Error uploading to S3",
				zap.String("filename", files[i].Filename),
				zap.Int("index", i),
				zap.Error(err),
			)
			s.rollback(ctx, uploaded)
			s.count(ctx, aws_pkg.MetricImageUploadFailed, 1, "UploadMany")
			return nil, apperrors.New(apperrors.KindUploadFailed, "File upload failed", err).WithDetail(storeErrorSummary(err))
		}
		uploaded = append(uploaded, key)
		images = append(images, models.UploadedImage{URL: s.url(key), AltText: files[i].Filename})
	}

	s.count(ctx, aws_pkg.MetricImagesUploaded, float64(len(images)), "UploadMany")
	s.latency(ctx, time.Since(start), "UploadMany")
	s.logger.Info("images uploaded", zap.Strings("keys", uploaded))
	return images, nil
}

// ListImages returns every object in the bucket, following continuation tokens.
func (s *UploadService) ListImages(ctx context.Context) ([]models.StoredImage, error) {
	images := []models.StoredImage{}
	paginator := s3.NewListObjectsV2Paginator(s.store, &s3.ListObjectsV2Input{
		Bucket: sdkaws.String(s.cfg.Bucket),
	})
	for paginator.HasMorePages() {
		pageCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		page, err := paginator.NextPage(pageCtx)
		cancel()
		if err != nil {
			s.logger.Error("Error listing S3 objects", zap.Error(err))
			return nil, apperrors.New(apperrors.KindUploadFailed, "Failed to list images", err).WithDetail(storeErrorSummary(err))
		}
		for _, obj := range page.Contents {
			key := sdkaws.ToString(obj.Key)
			images = append(images, models.StoredImage{Key: key, URL: s.url(key)})
		}
	}
	return images, nil
}

// DeleteImage removes key. A key that does not exist is not an error: the
// result reports Existed=false and a warning is logged.
func (s *UploadService) DeleteImage(ctx context.Context, key string) (*models.DeleteResult, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, apperrors.Validation([]apperrors.FieldError{{Field: "key", Rule: "required", Message: "key is required"}})
	}

	headCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	_, err := s.store.HeadObject(headCtx, &s3.HeadObjectInput{
		Bucket: sdkaws.String(s.cfg.Bucket),
		Key:    sdkaws.String(key),
	})
	cancel()
	if err != nil {
		if aws_pkg.IsNotFound(err) {
			s.logger.Warn("image not found", zap.String("key", key))
			return &models.DeleteResult{Key: key, Existed: false}, nil
		}
		s.logger.Error("Error checking S3 object", zap.String("key", key), zap.Error(err))
		return nil, apperrors.New(apperrors.KindUploadFailed, "Failed to delete image", err).WithDetail(storeErrorSummary(err))
	}

	delCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if _, err := s.store.DeleteObject(delCtx, &s3.DeleteObjectInput{
		Bucket: sdkaws.String(s.cfg.Bucket),
		Key:    sdkaws.String(key),
	}); err != nil {
		s.logger.Error("Error deleting S3 object", zap.String("key", key), zap.Error(err))
		return nil, apperrors.New(apperrors.KindUploadFailed, "Failed to delete image", err).WithDetail(storeErrorSummary(err))
	}

	s.count(ctx, aws_pkg.MetricImagesDeleted, 1, "DeleteImage")
	s.logger.Info("image deleted", zap.String("key", key))
	return &models.DeleteResult{Key: key, Existed: true}, nil
}

// check validates type and size and returns the key extension.
func (s *UploadService) check(file *FileUpload) (string, error) {
	declared := normalizeMIME(file.ContentType)
	if !allowedImageTypes[declared] {
		return "", imagesOnly(file.Filename, declared, "")
	}
	if int64(len(file.Data)) > s.cfg.MaxFileBytes {
		return "", FileTooLarge(file.Filename, s.cfg.MaxFileBytes)
	}
	detected := mimetype.Detect(file.Data)
	if !detected.Is(declared) {
		return "", imagesOnly(file.Filename, declared, detected.String())
	}
	return extensionFor(declared), nil
}

func imagesOnly(filename, declared, detected string) error {
	err := apperrors.New(apperrors.KindUnsupportedMediaType, "Images only!", nil)
	err.Err = fmt.Errorf("file %q declared %q detected %q", filename, declared, detected)
	return err
}

func (s *UploadService) put(ctx context.Context, file *FileUpload, ext string) (string, error) {
	key := s.newKey(ext)

	putCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	_, err := s.uploader.Upload(putCtx, &s3.PutObjectInput{
		Bucket:      sdkaws.String(s.cfg.Bucket),
		Key:         sdkaws.String(key),
		Body:        bytes.NewReader(file.Data),
		ContentType: sdkaws.String(normalizeMIME(file.ContentType)),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// rollback deletes keys stored earlier in a failed batch. It runs even when
// the request context is already cancelled.
func (s *UploadService) rollback(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	var orphaned []string
	for _, key := range keys {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
		_, err := s.store.DeleteObject(delCtx, &s3.DeleteObjectInput{
			Bucket: sdkaws.String(s.cfg.Bucket),
			Key:    sdkaws.String(key),
		})
		cancel()
		if err != nil {
			orphaned = append(orphaned, key)
		}
	}
	if len(orphaned) > 0 {
		s.logger.Error("batch rollback left objects behind", zap.Strings("orphaned_keys", orphaned))
		return
	}
	s.logger.Warn("batch rolled back", zap.Strings("deleted_keys", keys))
}

// newKey returns <uuid v4>-<unix millis>.<ext>.
func (s *UploadService) newKey(ext string) string {
	return fmt.Sprintf("%s-%d.%s", uuid.NewString(), s.now().UnixMilli(), ext)
}

func (s *UploadService) url(key string) string {
	return aws_pkg.ObjectURL(s.cfg.Endpoint, s.cfg.Bucket, key)
}

func (s *UploadService) count(ctx context.Context, metric string, n float64, op string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordValue(ctx, metric, n, map[string]string{"Operation": op}); err != nil {
		s.logger.Debug("metric not recorded", zap.String("metric", metric), zap.Error(err))
	}
}

func (s *UploadService) latency(ctx context.Context, d time.Duration, op string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordLatency(ctx, aws_pkg.MetricImageUploadLatency, d, map[string]string{"Operation": op}); err != nil {
		s.logger.Debug("metric not recorded", zap.String("metric", aws_pkg.MetricImageUploadLatency), zap.Error(err))
	}
}

func normalizeMIME(ct string) string {
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// extensionFor maps a MIME type to its standard extension without the dot
// (image/jpeg -> jpg).
func extensionFor(mime string) string {
	if m := mimetype.Lookup(mime); m != nil {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	_, sub, _ := strings.Cut(mime, "/")
	return sub
}

// storeErrorSummary is the caller-safe part of a store failure.
func storeErrorSummary(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "object store timed out"
	}
	return "object store request failed"
}
