package services

import (
	"context"
	"time"

	"storefront-service/models"
)

// MetricsRecorder is satisfied by *aws.MetricsClient.
type MetricsRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordValue(ctx context.Context, metricName string, value float64, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error
}

// FileUpload is one in-memory file taken from a multipart request.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReviewInput carries a review create or edit request.
type ReviewInput struct {
	UserID   string
	UserName string
	Rating   int
	Comment  string
}

// review builds the candidate review. Without a display name the user id is used.
func (in ReviewInput) review() models.Review {
	name := in.UserName
	if name == "" {
		name = in.UserID
	}
	return models.Review{Name: name, Rating: in.Rating, Comment: in.Comment, User: in.UserID}
}
