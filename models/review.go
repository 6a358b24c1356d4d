package models

import (
	"errors"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrAlreadyReviewed = errors.New("product already reviewed")
	ErrReviewNotFound  = errors.New("review not found")
	ErrNotReviewAuthor = errors.New("review belongs to another user")
)

type Review struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Name      string             `json:"name" bson:"name" validate:"required"`
	Rating    int                `json:"rating" bson:"rating" validate:"gte=1,lte=5"`
	Comment   string             `json:"comment" bson:"comment" validate:"required"`
	User      string             `json:"user" bson:"user" validate:"required"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// RecomputeRating derives numReviews and rating from the review list.
// Rating is the mean rounded to one decimal, or 0 without reviews.
func (p *Product) RecomputeRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	mean := float64(sum) / float64(p.NumReviews)
	p.Rating = math.Round(mean*10) / 10
}

// AddReview appends r. One review per user.
func (p *Product) AddReview(r Review, now time.Time) (*Review, error) {
	for _, existing := range p.Reviews {
		if existing.User == r.User {
			return nil, ErrAlreadyReviewed
		}
	}
	if r.ID.IsZero() {
		r.ID = primitive.NewObjectID()
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Comment = strings.TrimSpace(r.Comment)
	r.CreatedAt = now
	r.UpdatedAt = now

	p.Reviews = append(p.Reviews, r)
	p.RecomputeRating()
	return &p.Reviews[len(p.Reviews)-1], nil
}

// UpdateReview edits the rating and comment of a review owned by userID.
func (p *Product) UpdateReview(reviewID primitive.ObjectID, userID string, rating int, comment string, now time.Time) (*Review, error) {
	idx, err := p.ownedReview(reviewID, userID)
	if err != nil {
		return nil, err
	}
	r := &p.Reviews[idx]
	r.Rating = rating
	r.Comment = strings.TrimSpace(comment)
	r.UpdatedAt = now

	p.RecomputeRating()
	return r, nil
}

// RemoveReview deletes a review owned by userID, keeping the order of the rest.
func (p *Product) RemoveReview(reviewID primitive.ObjectID, userID string) error {
	idx, err := p.ownedReview(reviewID, userID)
	if err != nil {
		return err
	}
	p.Reviews = append(p.Reviews[:idx], p.Reviews[idx+1:]...)
	p.RecomputeRating()
	return nil
}

func (p *Product) ownedReview(reviewID primitive.ObjectID, userID string) (int, error) {
	for i, r := range p.Reviews {
		if r.ID != reviewID {
			continue
		}
		if r.User != userID {
			return -1, ErrNotReviewAuthor
		}
		return i, nil
	}
	return -1, ErrReviewNotFound
}
