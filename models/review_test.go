package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecomputeRating(t *testing.T) {
	tests := []struct {
		name        string
		ratings     []int
		wantRating  float64
		wantReviews int
	}{
		{"no reviews", nil, 0, 0},
		{"single", []int{4}, 4, 1},
		{"rounds to one decimal", []int{5, 4, 4}, 4.3, 3},
		{"six reviews", []int{5, 5, 4, 4, 4, 4}, 4.3, 6},
		{"two thirds", []int{1, 2, 2}, 1.7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Product{Rating: 9, NumReviews: 9}
			for _, r := range tt.ratings {
				p.Reviews = append(p.Reviews, Review{Rating: r})
			}
			p.RecomputeRating()
			assert.Equal(t, tt.wantRating, p.Rating)
			assert.Equal(t, tt.wantReviews, p.NumReviews)
		})
	}
}

func TestReviewMutationsKeepAggregatesInStep(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := Product{}

	first, err := p.AddReview(Review{Name: "Ann", Rating: 5, Comment: "great", User: "u1"}, now)
	require.NoError(t, err)
	assert.False(t, first.ID.IsZero())
	assert.Equal(t, now, first.CreatedAt)
	assert.Equal(t, 5.0, p.Rating)
	assert.Equal(t, 1, p.NumReviews)

	second, err := p.AddReview(Review{Name: "Bob", Rating: 2, Comment: "meh", User: "u2"}, now)
	require.NoError(t, err)
	assert.Equal(t, 3.5, p.Rating)
	assert.Equal(t, 2, p.NumReviews)

	later := now.Add(time.Hour)
	updated, err := p.UpdateReview(second.ID, "u2", 4, "  better  ", later)
	require.NoError(t, err)
	assert.Equal(t, "better", updated.Comment)
	assert.Equal(t, later, updated.UpdatedAt)
	assert.Equal(t, 4.5, p.Rating)

	require.NoError(t, p.RemoveReview(first.ID, "u1"))
	assert.Equal(t, 4.0, p.Rating)
	assert.Equal(t, 1, p.NumReviews)
	assert.Equal(t, "Bob", p.Reviews[0].Name)

	require.NoError(t, p.RemoveReview(second.ID, "u2"))
	assert.Equal(t, 0.0, p.Rating)
	assert.Equal(t, 0, p.NumReviews)
}

func TestAddReview_OncePerUser(t *testing.T) {
	p := Product{}
	_, err := p.AddReview(Review{Name: "Ann", Rating: 5, Comment: "ok", User: "u1"}, time.Now())
	require.NoError(t, err)

	_, err = p.AddReview(Review{Name: "Ann", Rating: 1, Comment: "again", User: "u1"}, time.Now())
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.Equal(t, 1, p.NumReviews)
	assert.Equal(t, 5.0, p.Rating)
}

func TestReviewOwnership(t *testing.T) {
	p := Product{}
	r, err := p.AddReview(Review{Name: "Ann", Rating: 3, Comment: "ok", User: "u1"}, time.Now())
	require.NoError(t, err)
	id := r.ID

	_, err = p.UpdateReview(id, "intruder", 1, "bad", time.Now())
	assert.ErrorIs(t, err, ErrNotReviewAuthor)
	assert.ErrorIs(t, p.RemoveReview(id, "intruder"), ErrNotReviewAuthor)

	_, err = p.UpdateReview(primitive.NewObjectID(), "u1", 1, "x", time.Now())
	assert.ErrorIs(t, err, ErrReviewNotFound)

	assert.Equal(t, 3.0, p.Rating)
	assert.Len(t, p.Reviews, 1)
}

func TestReviewsPreserveInsertionOrder(t *testing.T) {
	p := Product{}
	users := []string{"a", "b", "c", "d"}
	for i, u := range users {
		_, err := p.AddReview(Review{Name: u, Rating: i%5 + 1, Comment: "c", User: u}, time.Now())
		require.NoError(t, err)
	}
	require.NoError(t, p.RemoveReview(p.Reviews[1].ID, "b"))

	var got []string
	for _, r := range p.Reviews {
		got = append(got, r.User)
	}
	assert.Equal(t, []string{"a", "c", "d"}, got)
}
