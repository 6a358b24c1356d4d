package main

import (
	"testing"
	"time"

	"storefront-service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func marshal(t *testing.T, doc any) bson.Raw {
	t.Helper()
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	return raw
}

func TestUpgradeDocument_LegacyString(t *testing.T) {
	id := primitive.NewObjectID()
	raw := marshal(t, bson.M{
		"_id":     id,
		"name":    "Desk lamp",
		"slug":    "desk-lamp",
		"image":   "https://cdn.example.com/lamp.jpg",
		"version": int64(4),
		"reviews": bson.A{
			bson.M{"_id": primitive.NewObjectID(), "name": "a", "rating": 4, "user": "u1"},
			bson.M{"_id": primitive.NewObjectID(), "name": "b", "rating": 5, "user": "u2"},
		},
		"rating":     0,
		"numReviews": 0,
	})

	p, changed, err := upgradeDocument(raw, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, &models.Image{Link: "https://cdn.example.com/lamp.jpg", Alt: "Desk lamp"}, p.Image)
	assert.Equal(t, []models.Image{}, p.AdditionalImages)
	assert.Equal(t, 4.5, p.Rating)
	assert.Equal(t, 2, p.NumReviews)
	assert.Equal(t, int64(5), p.Version)
}

func TestUpgradeDocument_AlreadyStructured(t *testing.T) {
	raw := marshal(t, bson.M{
		"_id":              primitive.NewObjectID(),
		"name":             "Chair",
		"image":            bson.M{"link": "https://cdn.example.com/chair.jpg", "alt": "Chair"},
		"additionalImages": bson.A{},
		"colors":           bson.A{},
		"features":         bson.A{},
		"reviews":          bson.A{},
		"version":          int64(2),
	})

	p, changed, err := upgradeDocument(raw, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int64(2), p.Version)
}

func TestUpgradeDocument_MissingGallery(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	raw := marshal(t, bson.M{
		"_id":   primitive.NewObjectID(),
		"name":  "Table",
		"image": bson.M{"link": "https://cdn.example.com/table.jpg", "alt": "Table"},
	})

	p, changed, err := upgradeDocument(raw, now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []models.Image{}, p.AdditionalImages)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, int64(1), p.Version)
}
