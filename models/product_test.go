package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNormalize(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p := Product{
		Name:        "  Phone X ",
		Slug:        " Phone-X ",
		Category:    CategoryRef{Name: " Phones ", Slug: "PHONES"},
		Subcategory: &SubcategoryRef{},
		Image:       &Image{Link: " http://cdn/x.png ", Alt: " x "},
		Reviews:     []Review{{Rating: 4}, {Rating: 5}},
	}

	p.Normalize(now)

	assert.Equal(t, "Phone X", p.Name)
	assert.Equal(t, "phone-x", p.Slug)
	assert.Equal(t, "phones", p.Category.Slug)
	assert.Nil(t, p.Subcategory)
	assert.Equal(t, "http://cdn/x.png", p.Image.Link)
	assert.NotNil(t, p.AdditionalImages)
	assert.NotNil(t, p.Colors)
	assert.NotNil(t, p.Features)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)
	assert.Equal(t, 4.5, p.Rating)
	assert.Equal(t, 2, p.NumReviews)

	later := now.Add(time.Minute)
	p.Normalize(later)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, later, p.UpdatedAt)
}

func TestFromLegacy(t *testing.T) {
	id := primitive.NewObjectID()
	l := LegacyProduct{
		ID:      id,
		Name:    "Desk Lamp",
		Slug:    "desk-lamp",
		Image:   "https://store.example/media/lamp.jpg",
		Reviews: []Review{{Rating: 5}, {Rating: 3}},
	}

	p := FromLegacy(l)

	assert.Equal(t, id, p.ID)
	require.NotNil(t, p.Image)
	assert.Equal(t, Image{Link: "https://store.example/media/lamp.jpg", Alt: "Desk Lamp"}, *p.Image)
	assert.NotNil(t, p.AdditionalImages)
	assert.Empty(t, p.AdditionalImages)
	assert.Equal(t, 4.0, p.Rating)
	assert.Equal(t, 2, p.NumReviews)
}

func TestFromLegacy_NoImage(t *testing.T) {
	p := FromLegacy(LegacyProduct{Name: "Bare"})
	assert.Nil(t, p.Image)
}

func TestImage_DecodesLegacyStringFromBSON(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"name":  "Desk Lamp",
		"slug":  "desk-lamp",
		"image": "https://store.example/media/lamp.jpg",
	})
	require.NoError(t, err)

	var p Product
	require.NoError(t, bson.Unmarshal(raw, &p))
	require.NotNil(t, p.Image)
	assert.Equal(t, "https://store.example/media/lamp.jpg", p.Image.Link)
	assert.Empty(t, p.Image.Alt)

	assert.True(t, p.UpgradeLegacy())
	assert.Equal(t, "Desk Lamp", p.Image.Alt)
	assert.NotNil(t, p.AdditionalImages)
}

func TestImage_DecodesStructuredFromBSON(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"name":             "Desk Lamp",
		"image":            bson.M{"link": "https://store.example/media/lamp.jpg", "alt": "lamp"},
		"additionalImages": bson.A{bson.M{"link": "https://store.example/media/side.jpg", "alt": "side"}},
	})
	require.NoError(t, err)

	var p Product
	require.NoError(t, bson.Unmarshal(raw, &p))
	require.NotNil(t, p.Image)
	assert.Equal(t, Image{Link: "https://store.example/media/lamp.jpg", Alt: "lamp"}, *p.Image)
	require.Len(t, p.AdditionalImages, 1)
	assert.Equal(t, "side", p.AdditionalImages[0].Alt)
	assert.False(t, p.UpgradeLegacy())
}
