package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product is the root catalog entity. Colors, features, images and reviews
// are embedded and share the product's lifecycle.
type Product struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	User             string             `json:"user" bson:"user" validate:"required"`
	Name             string             `json:"name" bson:"name" validate:"required"`
	Slug             string             `json:"slug" bson:"slug" validate:"required,slug"`
	MetaDescription  string             `json:"metaDescription" bson:"metaDescription" validate:"required"`
	Image            *Image             `json:"image,omitempty" bson:"image,omitempty"`
	AdditionalImages []Image            `json:"additionalImages" bson:"additionalImages" validate:"dive"`
	Brand            string             `json:"brand" bson:"brand" validate:"required"`
	Category         CategoryRef        `json:"category" bson:"category"`
	Subcategory      *SubcategoryRef    `json:"subcategory,omitempty" bson:"subcategory,omitempty"`
	Colors           []Color            `json:"colors" bson:"colors" validate:"dive"`
	Features         []Feature          `json:"features" bson:"features" validate:"dive"`
	ShortDescription string             `json:"shortDescription" bson:"shortDescription" validate:"required"`
	Description      string             `json:"description" bson:"description" validate:"required"`
	Reviews          []Review           `json:"reviews" bson:"reviews" validate:"dive"`
	Rating           float64            `json:"rating" bson:"rating"`
	NumReviews       int                `json:"numReviews" bson:"numReviews"`
	Price            float64            `json:"price" bson:"price" validate:"gte=0"`
	PriceWithOff     float64            `json:"priceWithOff" bson:"priceWithOff" validate:"gte=0"`
	Discount         float64            `json:"discount" bson:"discount" validate:"gte=0"`
	IsAmazingOffer   bool               `json:"isAmazingOffer" bson:"isAmazingOffer"`
	CountInStock     int                `json:"countInStock" bson:"countInStock" validate:"gte=0"`
	Version          int64              `json:"-" bson:"version"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

type CategoryRef struct {
	Name string `json:"name" bson:"name" validate:"required"`
	Slug string `json:"slug" bson:"slug" validate:"required,slug"`
}

// SubcategoryRef is optional; when present its slug must still be URL-safe.
type SubcategoryRef struct {
	Name string `json:"name,omitempty" bson:"name,omitempty"`
	Slug string `json:"slug,omitempty" bson:"slug,omitempty" validate:"omitempty,slug"`
}

type Color struct {
	Name     string `json:"name" bson:"name" validate:"required"`
	Code     string `json:"code" bson:"code" validate:"required"`
	Quantity int    `json:"quantity" bson:"quantity" validate:"gte=0"`
}

type Feature struct {
	Title       string `json:"title" bson:"title" validate:"required"`
	Value       string `json:"value" bson:"value" validate:"required"`
	MainFeature bool   `json:"mainFeature" bson:"mainFeature"`
}

// Normalize trims text fields, lower-cases slugs, replaces nil sequences with
// empty ones and stamps timestamps. It runs before validation on every write.
func (p *Product) Normalize(now time.Time) {
	p.User = strings.TrimSpace(p.User)
	p.Name = strings.TrimSpace(p.Name)
	p.Slug = normalizeSlug(p.Slug)
	p.MetaDescription = strings.TrimSpace(p.MetaDescription)
	p.Brand = strings.TrimSpace(p.Brand)
	p.ShortDescription = strings.TrimSpace(p.ShortDescription)
	p.Description = strings.TrimSpace(p.Description)

	p.Category.Name = strings.TrimSpace(p.Category.Name)
	p.Category.Slug = normalizeSlug(p.Category.Slug)
	if p.Subcategory != nil {
		p.Subcategory.Name = strings.TrimSpace(p.Subcategory.Name)
		p.Subcategory.Slug = normalizeSlug(p.Subcategory.Slug)
		if p.Subcategory.Name == "" && p.Subcategory.Slug == "" {
			p.Subcategory = nil
		}
	}

	if p.Image != nil {
		p.Image.trim()
		if p.Image.Link == "" && p.Image.Alt == "" {
			p.Image = nil
		}
	}
	if p.AdditionalImages == nil {
		p.AdditionalImages = []Image{}
	}
	for i := range p.AdditionalImages {
		p.AdditionalImages[i].trim()
	}
	if p.Colors == nil {
		p.Colors = []Color{}
	}
	for i := range p.Colors {
		p.Colors[i].Name = strings.TrimSpace(p.Colors[i].Name)
		p.Colors[i].Code = strings.TrimSpace(p.Colors[i].Code)
	}
	if p.Features == nil {
		p.Features = []Feature{}
	}
	for i := range p.Features {
		p.Features[i].Title = strings.TrimSpace(p.Features[i].Title)
		p.Features[i].Value = strings.TrimSpace(p.Features[i].Value)
	}
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}

	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.RecomputeRating()
}

func normalizeSlug(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
