package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LegacyProduct is the older document shape: the main image is a bare URL
// string and there is no gallery.
type LegacyProduct struct {
	ID               primitive.ObjectID `bson:"_id,omitempty"`
	User             string             `bson:"user"`
	Name             string             `bson:"name"`
	Slug             string             `bson:"slug"`
	MetaDescription  string             `bson:"metaDescription"`
	Image            string             `bson:"image"`
	Brand            string             `bson:"brand"`
	Category         CategoryRef        `bson:"category"`
	Subcategory      *SubcategoryRef    `bson:"subcategory,omitempty"`
	Colors           []Color            `bson:"colors"`
	Features         []Feature          `bson:"features"`
	ShortDescription string             `bson:"shortDescription"`
	Description      string             `bson:"description"`
	Reviews          []Review           `bson:"reviews"`
	Price            float64            `bson:"price"`
	PriceWithOff     float64            `bson:"priceWithOff"`
	Discount         float64            `bson:"discount"`
	IsAmazingOffer   bool               `bson:"isAmazingOffer"`
	CountInStock     int                `bson:"countInStock"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

// FromLegacy converts a legacy document into the structured shape. The bare
// URL becomes {link: url, alt: name} and the gallery starts empty. Rating and
// numReviews are recomputed rather than trusted.
func FromLegacy(l LegacyProduct) Product {
	p := Product{
		ID:               l.ID,
		User:             l.User,
		Name:             l.Name,
		Slug:             l.Slug,
		MetaDescription:  l.MetaDescription,
		AdditionalImages: []Image{},
		Brand:            l.Brand,
		Category:         l.Category,
		Subcategory:      l.Subcategory,
		Colors:           l.Colors,
		Features:         l.Features,
		ShortDescription: l.ShortDescription,
		Description:      l.Description,
		Reviews:          l.Reviews,
		Price:            l.Price,
		PriceWithOff:     l.PriceWithOff,
		Discount:         l.Discount,
		IsAmazingOffer:   l.IsAmazingOffer,
		CountInStock:     l.CountInStock,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
	if l.Image != "" {
		p.Image = &Image{Link: l.Image, Alt: l.Name}
	}
	p.UpgradeLegacy()
	return p
}

// UpgradeLegacy repairs a product decoded from a legacy document: an image
// without alt text takes the product name and missing sequences become empty.
// It reports whether anything changed.
func (p *Product) UpgradeLegacy() bool {
	changed := false
	if p.Image != nil && p.Image.Link != "" && p.Image.Alt == "" {
		p.Image.Alt = p.Name
		changed = true
	}
	if p.AdditionalImages == nil {
		p.AdditionalImages = []Image{}
		changed = true
	}
	if p.Colors == nil {
		p.Colors = []Color{}
	}
	if p.Features == nil {
		p.Features = []Feature{}
	}
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
	before := p.Rating
	beforeCount := p.NumReviews
	p.RecomputeRating()
	if before != p.Rating || beforeCount != p.NumReviews {
		changed = true
	}
	return changed
}
