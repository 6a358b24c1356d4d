package models

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type Image struct {
	Link string `json:"link" bson:"link" validate:"required"`
	Alt  string `json:"alt" bson:"alt" validate:"required"`
}

func (i *Image) trim() {
	i.Link = strings.TrimSpace(i.Link)
	i.Alt = strings.TrimSpace(i.Alt)
}

// UnmarshalBSONValue accepts both the structured {link, alt} document and the
// legacy plain URL string. A legacy string leaves Alt empty; UpgradeLegacy
// fills it from the product name.
func (i *Image) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeString:
		link, ok := raw.StringValueOK()
		if !ok {
			return fmt.Errorf("image: malformed string value")
		}
		*i = Image{Link: link}
		return nil
	case bson.TypeEmbeddedDocument:
		type plain Image
		var p plain
		if err := raw.Unmarshal(&p); err != nil {
			return fmt.Errorf("image: %w", err)
		}
		*i = Image(p)
		return nil
	case bson.TypeNull, bson.TypeUndefined:
		*i = Image{}
		return nil
	default:
		return fmt.Errorf("image: cannot decode BSON %s", t)
	}
}
