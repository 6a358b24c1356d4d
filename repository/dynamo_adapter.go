package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/models"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const slugClaimPrefix = "slug#"

// DynamoAPI is the subset of the DynamoDB client the adapter uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoAdapter is a DynamoDB-backed ProductRepo. Products live in a table
// keyed by `product_id` (hex ObjectID). Slug uniqueness is kept with a claim
// item `slug#<slug>` in the same table, written in the product's transaction.
type DynamoAdapter struct {
	client DynamoAPI
	table  string
}

func NewDynamoAdapter(client DynamoAPI, table string) *DynamoAdapter {
	return &DynamoAdapter{client: client, table: table}
}

type ddbImage struct {
	Link string `dynamodbav:"link"`
	Alt  string `dynamodbav:"alt"`
}

type ddbCategory struct {
	Name string `dynamodbav:"name"`
	Slug string `dynamodbav:"slug"`
}

type ddbColor struct {
	Name     string `dynamodbav:"name"`
	Code     string `dynamodbav:"code"`
	Quantity int    `dynamodbav:"quantity"`
}

type ddbFeature struct {
	Title       string `dynamodbav:"title"`
	Value       string `dynamodbav:"value"`
	MainFeature bool   `dynamodbav:"main_feature"`
}

type ddbReview struct {
	ID        string `dynamodbav:"review_id"`
	Name      string `dynamodbav:"name"`
	Rating    int    `dynamodbav:"rating"`
	Comment   string `dynamodbav:"comment"`
	User      string `dynamodbav:"user"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

type ddbProduct struct {
	ProductID        string       `dynamodbav:"product_id"`
	User             string       `dynamodbav:"user"`
	Name             string       `dynamodbav:"name"`
	Slug             string       `dynamodbav:"slug"`
	MetaDescription  string       `dynamodbav:"meta_description"`
	Image            *ddbImage    `dynamodbav:"image,omitempty"`
	AdditionalImages []ddbImage   `dynamodbav:"additional_images"`
	Brand            string       `dynamodbav:"brand"`
	Category         ddbCategory  `dynamodbav:"category"`
	Subcategory      *ddbCategory `dynamodbav:"subcategory,omitempty"`
	Colors           []ddbColor   `dynamodbav:"colors"`
	Features         []ddbFeature `dynamodbav:"features"`
	ShortDescription string       `dynamodbav:"short_description"`
	Description      string       `dynamodbav:"description"`
	Reviews          []ddbReview  `dynamodbav:"reviews"`
	Rating           float64      `dynamodbav:"rating"`
	NumReviews       int          `dynamodbav:"num_reviews"`
	Price            float64      `dynamodbav:"price"`
	PriceWithOff     float64      `dynamodbav:"price_with_off"`
	Discount         float64      `dynamodbav:"discount"`
	IsAmazingOffer   bool         `dynamodbav:"is_amazing_offer"`
	CountInStock     int          `dynamodbav:"count_in_stock"`
	Version          int64        `dynamodbav:"version"`
	CreatedAt        string       `dynamodbav:"created_at"`
	UpdatedAt        string       `dynamodbav:"updated_at"`
}

type ddbSlugClaim struct {
	ProductID string `dynamodbav:"product_id"`
	OwnerID   string `dynamodbav:"owner_id"`
}

func toDDB(p *models.Product) ddbProduct {
	dp := ddbProduct{
		ProductID:        p.ID.Hex(),
		User:             p.User,
		Name:             p.Name,
		Slug:             p.Slug,
		MetaDescription:  p.MetaDescription,
		AdditionalImages: make([]ddbImage, 0, len(p.AdditionalImages)),
		Brand:            p.Brand,
		Category:         ddbCategory(p.Category),
		Colors:           make([]ddbColor, 0, len(p.Colors)),
		Features:         make([]ddbFeature, 0, len(p.Features)),
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Reviews:          make([]ddbReview, 0, len(p.Reviews)),
		Rating:           p.Rating,
		NumReviews:       p.NumReviews,
		Price:            p.Price,
		PriceWithOff:     p.PriceWithOff,
		Discount:         p.Discount,
		IsAmazingOffer:   p.IsAmazingOffer,
		CountInStock:     p.CountInStock,
		Version:          p.Version,
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if p.Image != nil {
		dp.Image = &ddbImage{Link: p.Image.Link, Alt: p.Image.Alt}
	}
	if p.Subcategory != nil {
		dp.Subcategory = &ddbCategory{Name: p.Subcategory.Name, Slug: p.Subcategory.Slug}
	}
	for _, img := range p.AdditionalImages {
		dp.AdditionalImages = append(dp.AdditionalImages, ddbImage(img))
	}
	for _, c := range p.Colors {
		dp.Colors = append(dp.Colors, ddbColor(c))
	}
	for _, f := range p.Features {
		dp.Features = append(dp.Features, ddbFeature(f))
	}
	for _, r := range p.Reviews {
		dp.Reviews = append(dp.Reviews, ddbReview{
			ID:        r.ID.Hex(),
			Name:      r.Name,
			Rating:    r.Rating,
			Comment:   r.Comment,
			User:      r.User,
			CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339Nano),
			UpdatedAt: r.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return dp
}

func fromDDB(dp ddbProduct) *models.Product {
	p := &models.Product{
		User:             dp.User,
		Name:             dp.Name,
		Slug:             dp.Slug,
		MetaDescription:  dp.MetaDescription,
		AdditionalImages: make([]models.Image, 0, len(dp.AdditionalImages)),
		Brand:            dp.Brand,
		Category:         models.CategoryRef(dp.Category),
		Colors:           make([]models.Color, 0, len(dp.Colors)),
		Features:         make([]models.Feature, 0, len(dp.Features)),
		ShortDescription: dp.ShortDescription,
		Description:      dp.Description,
		Reviews:          make([]models.Review, 0, len(dp.Reviews)),
		Rating:           dp.Rating,
		NumReviews:       dp.NumReviews,
		Price:            dp.Price,
		PriceWithOff:     dp.PriceWithOff,
		Discount:         dp.Discount,
		IsAmazingOffer:   dp.IsAmazingOffer,
		CountInStock:     dp.CountInStock,
		Version:          dp.Version,
		CreatedAt:        parseTime(dp.CreatedAt),
		UpdatedAt:        parseTime(dp.UpdatedAt),
	}
	p.ID, _ = primitive.ObjectIDFromHex(dp.ProductID)
	if dp.Image != nil {
		p.Image = &models.Image{Link: dp.Image.Link, Alt: dp.Image.Alt}
	}
	if dp.Subcategory != nil {
		p.Subcategory = &models.SubcategoryRef{Name: dp.Subcategory.Name, Slug: dp.Subcategory.Slug}
	}
	for _, img := range dp.AdditionalImages {
		p.AdditionalImages = append(p.AdditionalImages, models.Image(img))
	}
	for _, c := range dp.Colors {
		p.Colors = append(p.Colors, models.Color(c))
	}
	for _, f := range dp.Features {
		p.Features = append(p.Features, models.Feature(f))
	}
	for _, r := range dp.Reviews {
		id, _ := primitive.ObjectIDFromHex(r.ID)
		p.Reviews = append(p.Reviews, models.Review{
			ID:        id,
			Name:      r.Name,
			Rating:    r.Rating,
			Comment:   r.Comment,
			User:      r.User,
			CreatedAt: parseTime(r.CreatedAt),
			UpdatedAt: parseTime(r.UpdatedAt),
		})
	}
	return p
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d *DynamoAdapter) EnsureIndexes(ctx context.Context) error {
	// Table creation is handled by infrastructure init.
	return nil
}

func (d *DynamoAdapter) Create(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	product.Version = 1

	item, err := attributevalue.MarshalMap(toDDB(product))
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}
	claim, err := d.slugClaim(product)
	if err != nil {
		return err
	}

	_, err = d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           &d.table,
				Item:                item,
				ConditionExpression: sdkaws.String("attribute_not_exists(product_id)"),
			}},
			{Put: &types.Put{
				TableName:           &d.table,
				Item:                claim,
				ConditionExpression: sdkaws.String("attribute_not_exists(product_id)"),
			}},
		},
	})
	if err != nil {
		if conditionFailedAt(err, 1) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("dynamodb create product failed: %w", err)
	}
	return nil
}

func (d *DynamoAdapter) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &d.table,
		Key:            productKey(id.Hex()),
		ConsistentRead: sdkaws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var dp ddbProduct
	if err := attributevalue.UnmarshalMap(out.Item, &dp); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return fromDDB(dp), nil
}

func (d *DynamoAdapter) FindBySlug(ctx context.Context, slug string) (*models.Product, error) {
	out, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &d.table,
		Key:       productKey(slugClaimPrefix + slug),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb GetItem failed: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, ErrNotFound
	}
	var claim ddbSlugClaim
	if err := attributevalue.UnmarshalMap(out.Item, &claim); err != nil {
		return nil, fmt.Errorf("unmarshal slug claim: %w", err)
	}
	id, err := primitive.ObjectIDFromHex(claim.OwnerID)
	if err != nil {
		return nil, ErrNotFound
	}
	return d.FindByID(ctx, id)
}

// List scans the table skipping slug claims. DynamoDB scans are unordered.
func (d *DynamoAdapter) List(ctx context.Context, limit, skip int) ([]*models.Product, int64, error) {
	input := &dynamodb.ScanInput{
		TableName:        &d.table,
		FilterExpression: sdkaws.String("NOT begins_with(product_id, :claim)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":claim": &types.AttributeValueMemberS{Value: slugClaimPrefix},
		},
	}

	results := []*models.Product{}
	var total int64
	paginator := dynamodb.NewScanPaginator(d.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("scan page failed: %w", err)
		}
		for _, it := range page.Items {
			total++
			if total <= int64(skip) {
				continue
			}
			if limit > 0 && len(results) >= limit {
				continue
			}
			var dp ddbProduct
			if err := attributevalue.UnmarshalMap(it, &dp); err != nil {
				return nil, 0, fmt.Errorf("unmarshal item: %w", err)
			}
			results = append(results, fromDDB(dp))
		}
	}
	return results, total, nil
}

// Update writes the product if the stored version still matches, moving the
// slug claim in the same transaction when the slug changed.
func (d *DynamoAdapter) Update(ctx context.Context, product *models.Product) error {
	current, err := d.FindByID(ctx, product.ID)
	if err != nil {
		return err
	}
	if current.Version != product.Version {
		return ErrVersionConflict
	}

	next := *product
	next.Version = product.Version + 1
	item, err := attributevalue.MarshalMap(toDDB(&next))
	if err != nil {
		return fmt.Errorf("marshal product: %w", err)
	}

	put := types.TransactWriteItem{Put: &types.Put{
		TableName:           &d.table,
		Item:                item,
		ConditionExpression: sdkaws.String("version = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", product.Version)},
		},
	}}
	items := []types.TransactWriteItem{put}

	if current.Slug != product.Slug {
		claim, err := d.slugClaim(product)
		if err != nil {
			return err
		}
		items = append(items,
			types.TransactWriteItem{Put: &types.Put{
				TableName:           &d.table,
				Item:                claim,
				ConditionExpression: sdkaws.String("attribute_not_exists(product_id)"),
			}},
			types.TransactWriteItem{Delete: &types.Delete{
				TableName: &d.table,
				Key:       productKey(slugClaimPrefix + current.Slug),
			}},
		)
	}

	if _, err := d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		switch {
		case conditionFailedAt(err, 0):
			return ErrVersionConflict
		case conditionFailedAt(err, 1):
			return ErrDuplicateSlug
		}
		return fmt.Errorf("dynamodb update product failed: %w", err)
	}
	product.Version = next.Version
	return nil
}

func (d *DynamoAdapter) Delete(ctx context.Context, id primitive.ObjectID) error {
	current, err := d.FindByID(ctx, id)
	if err != nil {
		return err
	}
	_, err = d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           &d.table,
				Key:                 productKey(id.Hex()),
				ConditionExpression: sdkaws.String("attribute_exists(product_id)"),
			}},
			{Delete: &types.Delete{
				TableName: &d.table,
				Key:       productKey(slugClaimPrefix + current.Slug),
			}},
		},
	})
	if err != nil {
		if conditionFailedAt(err, 0) {
			return ErrNotFound
		}
		return fmt.Errorf("dynamodb delete product failed: %w", err)
	}
	return nil
}

func (d *DynamoAdapter) slugClaim(p *models.Product) (map[string]types.AttributeValue, error) {
	claim, err := attributevalue.MarshalMap(ddbSlugClaim{
		ProductID: slugClaimPrefix + p.Slug,
		OwnerID:   p.ID.Hex(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal slug claim: %w", err)
	}
	return claim, nil
}

func productKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"product_id": &types.AttributeValueMemberS{Value: id},
	}
}

// conditionFailedAt reports whether a cancelled transaction failed the
// condition check of the item at index i.
func conditionFailedAt(err error, i int) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	if i >= len(canceled.CancellationReasons) {
		return false
	}
	code := canceled.CancellationReasons[i].Code
	return code != nil && *code == "ConditionalCheckFailed"
}
