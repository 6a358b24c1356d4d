package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront-service/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeDynamo keeps items in memory and understands the few condition
// expressions the adapter writes.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: map[string]map[string]types.AttributeValue{}}
}

func keyOf(item map[string]types.AttributeValue) string {
	return item["product_id"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[keyOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[keyOf(in.Item)] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]types.AttributeValue
	for k, it := range f.items {
		if strings.HasPrefix(k, slugClaimPrefix) {
			continue
		}
		out = append(out, it)
	}
	return &dynamodb.ScanOutput{Items: out, Count: int32(len(out))}, nil
}

func (f *fakeDynamo) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		var key, cond string
		var values map[string]types.AttributeValue
		switch {
		case ti.Put != nil:
			key, cond, values = keyOf(ti.Put.Item), aws.ToString(ti.Put.ConditionExpression), ti.Put.ExpressionAttributeValues
		case ti.Delete != nil:
			key, cond, values = keyOf(ti.Delete.Key), aws.ToString(ti.Delete.ConditionExpression), ti.Delete.ExpressionAttributeValues
		}
		if !f.holds(key, cond, values) {
			reasons[i].Code = aws.String("ConditionalCheckFailed")
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	for _, ti := range in.TransactItems {
		if ti.Put != nil {
			f.items[keyOf(ti.Put.Item)] = ti.Put.Item
		}
		if ti.Delete != nil {
			delete(f.items, keyOf(ti.Delete.Key))
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *fakeDynamo) holds(key, cond string, values map[string]types.AttributeValue) bool {
	existing, exists := f.items[key]
	switch cond {
	case "":
		return true
	case "attribute_not_exists(product_id)":
		return !exists
	case "attribute_exists(product_id)":
		return exists
	case "version = :v":
		if !exists {
			return false
		}
		stored, ok := existing["version"].(*types.AttributeValueMemberN)
		return ok && stored.Value == values[":v"].(*types.AttributeValueMemberN).Value
	}
	return false
}

func sampleProduct(slug string) *models.Product {
	p := &models.Product{
		User:             "seller-1",
		Name:             "Desk Lamp",
		Slug:             slug,
		MetaDescription:  "A lamp",
		Image:            &models.Image{Link: "http://s3/media/lamp.jpg", Alt: "Desk Lamp"},
		Brand:            "Lumen",
		Category:         models.CategoryRef{Name: "Lighting", Slug: "lighting"},
		Colors:           []models.Color{{Name: "Black", Code: "#000", Quantity: 3}},
		Features:         []models.Feature{{Title: "Power", Value: "40W", MainFeature: true}},
		ShortDescription: "Lamp",
		Description:      "A desk lamp",
		Price:            25,
	}
	p.Normalize(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	return p
}

func TestDynamoAdapter_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewDynamoAdapter(newFakeDynamo(), "products")

	p := sampleProduct("desk-lamp")
	require.NoError(t, repo.Create(ctx, p))
	assert.False(t, p.ID.IsZero())
	assert.Equal(t, int64(1), p.Version)

	byID, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, byID.Name)
	assert.Equal(t, p.Colors, byID.Colors)
	assert.Equal(t, *p.Image, *byID.Image)
	assert.True(t, p.CreatedAt.Equal(byID.CreatedAt))

	bySlug, err := repo.FindBySlug(ctx, "desk-lamp")
	require.NoError(t, err)
	assert.Equal(t, p.ID, bySlug.ID)

	_, err = repo.FindByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.FindBySlug(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDynamoAdapter_DuplicateSlugRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewDynamoAdapter(newFakeDynamo(), "products")

	require.NoError(t, repo.Create(ctx, sampleProduct("desk-lamp")))
	err := repo.Create(ctx, sampleProduct("desk-lamp"))
	assert.ErrorIs(t, err, ErrDuplicateSlug)

	products, total, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, int64(1), total)
}

func TestDynamoAdapter_UpdateIsVersioned(t *testing.T) {
	ctx := context.Background()
	repo := NewDynamoAdapter(newFakeDynamo(), "products")

	p := sampleProduct("desk-lamp")
	require.NoError(t, repo.Create(ctx, p))

	stale := *p
	_, err := p.AddReview(models.Review{Name: "Ann", Rating: 4, Comment: "nice", User: "u1"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, p))
	assert.Equal(t, int64(2), p.Version)

	stale.Price = 1
	assert.ErrorIs(t, repo.Update(ctx, &stale), ErrVersionConflict)

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NumReviews)
	assert.Equal(t, 4.0, got.Rating)
	assert.Equal(t, 25.0, got.Price)
}

func TestDynamoAdapter_UpdateMovesSlugClaim(t *testing.T) {
	ctx := context.Background()
	repo := NewDynamoAdapter(newFakeDynamo(), "products")

	a := sampleProduct("lamp-a")
	b := sampleProduct("lamp-b")
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	b.Slug = "lamp-a"
	assert.ErrorIs(t, repo.Update(ctx, b), ErrDuplicateSlug)

	b.Slug = "lamp-c"
	require.NoError(t, repo.Update(ctx, b))

	_, err := repo.FindBySlug(ctx, "lamp-b")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := repo.FindBySlug(ctx, "lamp-c")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestDynamoAdapter_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewDynamoAdapter(newFakeDynamo(), "products")

	p := sampleProduct("desk-lamp")
	require.NoError(t, repo.Create(ctx, p))
	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err := repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)

	// the slug is free again
	require.NoError(t, repo.Create(ctx, sampleProduct("desk-lamp")))
}

func TestDynamoAdapter_ListSkipLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewDynamoAdapter(newFakeDynamo(), "products")
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, repo.Create(ctx, sampleProduct("lamp-"+s)))
	}

	page, total, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, int64(5), total)

	tail, _, err := repo.List(ctx, 2, 4)
	require.NoError(t, err)
	assert.Len(t, tail, 1)
}
