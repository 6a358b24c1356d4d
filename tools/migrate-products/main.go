// Command migrate-products rewrites legacy product documents (bare image URL,
// no gallery) into the structured shape, and can copy the catalog from
// MongoDB into the DynamoDB products table.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"storefront-service/database"
	"storefront-service/logger"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// legacyFilter matches documents still carrying the older shape.
var legacyFilter = bson.M{"$or": bson.A{
	bson.M{"image": bson.M{"$type": "string"}},
	bson.M{"additionalImages": bson.M{"$exists": false}},
}}

func main() {
	var mongoURI, dbName, table string
	var toDDB, dryRun bool
	flag.StringVar(&mongoURI, "mongo", os.Getenv("MONGO_DB_URL"), "MongoDB URI")
	flag.StringVar(&dbName, "db", os.Getenv("MONGO_DB_NAME"), "MongoDB database name")
	flag.StringVar(&table, "table", os.Getenv("DDB_TABLE_PRODUCTS"), "DynamoDB table name (with -to-ddb)")
	flag.BoolVar(&toDDB, "to-ddb", false, "copy every product into DynamoDB after upgrading")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	flag.Parse()

	logger.Initialize(os.Getenv("APP_ENV"))
	defer logger.Log.Sync()
	log := logger.Log

	if mongoURI == "" || dbName == "" {
		log.Fatal("MONGO_DB_URL and MONGO_DB_NAME must be set or provided via flags")
	}
	if table == "" {
		table = "Products"
	}

	ctx := context.Background()
	client, db, err := database.Connect(ctx, mongoURI, dbName)
	if err != nil {
		log.Fatal("mongo connect", zap.Error(err))
	}
	defer func() { _ = database.Close(client) }()
	coll := db.Collection("products")

	upgraded, err := upgradeLegacy(ctx, coll, dryRun, log)
	if err != nil {
		log.Fatal("legacy upgrade failed", zap.Error(err))
	}
	log.Info("legacy upgrade complete", zap.Int("upgraded", upgraded), zap.Bool("dry_run", dryRun))

	if !toDDB || dryRun {
		return
	}

	awsCfg, err := aws_pkg.LoadAWSConfig(ctx, aws_pkg.Options{
		Region:    os.Getenv("AWS_REGION"),
		Endpoint:  os.Getenv("AWS_ENDPOINT"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		log.Fatal("aws config", zap.Error(err))
	}
	ddbClient := aws_pkg.NewDynamoClient(awsCfg, os.Getenv("AWS_ENDPOINT"))

	copied, err := copyToDynamo(ctx, coll, repository.NewDynamoAdapter(ddbClient, table), log)
	if err != nil {
		log.Fatal("copy to dynamodb failed", zap.Error(err))
	}
	fmt.Printf("Migration complete. upgraded=%d copied=%d\n", upgraded, copied)
}

func upgradeLegacy(ctx context.Context, coll *mongo.Collection, dryRun bool, log *zap.Logger) (int, error) {
	batchSize := int32(500)
	cur, err := coll.Find(ctx, legacyFilter, &options.FindOptions{BatchSize: &batchSize})
	if err != nil {
		return 0, fmt.Errorf("find legacy products: %w", err)
	}
	defer cur.Close(ctx)

	count := 0
	for cur.Next(ctx) {
		p, changed, err := upgradeDocument(cur.Current, time.Now().UTC())
		if err != nil {
			log.Warn("skipping undecodable product", zap.Error(err))
			continue
		}
		if !changed {
			continue
		}
		if dryRun {
			log.Info("would upgrade product", zap.String("id", p.ID.Hex()), zap.String("slug", p.Slug))
			count++
			continue
		}
		if _, err := coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, p); err != nil {
			log.Error("failed to upgrade product", zap.String("id", p.ID.Hex()), zap.Error(err))
			continue
		}
		count++
		if count%100 == 0 {
			log.Info("upgraded products", zap.Int("count", count))
		}
	}
	if err := cur.Err(); err != nil {
		return count, fmt.Errorf("cursor: %w", err)
	}
	return count, nil
}

// upgradeDocument decodes either document shape and returns the structured
// product. The version is bumped when the document changed so that readers
// holding the old version retry.
func upgradeDocument(raw bson.Raw, now time.Time) (*models.Product, bool, error) {
	var p models.Product
	if raw.Lookup("image").Type == bson.TypeString {
		var legacy models.LegacyProduct
		if err := bson.Unmarshal(raw, &legacy); err != nil {
			return nil, false, fmt.Errorf("decode legacy product: %w", err)
		}
		p = models.FromLegacy(legacy)
		if v, ok := raw.Lookup("version").AsInt64OK(); ok {
			p.Version = v
		}
		p.Version++
		return &p, true, nil
	}

	if err := bson.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("decode product: %w", err)
	}
	if !p.UpgradeLegacy() {
		return &p, false, nil
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.Version++
	return &p, true, nil
}

func copyToDynamo(ctx context.Context, coll *mongo.Collection, repo repository.ProductRepo, log *zap.Logger) (int, error) {
	batchSize := int32(500)
	cur, err := coll.Find(ctx, bson.M{}, &options.FindOptions{BatchSize: &batchSize})
	if err != nil {
		return 0, fmt.Errorf("find products: %w", err)
	}
	defer cur.Close(ctx)

	count := 0
	for cur.Next(ctx) {
		var p models.Product
		if err := cur.Decode(&p); err != nil {
			log.Warn("decode error", zap.Error(err))
			continue
		}
		p.UpgradeLegacy()
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = p.CreatedAt
		}
		if err := repo.Create(ctx, &p); err != nil {
			log.Error("failed to write product to ddb", zap.String("id", p.ID.Hex()), zap.Error(err))
			continue
		}
		count++
		if count%100 == 0 {
			log.Info("copied products", zap.Int("count", count))
		}
	}
	if err := cur.Err(); err != nil {
		return count, fmt.Errorf("cursor: %w", err)
	}
	return count, nil
}
