package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"audite/internal/model"
)

// CategoryRepo handles MongoDB operations for industry categories
type CategoryRepo interface {
	Create(ctx context.Context, category *model.Category) error
	Upsert(ctx context.Context, category *model.Category) error
	GetByID(ctx context.Context, id string) (*model.Category, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Category, error)
}

type categoryRepo struct {
	collection *mongo.Collection
}

// NewCategoryRepo creates a new category repository
func NewCategoryRepo(db *mongo.Database) CategoryRepo {
	return &categoryRepo{
		collection: db.Collection("categories"),
	}
}

func (r *categoryRepo) Create(ctx context.Context, category *model.Category) error {
	if category.ID == "" {
		category.ID = primitive.NewObjectID().Hex()
	}
	category.CreatedAt = time.Now()
	category.UpdatedAt = category.CreatedAt

	_, err := r.collection.InsertOne(ctx, category)
	return err
}

func (r *categoryRepo) Upsert(ctx context.Context, category *model.Category) error {
	now := time.Now()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": category.ID}, category, options.Replace().SetUpsert(true))
	return err
}

func (r *categoryRepo) GetByID(ctx context.Context, id string) (*model.Category, error) {
	var category model.Category
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&category)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *categoryRepo) List(ctx context.Context, activeOnly bool) ([]*model.Category, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	categories := []*model.Category{}
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}
