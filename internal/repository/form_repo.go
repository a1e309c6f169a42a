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

// FormRepo handles MongoDB operations for forms
type FormRepo interface {
	Create(ctx context.Context, form *model.Form) error
	Upsert(ctx context.Context, form *model.Form) error
	GetByID(ctx context.Context, id string) (*model.Form, error)
	GetByCategory(ctx context.Context, categoryID string, activeOnly bool) ([]*model.Form, error)
}

type formRepo struct {
	collection *mongo.Collection
}

// NewFormRepo creates a new form repository
func NewFormRepo(db *mongo.Database) FormRepo {
	return &formRepo{
		collection: db.Collection("forms"),
	}
}

func (r *formRepo) Create(ctx context.Context, form *model.Form) error {
	if form.ID == "" {
		form.ID = primitive.NewObjectID().Hex()
	}
	form.CreatedAt = time.Now()
	form.UpdatedAt = form.CreatedAt

	_, err := r.collection.InsertOne(ctx, form)
	return err
}

func (r *formRepo) Upsert(ctx context.Context, form *model.Form) error {
	now := time.Now()
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	form.UpdatedAt = now

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": form.ID}, form, options.Replace().SetUpsert(true))
	return err
}

func (r *formRepo) GetByID(ctx context.Context, id string) (*model.Form, error) {
	var form model.Form
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&form)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &form, nil
}

func (r *formRepo) GetByCategory(ctx context.Context, categoryID string, activeOnly bool) ([]*model.Form, error) {
	filter := bson.M{"categoryId": categoryID}
	if activeOnly {
		filter["active"] = true
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "order", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	forms := []*model.Form{}
	if err = cursor.All(ctx, &forms); err != nil {
		return nil, err
	}
	return forms, nil
}
