package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"audite/internal/model"
)

// ErrAlreadySubmitted is returned when a session already has persisted answers
var ErrAlreadySubmitted = errors.New("answers already recorded for session")

// AnswerRepository handles MongoDB operations for submitted answers.
// Answers are immutable once written.
type AnswerRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateBatch(ctx context.Context, answers []*model.Answer) error
	GetBySessionID(ctx context.Context, sessionID string) ([]*model.Answer, error)
	ExistsForSession(ctx context.Context, sessionID string) (bool, error)
}

type answerRepository struct {
	collection *mongo.Collection
}

// NewAnswerRepository creates a new answer repository
func NewAnswerRepository(db *mongo.Database) AnswerRepository {
	return &answerRepository{
		collection: db.Collection("answers"),
	}
}

// EnsureIndexes enforces one answer per (session, question)
func (r *answerRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sessionId", Value: 1}, {Key: "questionId", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("session_question_unique"),
	})
	return err
}

// CreateBatch writes every answer of a session. On a failed write the
// documents already inserted for the batch are removed again.
func (r *answerRepository) CreateBatch(ctx context.Context, answers []*model.Answer) error {
	if len(answers) == 0 {
		return nil
	}

	now := time.Now()
	docs := make([]interface{}, len(answers))
	ids := make([]string, len(answers))
	for i, a := range answers {
		if a.ID == "" {
			a.ID = primitive.NewObjectID().Hex()
		}
		if a.AnsweredAt.IsZero() {
			a.AnsweredAt = now
		}
		docs[i] = a
		ids[i] = a.ID
	}

	_, err := r.collection.InsertMany(ctx, docs)
	if err == nil {
		return nil
	}
	if _, cleanupErr := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}}); cleanupErr != nil {
		return errors.Join(err, cleanupErr)
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadySubmitted
	}
	return err
}

func (r *answerRepository) GetBySessionID(ctx context.Context, sessionID string) ([]*model.Answer, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"sessionId": sessionID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var answers []*model.Answer
	if err = cursor.All(ctx, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

func (r *answerRepository) ExistsForSession(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"sessionId": sessionID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
