package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/learning-analytics-api/internal/models"
)

// MongoGroupRepository reads courses.
type MongoGroupRepository struct {
	collection *mongo.Collection
}

// NewMongoGroupRepository constructs the repository.
func NewMongoGroupRepository(db *mongo.Database) *MongoGroupRepository {
	return &MongoGroupRepository{collection: db.Collection(CollectionGroups)}
}

// List returns every group in natural order.
func (r *MongoGroupRepository) List(ctx context.Context) ([]models.Group, error) {
	return findAll(ctx, r.collection, bson.M{}, func(doc bson.M) models.Group {
		return models.Group{ID: refString(doc["_id"]), Title: stringField(doc, "title")}
	})
}

// MongoChapterRepository reads chapters.
type MongoChapterRepository struct {
	collection *mongo.Collection
}

// NewMongoChapterRepository constructs the repository.
func NewMongoChapterRepository(db *mongo.Database) *MongoChapterRepository {
	return &MongoChapterRepository{collection: db.Collection(CollectionChapters)}
}

// List returns every chapter in natural order.
func (r *MongoChapterRepository) List(ctx context.Context) ([]models.Chapter, error) {
	return findAll(ctx, r.collection, bson.M{}, func(doc bson.M) models.Chapter {
		return models.Chapter{
			ID:      refString(doc["_id"]),
			Title:   stringField(doc, "title"),
			GroupID: refString(doc["group"]),
		}
	})
}

// MongoClassRepository reads classes from the blogs collection.
type MongoClassRepository struct {
	collection *mongo.Collection
}

// NewMongoClassRepository constructs the repository.
func NewMongoClassRepository(db *mongo.Database) *MongoClassRepository {
	return &MongoClassRepository{collection: db.Collection(CollectionBlogs)}
}

// List returns every class in natural order.
func (r *MongoClassRepository) List(ctx context.Context) ([]models.Class, error) {
	return findAll(ctx, r.collection, bson.M{}, decodeClass)
}

func decodeClass(doc bson.M) models.Class {
	class := models.Class{
		ID:        refString(doc["_id"]),
		Title:     stringField(doc, "title"),
		ChapterID: refString(doc["chapter"]),
		UpdatedAt: timeValue(doc["updatedAt"]),
	}
	for _, raw := range arrayField(doc, "completedBy") {
		if id := refString(raw); id != "" {
			class.CompletedBy = append(class.CompletedBy, id)
		}
	}
	return class
}

// MongoQuizRepository reads quizzes.
type MongoQuizRepository struct {
	collection *mongo.Collection
}

// NewMongoQuizRepository constructs the repository.
func NewMongoQuizRepository(db *mongo.Database) *MongoQuizRepository {
	return &MongoQuizRepository{collection: db.Collection(CollectionQuizzes)}
}

// List returns every quiz in natural order.
func (r *MongoQuizRepository) List(ctx context.Context) ([]models.Quiz, error) {
	return findAll(ctx, r.collection, bson.M{}, func(doc bson.M) models.Quiz {
		return models.Quiz{
			ID:      refString(doc["_id"]),
			Title:   stringField(doc, "title"),
			ClassID: refString(doc["blog"]),
		}
	})
}

// MongoQuizAttemptRepository reads quiz attempts.
type MongoQuizAttemptRepository struct {
	collection *mongo.Collection
}

// NewMongoQuizAttemptRepository constructs the repository.
func NewMongoQuizAttemptRepository(db *mongo.Database) *MongoQuizAttemptRepository {
	return &MongoQuizAttemptRepository{collection: db.Collection(CollectionQuizAttempts)}
}

// List returns every attempt in natural order.
func (r *MongoQuizAttemptRepository) List(ctx context.Context) ([]models.QuizAttempt, error) {
	return findAll(ctx, r.collection, bson.M{}, decodeQuizAttempt)
}

// ListByIDs returns the attempts whose ids are given. Unknown ids are ignored.
func (r *MongoQuizAttemptRepository) ListByIDs(ctx context.Context, ids []string) ([]models.QuizAttempt, error) {
	if len(ids) == 0 {
		return []models.QuizAttempt{}, nil
	}
	return findAll(ctx, r.collection, idFilter(ids...), decodeQuizAttempt)
}

func decodeQuizAttempt(doc bson.M) models.QuizAttempt {
	return models.QuizAttempt{
		ID:          refString(doc["_id"]),
		UserID:      refString(doc["user"]),
		QuizID:      refString(doc["quiz"]),
		Score:       numberField(doc, "score"),
		IsPassed:    boolField(doc, "isPassed"),
		CompletedAt: timeValue(doc["completedAt"]),
	}
}
