package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/learning-analytics-api/internal/models"
	appErrors "github.com/noah-isme/learning-analytics-api/pkg/errors"
)

// MongoUserRepository reads learner documents from the users collection.
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository constructs the repository.
func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{collection: db.Collection(CollectionUsers)}
}

// List returns users in natural order, optionally narrowed to one cohort.
func (r *MongoUserRepository) List(ctx context.Context, filter models.UserListFilter) ([]models.User, error) {
	return findAll(ctx, r.collection, cohortFilter(filter.Cohort), decodeUser)
}

// FindByID resolves one user by ObjectID or string id.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var doc bson.M
	err := r.collection.FindOne(ctx, idFilter(id)).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	user := decodeUser(doc)
	return &user, nil
}

func decodeUser(doc bson.M) models.User {
	user := models.User{
		ID:                 refString(doc["_id"]),
		FirstName:          stringField(doc, "firstName"),
		LastName:           stringField(doc, "lastName"),
		Email:              stringField(doc, "email"),
		Gender:             stringField(doc, "gender"),
		DateOfBirth:        dateString(doc["dateOfBirth"]),
		Country:            stringField(doc, "country"),
		State:              stringField(doc, "state"),
		City:               stringField(doc, "city"),
		CohortApplied:      stringField(doc, "cohortApplied"),
		ActivityLevel:      stringField(doc, "activityLevel"),
		IsActive:           boolField(doc, "isActive"),
		IsCertified:        boolField(doc, "isCertified"),
		CertificatesEarned: intField(doc, "certificatesEarned"),
		LastLogin:          timeValue(doc["lastLogin"]),
		CreatedAt:          timeValue(doc["createdAt"]),
		UpdatedAt:          timeValue(doc["updatedAt"]),
	}

	for _, raw := range arrayField(doc, "completedBlogs") {
		entry := decodeCompletedBlog(raw)
		if entry.ClassID == "" {
			continue
		}
		user.CompletedBlogs = append(user.CompletedBlogs, entry)
	}

	for _, raw := range arrayField(doc, "quizAttempts") {
		if id := refString(raw); id != "" {
			user.QuizAttemptIDs = append(user.QuizAttemptIDs, id)
		}
	}

	return user
}

// decodeCompletedBlog accepts both {blog, completedAt} entries and legacy bare references.
func decodeCompletedBlog(raw interface{}) models.CompletedBlog {
	var entry bson.M
	switch val := raw.(type) {
	case bson.M:
		entry = val
	case bson.D:
		entry = val.Map()
	default:
		return models.CompletedBlog{ClassID: refString(raw)}
	}

	if _, ok := entry["blog"]; !ok {
		return models.CompletedBlog{ClassID: refString(entry)}
	}
	return models.CompletedBlog{
		ClassID:     refString(entry["blog"]),
		CompletedAt: timeValue(entry["completedAt"]),
	}
}
