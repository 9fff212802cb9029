package repository

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Collection names used by the learning platform's Mongo database.
const (
	CollectionUsers        = "users"
	CollectionGroups       = "groups"
	CollectionChapters     = "chapters"
	CollectionBlogs        = "blogs"
	CollectionQuizzes      = "quizzes"
	CollectionQuizAttempts = "quizattempts"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, decode func(bson.M) T) ([]T, error) {
	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", coll.Name(), err)
	}
	defer cursor.Close(ctx)

	result := make([]T, 0)
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", coll.Name(), err)
		}
		result = append(result, decode(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", coll.Name(), err)
	}
	return result, nil
}

// idFilter matches an _id stored either as an ObjectID or as its hex string.
func idFilter(ids ...string) bson.M {
	values := make(bson.A, 0, len(ids)*2)
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			values = append(values, oid)
		}
		values = append(values, id)
	}
	return bson.M{"_id": bson.M{"$in": values}}
}

func cohortFilter(cohort string) bson.M {
	cohort = strings.TrimSpace(cohort)
	if cohort == "" {
		return bson.M{}
	}
	pattern := `^\s*` + regexp.QuoteMeta(cohort) + `\s*$`
	return bson.M{"cohortApplied": primitive.Regex{Pattern: pattern, Options: "i"}}
}

// refString normalises a reference that may be an ObjectID, a string, or a populated sub-document.
func refString(v interface{}) string {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case string:
		return strings.TrimSpace(val)
	case bson.M:
		return refString(val["_id"])
	case bson.D:
		return refString(val.Map()["_id"])
	default:
		return ""
	}
}

func stringField(doc bson.M, key string) string {
	switch val := doc[key].(type) {
	case string:
		return strings.TrimSpace(val)
	case int32, int64, float64:
		return fmt.Sprint(val)
	default:
		return ""
	}
}

func boolField(doc bson.M, key string) bool {
	switch val := doc[key].(type) {
	case bool:
		return val
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && parsed
	default:
		return false
	}
}

func intField(doc bson.M, key string) int {
	switch val := doc[key].(type) {
	case int32:
		return int(val)
	case int64:
		return int(val)
	case float64:
		return int(val)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// numberField returns nil unless the stored value is numeric.
func numberField(doc bson.M, key string) *float64 {
	var out float64
	switch val := doc[key].(type) {
	case int32:
		out = float64(val)
	case int64:
		out = float64(val)
	case float64:
		out = val
	case primitive.Decimal128:
		parsed, err := strconv.ParseFloat(val.String(), 64)
		if err != nil {
			return nil
		}
		out = parsed
	default:
		return nil
	}
	return &out
}

func timeValue(v interface{}) *time.Time {
	var out time.Time
	switch val := v.(type) {
	case primitive.DateTime:
		out = val.Time().UTC()
	case time.Time:
		out = val.UTC()
	case string:
		raw := strings.TrimSpace(val)
		if raw == "" {
			return nil
		}
		parsed, ok := parseTime(raw)
		if !ok {
			return nil
		}
		out = parsed
	default:
		return nil
	}
	return &out
}

func parseTime(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func arrayField(doc bson.M, key string) []interface{} {
	switch val := doc[key].(type) {
	case bson.A:
		return val
	case []interface{}:
		return val
	default:
		return nil
	}
}

// dateString renders dateOfBirth consistently whether it was stored as a date or a string.
func dateString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case primitive.DateTime:
		return val.Time().UTC().Format("2006-01-02")
	case time.Time:
		return val.UTC().Format("2006-01-02")
	default:
		return ""
	}
}
