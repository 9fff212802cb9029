package service

import (
	"sort"
	"time"

	"github.com/noah-isme/learning-analytics-api/internal/models"
)

// CompletionSource names which stored field is authoritative for class completion.
type CompletionSource string

const (
	// CompletionSourceUser reads User.completedBlogs.
	CompletionSourceUser CompletionSource = "user"
	// CompletionSourceClass reads Class.completedBy.
	CompletionSourceClass CompletionSource = "class"
)

// CompletionRecord is one completion fact for a user.
type CompletionRecord struct {
	ClassID     string
	CompletedAt *time.Time
}

// CompletionIndex answers completion questions from a single canonical source so that no
// result mixes the two stored representations.
type CompletionIndex struct {
	source  CompletionSource
	records map[string][]CompletionRecord
	sets    map[string]map[string]struct{}
	byClass map[string][]string
}

// NewCompletionIndex builds the index. Under the class source, timestamps are borrowed from the
// user's own completedBlogs entries, falling back to the class's updatedAt, and each user's
// records are ordered oldest first with untimed records leading.
func NewCompletionIndex(source CompletionSource, users []models.User, classes []models.Class) *CompletionIndex {
	idx := &CompletionIndex{
		source:  source,
		records: make(map[string][]CompletionRecord),
		sets:    make(map[string]map[string]struct{}),
		byClass: make(map[string][]string),
	}

	switch source {
	case CompletionSourceClass:
		stamps := make(map[string]map[string]*time.Time, len(users))
		for _, user := range users {
			perClass := make(map[string]*time.Time)
			for _, entry := range user.CompletedBlogs {
				if entry.CompletedAt != nil && perClass[entry.ClassID] == nil {
					perClass[entry.ClassID] = entry.CompletedAt
				}
			}
			stamps[user.ID] = perClass
		}
		for _, class := range classes {
			for _, userID := range class.CompletedBy {
				if userID == "" || idx.has(userID, class.ID) {
					continue
				}
				completedAt := stamps[userID][class.ID]
				if completedAt == nil {
					completedAt = class.UpdatedAt
				}
				idx.add(userID, CompletionRecord{ClassID: class.ID, CompletedAt: completedAt})
			}
		}
		for _, records := range idx.records {
			sortByCompletion(records)
		}
	default:
		idx.source = CompletionSourceUser
		for _, user := range users {
			if user.ID == "" {
				continue
			}
			for _, entry := range user.CompletedBlogs {
				if entry.ClassID == "" {
					continue
				}
				idx.add(user.ID, CompletionRecord{ClassID: entry.ClassID, CompletedAt: entry.CompletedAt})
			}
		}
	}

	return idx
}

func sortByCompletion(records []CompletionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].CompletedAt, records[j].CompletedAt
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
}

func (idx *CompletionIndex) add(userID string, record CompletionRecord) {
	idx.records[userID] = append(idx.records[userID], record)
	set, ok := idx.sets[userID]
	if !ok {
		set = make(map[string]struct{})
		idx.sets[userID] = set
	}
	if _, seen := set[record.ClassID]; !seen {
		set[record.ClassID] = struct{}{}
		idx.byClass[record.ClassID] = append(idx.byClass[record.ClassID], userID)
	}
}

func (idx *CompletionIndex) has(userID, classID string) bool {
	_, ok := idx.sets[userID][classID]
	return ok
}

// Source reports the canonical source backing the index.
func (idx *CompletionIndex) Source() CompletionSource {
	return idx.source
}

// IsClassCompletedBy reports whether the user completed the class.
func (idx *CompletionIndex) IsClassCompletedBy(userID, classID string) bool {
	return idx.has(userID, classID)
}

// CompletedClasses returns the distinct classes the user completed. The map must not be modified.
func (idx *CompletionIndex) CompletedClasses(userID string) map[string]struct{} {
	if set, ok := idx.sets[userID]; ok {
		return set
	}
	return map[string]struct{}{}
}

// Records returns the user's completion entries, duplicates included. The user source keeps stored
// order; the class source is ordered by completion time.
func (idx *CompletionIndex) Records(userID string) []CompletionRecord {
	return idx.records[userID]
}

// Completers returns the distinct users who completed the class, in first-seen order.
func (idx *CompletionIndex) Completers(classID string) []string {
	return idx.byClass[classID]
}

// LatestCompletion returns the most recent timestamped completion for the user.
func (idx *CompletionIndex) LatestCompletion(userID string) *time.Time {
	var latest *time.Time
	for _, record := range idx.records[userID] {
		if record.CompletedAt == nil {
			continue
		}
		if latest == nil || record.CompletedAt.After(*latest) {
			latest = record.CompletedAt
		}
	}
	return latest
}
