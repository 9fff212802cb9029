package service

import "github.com/noah-isme/learning-analytics-api/internal/models"

// Hierarchy holds the course > chapter > class containment maps built from one snapshot.
// A record whose parent reference is empty or does not resolve to an entity in the snapshot
// is treated as orphaned and left out of the maps.
type Hierarchy struct {
	ChapterToGroup   map[string]string
	ClassToChapter   map[string]string
	QuizToClass      map[string]string
	ClassesByChapter map[string][]string
	ChaptersByGroup  map[string][]string
}

// HierarchyCompletion is the derived completion state of one user.
type HierarchyCompletion struct {
	Chapters map[string]struct{}
	Groups   map[string]struct{}
}

// BuildHierarchy indexes the containment references. Quizzes may be nil.
func BuildHierarchy(groups []models.Group, chapters []models.Chapter, classes []models.Class, quizzes []models.Quiz) *Hierarchy {
	h := &Hierarchy{
		ChapterToGroup:   make(map[string]string, len(chapters)),
		ClassToChapter:   make(map[string]string, len(classes)),
		QuizToClass:      make(map[string]string, len(quizzes)),
		ClassesByChapter: make(map[string][]string),
		ChaptersByGroup:  make(map[string][]string),
	}

	groupIDs := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		groupIDs[group.ID] = struct{}{}
	}
	for _, chapter := range chapters {
		if _, ok := groupIDs[chapter.GroupID]; !ok || chapter.GroupID == "" {
			continue
		}
		h.ChapterToGroup[chapter.ID] = chapter.GroupID
		h.ChaptersByGroup[chapter.GroupID] = append(h.ChaptersByGroup[chapter.GroupID], chapter.ID)
	}

	chapterIDs := make(map[string]struct{}, len(chapters))
	for _, chapter := range chapters {
		chapterIDs[chapter.ID] = struct{}{}
	}
	for _, class := range classes {
		if _, ok := chapterIDs[class.ChapterID]; !ok || class.ChapterID == "" {
			continue
		}
		h.ClassToChapter[class.ID] = class.ChapterID
		h.ClassesByChapter[class.ChapterID] = append(h.ClassesByChapter[class.ChapterID], class.ID)
	}

	classIDs := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		classIDs[class.ID] = struct{}{}
	}
	for _, quiz := range quizzes {
		if _, ok := classIDs[quiz.ClassID]; !ok || quiz.ClassID == "" {
			continue
		}
		h.QuizToClass[quiz.ID] = quiz.ClassID
	}

	return h
}

// GroupOfClass resolves the course containing a class.
func (h *Hierarchy) GroupOfClass(classID string) (string, bool) {
	chapterID, ok := h.ClassToChapter[classID]
	if !ok {
		return "", false
	}
	groupID, ok := h.ChapterToGroup[chapterID]
	return groupID, ok
}

// ChapterOfQuiz resolves the chapter containing a quiz.
func (h *Hierarchy) ChapterOfQuiz(quizID string) (string, bool) {
	classID, ok := h.QuizToClass[quizID]
	if !ok {
		return "", false
	}
	chapterID, ok := h.ClassToChapter[classID]
	return chapterID, ok
}

// GroupOfQuiz resolves the course containing a quiz.
func (h *Hierarchy) GroupOfQuiz(quizID string) (string, bool) {
	classID, ok := h.QuizToClass[quizID]
	if !ok {
		return "", false
	}
	return h.GroupOfClass(classID)
}

// Resolve derives completed chapters and courses from a set of completed classes.
// A chapter is complete only when it has at least one class and every one of them is completed.
// A course is complete only when it has at least one chapter with classes and every such chapter is complete.
func (h *Hierarchy) Resolve(completedClasses map[string]struct{}) HierarchyCompletion {
	result := HierarchyCompletion{
		Chapters: make(map[string]struct{}),
		Groups:   make(map[string]struct{}),
	}

	for chapterID, classIDs := range h.ClassesByChapter {
		if len(classIDs) == 0 {
			continue
		}
		done := true
		for _, classID := range classIDs {
			if _, ok := completedClasses[classID]; !ok {
				done = false
				break
			}
		}
		if done {
			result.Chapters[chapterID] = struct{}{}
		}
	}

	for groupID, chapterIDs := range h.ChaptersByGroup {
		qualifying := 0
		done := true
		for _, chapterID := range chapterIDs {
			if len(h.ClassesByChapter[chapterID]) == 0 {
				continue
			}
			qualifying++
			if _, ok := result.Chapters[chapterID]; !ok {
				done = false
				break
			}
		}
		if qualifying > 0 && done {
			result.Groups[groupID] = struct{}{}
		}
	}

	return result
}
