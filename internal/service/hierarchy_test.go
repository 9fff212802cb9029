package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildHierarchyOmitsOrphans(t *testing.T) {
	snap := contentFixture()
	h := BuildHierarchy(snap.Groups, snap.Chapters, snap.Classes, snap.Quizzes)

	assert.Equal(t, "g1", h.ChapterToGroup["h1"])
	assert.NotContains(t, h.ChapterToGroup, "h5")
	assert.Equal(t, "h5", h.ClassToChapter["c5"])
	assert.NotContains(t, h.QuizToClass, "q3")

	_, ok := h.GroupOfClass("c5")
	assert.False(t, ok)

	groupID, ok := h.GroupOfQuiz("q2")
	assert.True(t, ok)
	assert.Equal(t, "g2", groupID)

	chapterID, ok := h.ChapterOfQuiz("q1")
	assert.True(t, ok)
	assert.Equal(t, "h1", chapterID)
}

func TestHierarchyResolveSingleClassChapterCompletesCourse(t *testing.T) {
	snap := contentFixture()
	h := BuildHierarchy(snap.Groups, snap.Chapters, snap.Classes, nil)

	result := h.Resolve(map[string]struct{}{"c4": {}})

	assert.Contains(t, result.Chapters, "h3")
	assert.Contains(t, result.Groups, "g2")
}

func TestHierarchyResolvePartialChapter(t *testing.T) {
	snap := contentFixture()
	h := BuildHierarchy(snap.Groups, snap.Chapters, snap.Classes, nil)

	result := h.Resolve(map[string]struct{}{"c1": {}, "c2": {}})

	assert.Contains(t, result.Chapters, "h1")
	assert.NotContains(t, result.Chapters, "h2")
	assert.NotContains(t, result.Groups, "g1")

	result = h.Resolve(map[string]struct{}{"c1": {}, "c2": {}, "c3": {}})
	assert.Contains(t, result.Groups, "g1")
}

func TestHierarchyResolveEmptyChapterNeverComplete(t *testing.T) {
	snap := contentFixture()
	h := BuildHierarchy(snap.Groups, snap.Chapters, snap.Classes, nil)

	result := h.Resolve(map[string]struct{}{"c1": {}, "c2": {}, "c3": {}, "c4": {}, "c5": {}})

	assert.NotContains(t, result.Chapters, "h4")
	assert.NotContains(t, result.Groups, "g3")
	// h5 is complete on its own classes even though its course is unknown.
	assert.Contains(t, result.Chapters, "h5")
}
