package models

import (
	"time"

	"github.com/google/uuid"
)

type Module struct {
	ID          uuid.UUID `json:"id"`
	ChapterID   uuid.UUID `json:"chapter_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NodeKind names a level of the course hierarchy.
type NodeKind string

const (
	KindCourse  NodeKind = "course"
	KindSection NodeKind = "section"
	KindChapter NodeKind = "chapter"
	KindModule  NodeKind = "module"
	KindLesson  NodeKind = "lesson"
)

// ChildKind returns the kind of the immediate children of k.
func (k NodeKind) ChildKind() (NodeKind, bool) {
	switch k {
	case KindCourse:
		return KindSection, true
	case KindSection:
		return KindChapter, true
	case KindChapter:
		return KindModule, true
	case KindModule:
		return KindLesson, true
	}
	return "", false
}

func (k NodeKind) Valid() bool {
	switch k {
	case KindCourse, KindSection, KindChapter, KindModule, KindLesson:
		return true
	}
	return false
}

type NodeRef struct {
	Kind NodeKind  `json:"kind"`
	ID   uuid.UUID `json:"id"`
}
