package models

import (
	"time"

	"github.com/google/uuid"
)

type Course struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CoursePreview struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	TotalLessons   int       `json:"total_lessons"`
	CompletionRate *float64  `json:"completion_rate,omitempty"`
}

type Section struct {
	ID          uuid.UUID `json:"id"`
	CourseID    uuid.UUID `json:"course_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

const (
	ResourceTypeFile = "file"
	ResourceTypeLink = "link"
)

type SectionResource struct {
	ID           uuid.UUID `json:"id"`
	SectionID    uuid.UUID `json:"section_id"`
	Title        string    `json:"title"`
	ResourceType string    `json:"resource_type"`
	URL          string    `json:"url,omitempty"`
	ObjectKey    string    `json:"-"`
	FileName     string    `json:"file_name,omitempty"`
	FileSize     int64     `json:"file_size,omitempty"`
	Order        int       `json:"order"`
	CreatedAt    time.Time `json:"created_at"`
}

type Chapter struct {
	ID          uuid.UUID `json:"id"`
	SectionID   uuid.UUID `json:"section_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CourseContent is every structural row of one course as read from the
// store, in no particular order.
type CourseContent struct {
	Course   Course
	Sections []Section
	Chapters []Chapter
	Modules  []Module
	Lessons  []Lesson
}
