package models

import (
	"time"

	"github.com/google/uuid"
)

type Enrollment struct {
	ID         uuid.UUID `json:"id"`
	StudentID  uuid.UUID `json:"student_id"`
	CourseID   uuid.UUID `json:"course_id"`
	Progress   float64   `json:"progress"`
	IsActive   bool      `json:"is_active"`
	EnrolledAt time.Time `json:"enrolled_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CourseProgress struct {
	CourseID         uuid.UUID `json:"course_id"`
	StudentID        uuid.UUID `json:"student_id"`
	CompletedLessons int       `json:"completed_lessons"`
	TotalLessons     int       `json:"total_lessons"`
	Percentage       float64   `json:"percentage"`
	Active           bool      `json:"active"`
}

type EnrolledCourse struct {
	Course   Course         `json:"course"`
	Progress CourseProgress `json:"progress"`
}
