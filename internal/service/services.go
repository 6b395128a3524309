package service

import (
	"EduHub/internal/service/auth"
	"EduHub/internal/service/content"
	"EduHub/internal/service/course"
	"EduHub/internal/service/enrollment"
	"EduHub/internal/service/progress"
)

type Collection struct {
	Auth       *auth.AuthService
	Course     *course.CourseService
	Content    *content.HierarchyService
	Progress   *progress.ProgressService
	Enrollment *enrollment.EnrollmentService
}
