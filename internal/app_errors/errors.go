package app_errors

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a service wraps exactly one of them.
var (
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrNotEnrolled   = errors.New("not enrolled")
	ErrConflict      = errors.New("conflict")
	ErrRemoteFailure = errors.New("remote failure")
	ErrForbidden     = errors.New("forbidden")
	ErrUnauthorized  = errors.New("unauthorized")
)

var ErrUserExists = kind(ErrConflict, "user already exists")
var ErrUserNotFound = kind(ErrNotFound, "user not found")
var ErrIncorrectPassword = kind(ErrUnauthorized, "incorrect password")
var ErrInactiveProfile = kind(ErrUnauthorized, "profile is not active")
var ErrTokenNotFound = kind(ErrUnauthorized, "token not found")
var ErrTokenExpired = kind(ErrUnauthorized, "token expired")
var ErrAdminOnly = kind(ErrForbidden, "admin role required")
var ErrInvalidToken = kind(ErrUnauthorized, "invalid token")
var ErrPasswordLength = kind(ErrValidation, "password must be 6 to 72 characters")
var ErrNotStudent = kind(ErrValidation, "profile is not a student")

var ErrCourseNotFound = kind(ErrNotFound, "course not found")
var ErrSectionNotFound = kind(ErrNotFound, "section not found")
var ErrChapterNotFound = kind(ErrNotFound, "chapter not found")
var ErrModuleNotFound = kind(ErrNotFound, "module not found")
var ErrLessonNotFound = kind(ErrNotFound, "lesson not found")
var ErrResourceNotFound = kind(ErrNotFound, "resource not found")
var ErrEnrollmentNotFound = kind(ErrNotEnrolled, "no enrollment for student and course")
var ErrEnrollmentInactive = kind(ErrNotEnrolled, "enrollment is inactive")

var ErrEmptyTitle = kind(ErrValidation, "title is required")
var ErrDuplicateOrder = kind(ErrConflict, "order index already used by a sibling")
var ErrReorderMismatch = kind(ErrConflict, "reorder ids do not match current children")
var ErrPrerequisitesIncomplete = kind(ErrValidation, "lesson prerequisites are not complete")
var ErrLessonNotReleased = kind(ErrValidation, "lesson is not released yet")
var ErrNotVideo = kind(ErrValidation, "not a video")
var ErrFileSize = kind(ErrValidation, "file size error")

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func kind(k error, msg string) error {
	return &kindError{kind: k, msg: msg}
}

// Validation returns an ErrValidation with a formatted message.
func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Remote marks err as a failed call to a collaborator (store, search, mail).
// Errors that already carry a kind are returned unchanged.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	if HasKind(err) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrRemoteFailure, err)
}

// HasKind reports whether err wraps one of the error kinds.
func HasKind(err error) bool {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrNotEnrolled, ErrConflict, ErrRemoteFailure, ErrForbidden, ErrUnauthorized} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
