// Package enrollment lets admins manage students and their course
// assignments.
package enrollment

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"EduHub/internal/service/auth"
	"EduHub/pkg/logger"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type profileRepo interface {
	CreateProfile(ctx context.Context, p models.Profile) error
	ProfileByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	ProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
	ListProfiles(ctx context.Context, role string) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd models.ProfileUpdate) (*models.Profile, error)
}

type enrollmentRepo interface {
	ActivateEnrollment(ctx context.Context, studentID, courseID uuid.UUID) (*models.Enrollment, error)
	DeactivateEnrollment(ctx context.Context, studentID, courseID uuid.UUID, progress float64) error
	EnrollmentsByCourse(ctx context.Context, courseID uuid.UUID) ([]models.Enrollment, error)
	EnrollmentsByStudent(ctx context.Context, studentID uuid.UUID) ([]models.Enrollment, error)
}

// settler computes the live progress of a student and hands it to fn while
// completions for that student and course are held back.
type settler interface {
	Settle(ctx context.Context, studentID, courseID uuid.UUID, fn func(ctx context.Context, progress float64) error) error
}

type mailer interface {
	SendInvite(ctx context.Context, name, email, link string) error
	SendPasswordReset(ctx context.Context, name, email, link string) error
}

type EnrollmentService struct {
	log         logger.Log
	profiles    profileRepo
	enrollments enrollmentRepo
	progress    settler
	actions     *auth.ActionTokens
	mail        mailer
	appURL      string
	timeout     time.Duration
}

func NewEnrollmentService(
	log logger.Log,
	profiles profileRepo,
	enrollments enrollmentRepo,
	progress settler,
	actions *auth.ActionTokens,
	mail mailer,
	appURL string,
	remoteTimeout time.Duration,
) *EnrollmentService {
	if remoteTimeout <= 0 {
		remoteTimeout = 5 * time.Second
	}
	return &EnrollmentService{
		log:         log,
		profiles:    profiles,
		enrollments: enrollments,
		progress:    progress,
		actions:     actions,
		mail:        mail,
		appURL:      appURL,
		timeout:     remoteTimeout,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type InviteInput struct {
	Email string `json:"email" validate:"required,email,max=255"`
	Name  string `json:"name" validate:"required,max=255"`
}

type StudentUpdate struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,max=32"`
	IsActive    *bool   `json:"is_active"`
}

func checkInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		return app_errors.Validation("invalid input: %s", strings.Join(msgs, "; "))
	}
	return app_errors.Validation("invalid input: %v", err)
}

func (s *EnrollmentService) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func requireAdmin(actor models.Actor) error {
	if !actor.IsAdmin() {
		return app_errors.ErrAdminOnly
	}
	return nil
}

func (s *EnrollmentService) student(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var p *models.Profile
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.profiles.ProfileByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("load profile", err)
	}
	if p.Role != models.StudentRole {
		return nil, app_errors.ErrNotStudent
	}
	return p, nil
}
