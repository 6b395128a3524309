package enrollment

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/models"
	"EduHub/internal/service/auth"
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Assign enrolls a student in a course, reactivating an earlier enrollment
// with its progress snapshot. Assigning twice is harmless.
func (s *EnrollmentService) Assign(ctx context.Context, actor models.Actor, studentID, courseID uuid.UUID) (*models.Enrollment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	var e *models.Enrollment
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		e, err = s.enrollments.ActivateEnrollment(ctx, studentID, courseID)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("assign", err)
	}
	s.log.Info("student assigned", "student_id", studentID, "course_id", courseID)
	return e, nil
}

// Unassign deactivates an enrollment and freezes the current live progress
// as its snapshot. Completions stay.
func (s *EnrollmentService) Unassign(ctx context.Context, actor models.Actor, studentID, courseID uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	err := s.progress.Settle(ctx, studentID, courseID, func(ctx context.Context, progress float64) error {
		return s.call(ctx, func(ctx context.Context) error {
			return s.enrollments.DeactivateEnrollment(ctx, studentID, courseID, progress)
		})
	})
	if err != nil {
		return app_errors.Remote("unassign", err)
	}
	s.log.Info("student unassigned", "student_id", studentID, "course_id", courseID)
	return nil
}

// Invite creates a pending student and mails a one-time link to set a
// password. When the mail cannot be sent the profile is kept and an
// ErrRemoteFailure is returned; a password reset sends a new link.
func (s *EnrollmentService) Invite(ctx context.Context, actor models.Actor, in InviteInput) (*models.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := checkInput(in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := models.Profile{
		ID:        uuid.New(),
		Name:      in.Name,
		Email:     in.Email,
		Role:      models.StudentRole,
		IsActive:  true,
		Pending:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.call(ctx, func(ctx context.Context) error { return s.profiles.CreateProfile(ctx, p) })
	if err != nil {
		return nil, app_errors.Remote("create profile", err)
	}

	var raw string
	err = s.call(ctx, func(ctx context.Context) error {
		var err error
		raw, err = s.actions.Issue(ctx, p.ID, models.ActionInvite)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = s.call(ctx, func(ctx context.Context) error {
		return s.mail.SendInvite(ctx, p.Name, p.Email, auth.Link(s.appURL, auth.InvitePath, raw))
	})
	if err != nil {
		s.log.ErrorErr("failed to send invite", err, "user_id", p.ID)
		return nil, app_errors.Remote("send invite", err)
	}
	s.log.Info("student invited", "user_id", p.ID)
	return &p, nil
}

func (s *EnrollmentService) ListStudents(ctx context.Context, actor models.Actor) ([]models.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var out []models.Profile
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.profiles.ListProfiles(ctx, models.StudentRole)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("list students", err)
	}
	if out == nil {
		out = []models.Profile{}
	}
	return out, nil
}

// UpdateStudent changes name, phone number or the active flag of a student.
func (s *EnrollmentService) UpdateStudent(ctx context.Context, actor models.Actor, studentID uuid.UUID, in StudentUpdate) (*models.Profile, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, app_errors.Validation("name is required")
		}
		in.Name = &name
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}
	if _, err := s.student(ctx, studentID); err != nil {
		return nil, err
	}
	var p *models.Profile
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.profiles.UpdateProfile(ctx, studentID, models.ProfileUpdate{
			Name:        in.Name,
			PhoneNumber: in.PhoneNumber,
			IsActive:    in.IsActive,
		})
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("update student", err)
	}
	return p, nil
}

// ResetStudentPassword mails a password reset link to a student. It also
// serves to resend an invitation that never arrived.
func (s *EnrollmentService) ResetStudentPassword(ctx context.Context, actor models.Actor, email string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	var p *models.Profile
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.profiles.ProfileByEmail(ctx, strings.TrimSpace(email))
		return err
	})
	if err != nil {
		return app_errors.Remote("load profile", err)
	}
	if p.Role != models.StudentRole {
		return app_errors.ErrNotStudent
	}
	return s.call(ctx, func(ctx context.Context) error {
		return auth.SendReset(ctx, s.actions, s.mail, s.appURL, p)
	})
}

// ListEnrollments returns the enrollments of a course, active or not.
func (s *EnrollmentService) ListEnrollments(ctx context.Context, actor models.Actor, courseID uuid.UUID) ([]models.Enrollment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var out []models.Enrollment
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.enrollments.EnrollmentsByCourse(ctx, courseID)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("list enrollments", err)
	}
	if out == nil {
		out = []models.Enrollment{}
	}
	return out, nil
}

// StudentEnrollments returns every enrollment of one student. Students may
// list their own.
func (s *EnrollmentService) StudentEnrollments(ctx context.Context, actor models.Actor, studentID uuid.UUID) ([]models.Enrollment, error) {
	if !actor.IsAdmin() && actor.ID != studentID {
		return nil, app_errors.ErrForbidden
	}
	var out []models.Enrollment
	err := s.call(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.enrollments.EnrollmentsByStudent(ctx, studentID)
		return err
	})
	if err != nil {
		return nil, app_errors.Remote("list enrollments", err)
	}
	if out == nil {
		out = []models.Enrollment{}
	}
	return out, nil
}
