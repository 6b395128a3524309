package content

import (
	"EduHub/internal/app_errors"
	"EduHub/internal/coursetree"
	"EduHub/internal/models"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type NodeInput struct {
	Title       string `json:"title" validate:"max=255"`
	Description string `json:"description" validate:"max=5000"`
}

type LessonInput struct {
	Title           string      `json:"title" validate:"max=255"`
	ContentType     string      `json:"content_type" validate:"oneof=text video video_text"`
	Body            *string     `json:"body"`
	VideoURL        string      `json:"video_url" validate:"omitempty,url"`
	DurationMinutes int         `json:"duration_minutes" validate:"gte=0,lte=10000"`
	Prerequisites   []uuid.UUID `json:"prerequisites"`
	ReleaseAt       *time.Time  `json:"release_at"`
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

func (in NodeInput) normalize() (NodeInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Title == "" {
		return in, app_errors.ErrEmptyTitle
	}
	return in, checkInput(in)
}

// lesson validates in and builds the lesson fields it describes. keep is
// the video already attached to the lesson; it is reused when the input
// asks for a video kind without naming a new URL.
func (in LessonInput) lesson(keep models.VideoRef) (models.Lesson, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return models.Lesson{}, app_errors.ErrEmptyTitle
	}
	if err := checkInput(in); err != nil {
		return models.Lesson{}, err
	}

	video := keep
	if in.VideoURL != "" {
		video = models.VideoRef{URL: in.VideoURL}
	}
	content, err := models.NewContent(in.ContentType, in.Body, video)
	if err != nil {
		return models.Lesson{}, app_errors.Validation("%v", err)
	}
	return models.Lesson{
		Title:           in.Title,
		Content:         content,
		DurationMinutes: in.DurationMinutes,
		Prerequisites:   slices.Clone(in.Prerequisites),
		ReleaseAt:       in.ReleaseAt,
	}, nil
}

// checkPrerequisites requires every prerequisite to be another lesson of
// the same course, listed once.
func checkPrerequisites(t *coursetree.Tree, lessonID uuid.UUID, prereqs []uuid.UUID) error {
	seen := make(map[uuid.UUID]bool, len(prereqs))
	for _, p := range prereqs {
		if p == lessonID {
			return app_errors.Validation("a lesson cannot be its own prerequisite")
		}
		if seen[p] {
			return app_errors.Validation("prerequisite %s listed twice", p)
		}
		seen[p] = true
		if !t.Contains(models.NodeRef{Kind: models.KindLesson, ID: p}) {
			return app_errors.Validation("prerequisite %s is not a lesson of this course", p)
		}
	}
	return nil
}
