package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	ContentTypeText      = "text"
	ContentTypeVideo     = "video"
	ContentTypeVideoText = "video_text"
)

type PublicationState string

const (
	StateDraft     PublicationState = "draft"
	StatePublished PublicationState = "published"
	StateHidden    PublicationState = "hidden"
)

func (s PublicationState) Valid() bool {
	switch s {
	case StateDraft, StatePublished, StateHidden:
		return true
	}
	return false
}

// VideoRef points at a video either by external URL or by an object key in
// the lesson media bucket. Exactly one of the two is set.
type VideoRef struct {
	URL       string `json:"url,omitempty"`
	ObjectKey string `json:"object_key,omitempty"`
}

func (v VideoRef) IsZero() bool { return v.URL == "" && v.ObjectKey == "" }

func (v VideoRef) Validate() error {
	switch {
	case v.URL == "" && v.ObjectKey == "":
		return fmt.Errorf("video reference is empty")
	case v.URL != "" && v.ObjectKey != "":
		return fmt.Errorf("video reference has both url and object key")
	}
	return nil
}

// LessonContent is one of TextContent, VideoContent or VideoTextContent.
type LessonContent interface {
	ContentType() string
	lessonContent()
}

type TextContent struct {
	Body string
}

type VideoContent struct {
	Video VideoRef
}

type VideoTextContent struct {
	Video VideoRef
	Body  string
}

func (TextContent) ContentType() string      { return ContentTypeText }
func (VideoContent) ContentType() string     { return ContentTypeVideo }
func (VideoTextContent) ContentType() string { return ContentTypeVideoText }

func (TextContent) lessonContent()      {}
func (VideoContent) lessonContent()     {}
func (VideoTextContent) lessonContent() {}

// ContentFields flattens c into the columns used by storage and the wire.
func ContentFields(c LessonContent) (contentType string, body *string, video VideoRef) {
	switch v := c.(type) {
	case TextContent:
		return ContentTypeText, &v.Body, VideoRef{}
	case VideoContent:
		return ContentTypeVideo, nil, v.Video
	case VideoTextContent:
		return ContentTypeVideoText, &v.Body, v.Video
	}
	return "", nil, VideoRef{}
}

// NewContent builds the variant for contentType and checks that the fields
// required by it are present.
func NewContent(contentType string, body *string, video VideoRef) (LessonContent, error) {
	switch contentType {
	case ContentTypeText:
		if body == nil {
			return nil, fmt.Errorf("text lesson requires a body")
		}
		return TextContent{Body: *body}, nil
	case ContentTypeVideo:
		if err := video.Validate(); err != nil {
			return nil, err
		}
		return VideoContent{Video: video}, nil
	case ContentTypeVideoText:
		if err := video.Validate(); err != nil {
			return nil, err
		}
		if body == nil {
			return nil, fmt.Errorf("video_text lesson requires a body")
		}
		return VideoTextContent{Video: video, Body: *body}, nil
	}
	return nil, fmt.Errorf("unknown content type %q", contentType)
}

// Lesson is the leaf of the course tree. Completion is tracked per student
// in LessonCompletion, never here.
type Lesson struct {
	ID              uuid.UUID
	ModuleID        uuid.UUID
	Title           string
	Order           int
	Content         LessonContent
	DurationMinutes int
	State           PublicationState
	Prerequisites   []uuid.UUID
	ReleaseAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Released reports whether the lesson may be opened at now.
func (l Lesson) Released(now time.Time) bool {
	return l.ReleaseAt == nil || !l.ReleaseAt.After(now)
}

type lessonJSON struct {
	ID              uuid.UUID        `json:"id"`
	ModuleID        uuid.UUID        `json:"module_id"`
	Title           string           `json:"title"`
	Order           int              `json:"order"`
	ContentType     string           `json:"content_type"`
	Body            *string          `json:"body,omitempty"`
	Video           *VideoRef        `json:"video,omitempty"`
	DurationMinutes int              `json:"duration_minutes"`
	State           PublicationState `json:"state"`
	Prerequisites   []uuid.UUID      `json:"prerequisites,omitempty"`
	ReleaseAt       *time.Time       `json:"release_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (l Lesson) MarshalJSON() ([]byte, error) {
	contentType, body, video := ContentFields(l.Content)
	out := lessonJSON{
		ID:              l.ID,
		ModuleID:        l.ModuleID,
		Title:           l.Title,
		Order:           l.Order,
		ContentType:     contentType,
		Body:            body,
		DurationMinutes: l.DurationMinutes,
		State:           l.State,
		Prerequisites:   l.Prerequisites,
		ReleaseAt:       l.ReleaseAt,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
	if !video.IsZero() {
		out.Video = &video
	}
	return json.Marshal(out)
}

func (l *Lesson) UnmarshalJSON(data []byte) error {
	var in lessonJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	var video VideoRef
	if in.Video != nil {
		video = *in.Video
	}
	content, err := NewContent(in.ContentType, in.Body, video)
	if err != nil {
		return err
	}
	*l = Lesson{
		ID:              in.ID,
		ModuleID:        in.ModuleID,
		Title:           in.Title,
		Order:           in.Order,
		Content:         content,
		DurationMinutes: in.DurationMinutes,
		State:           in.State,
		Prerequisites:   in.Prerequisites,
		ReleaseAt:       in.ReleaseAt,
		CreatedAt:       in.CreatedAt,
		UpdatedAt:       in.UpdatedAt,
	}
	return nil
}

type LessonCompletion struct {
	StudentID   uuid.UUID `json:"student_id"`
	LessonID    uuid.UUID `json:"lesson_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// LessonNavigation is the position of a lesson on the linear course path.
type LessonNavigation struct {
	Lesson   Lesson     `json:"lesson"`
	VideoURL string     `json:"video_url,omitempty"`
	Previous *uuid.UUID `json:"previous,omitempty"`
	Next     *uuid.UUID `json:"next,omitempty"`
	Position int        `json:"position"`
	Total    int        `json:"total"`
}
