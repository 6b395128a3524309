package models

type CourseOutline struct {
	Course
	TotalLessons   int              `json:"total_lessons"`
	CompletionRate *float64         `json:"completion_rate,omitempty"`
	Sections       []SectionOutline `json:"sections"`
}

type SectionOutline struct {
	Section
	Resources []SectionResource `json:"resources"`
	Chapters  []ChapterOutline  `json:"chapters"`
}

type ChapterOutline struct {
	Chapter
	Modules []ModuleOutline `json:"modules"`
}

type ModuleOutline struct {
	Module
	Lessons []LessonOutline `json:"lessons"`
}

type LessonOutline struct {
	Lesson    Lesson `json:"lesson"`
	Completed bool   `json:"completed"`
	Locked    bool   `json:"locked"`
}
