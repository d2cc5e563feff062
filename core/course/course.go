package course

import "time"

type Course struct {
	ID           string    `json:"id" db:"course_id"`
	InstructorID string    `json:"instructorId" db:"instructor_id"`
	Slug         string    `json:"slug" db:"slug"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	ImageURL     string    `json:"imageUrl" db:"image_url"`
	Price        int       `json:"price" db:"price"`
	Published    bool      `json:"published" db:"published"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	Version      int       `json:"-" db:"version"`
}

type CourseNew struct {
	Slug        string `json:"slug" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	Price       int    `json:"price" validate:"gte=0,lte=1000000"`
	Published   bool   `json:"published"`
}

type Section struct {
	ID        string    `json:"id" db:"section_id"`
	CourseID  string    `json:"courseId" db:"course_id"`
	Title     string    `json:"title" db:"title"`
	Position  int       `json:"position" db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type SectionNew struct {
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
}

// Lesson is the unit progress is tracked against. The raw video URL is never
// serialized by default, access control decides when to expose it.
type Lesson struct {
	ID        string    `json:"id" db:"lesson_id"`
	SectionID string    `json:"sectionId" db:"section_id"`
	Title     string    `json:"title" db:"title"`
	Position  int       `json:"position" db:"position"`
	Free      bool      `json:"free" db:"free"`
	URL       string    `json:"-" db:"video_url"`
	Duration  int       `json:"duration" db:"duration"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type LessonNew struct {
	Title    string `json:"title" validate:"required"`
	Position int    `json:"position" validate:"gte=0"`
	Free     bool   `json:"free"`
	URL      string `json:"url" validate:"omitempty,url"`
	Duration int    `json:"duration" validate:"gte=0"`
}

// SectionContent is a section with its ordered lessons, the shape the
// learning view and the progress aggregation enumerate.
type SectionContent struct {
	Section
	Lessons []Lesson `json:"lessons"`
}
