package progress

import "time"

// Progress is the watch state per (user, lesson): a monotonic completion
// flag and an advisory resume position. One row per pair, upserted in place.
type Progress struct {
	UserID      string     `json:"userId" db:"user_id"`
	LessonID    string     `json:"lessonId" db:"lesson_id"`
	Completed   bool       `json:"completed" db:"completed"`
	CompletedAt *time.Time `json:"completedAt" db:"completed_at"`
	Position    int        `json:"position" db:"position"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// PositionUp is the periodic ping sent while media plays. Negative values
// are clamped, not rejected: the position is advisory resume state.
type PositionUp struct {
	Position int `json:"position"`
}

// Completion is the aggregate over a course's catalog structure. Percentage
// is rounded for display only; gates must compare the exact counts.
type Completion struct {
	TotalLessons     int `json:"totalLessons" db:"total_lessons"`
	CompletedLessons int `json:"completedLessons" db:"completed_lessons"`
	Percentage       int `json:"percentage" db:"-"`
}

// Complete reports full completion by exact count. A course with no lessons
// is never complete.
func (c Completion) Complete() bool {
	return c.TotalLessons > 0 && c.CompletedLessons == c.TotalLessons
}

// Percent rounds the completion ratio to the nearest integer for display.
func Percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int((float64(completed)/float64(total))*100 + 0.5)
}
