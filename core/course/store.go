package course

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

func Create(ctx context.Context, db sqlx.ExtContext, c Course) error {
	const q = `
	INSERT INTO courses
		(course_id, instructor_id, slug, title, description, image_url, price, published, created_at, updated_at)
	VALUES
		(:course_id, :instructor_id, :slug, :title, :description, :image_url, :price, :published, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, c); err != nil {
		return fmt.Errorf("inserting course: %w", err)
	}

	return nil
}

func Fetch(ctx context.Context, db sqlx.ExtContext, id string) (Course, error) {
	const q = `SELECT * FROM courses WHERE course_id = $1`

	var c Course
	if err := sqlx.GetContext(ctx, db, &c, q, id); err != nil {
		return Course{}, fmt.Errorf("fetching course[%s]: %w", id, err)
	}

	return c, nil
}

func FetchBySlug(ctx context.Context, db sqlx.ExtContext, slug string) (Course, error) {
	const q = `SELECT * FROM courses WHERE slug = $1`

	var c Course
	if err := sqlx.GetContext(ctx, db, &c, q, slug); err != nil {
		return Course{}, fmt.Errorf("fetching course by slug[%s]: %w", slug, err)
	}

	return c, nil
}

func List(ctx context.Context, db sqlx.ExtContext) ([]Course, error) {
	const q = `SELECT * FROM courses WHERE published ORDER BY created_at DESC`

	courses := []Course{}
	if err := sqlx.SelectContext(ctx, db, &courses, q); err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}

	return courses, nil
}

func CreateSection(ctx context.Context, db sqlx.ExtContext, s Section) error {
	const q = `
	INSERT INTO sections
		(section_id, course_id, title, position, created_at, updated_at)
	VALUES
		(:section_id, :course_id, :title, :position, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, s); err != nil {
		return fmt.Errorf("inserting section: %w", err)
	}

	return nil
}

func FetchSection(ctx context.Context, db sqlx.ExtContext, id string) (Section, error) {
	const q = `SELECT * FROM sections WHERE section_id = $1`

	var s Section
	if err := sqlx.GetContext(ctx, db, &s, q, id); err != nil {
		return Section{}, fmt.Errorf("fetching section[%s]: %w", id, err)
	}

	return s, nil
}

func FetchSections(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Section, error) {
	const q = `SELECT * FROM sections WHERE course_id = $1 ORDER BY position`

	sections := []Section{}
	if err := sqlx.SelectContext(ctx, db, &sections, q, courseID); err != nil {
		return nil, fmt.Errorf("fetching sections of course[%s]: %w", courseID, err)
	}

	return sections, nil
}

func CreateLesson(ctx context.Context, db sqlx.ExtContext, l Lesson) error {
	const q = `
	INSERT INTO lessons
		(lesson_id, section_id, title, position, free, video_url, duration, created_at, updated_at)
	VALUES
		(:lesson_id, :section_id, :title, :position, :free, :video_url, :duration, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, l); err != nil {
		return fmt.Errorf("inserting lesson: %w", err)
	}

	return nil
}

func FetchLesson(ctx context.Context, db sqlx.ExtContext, id string) (Lesson, error) {
	const q = `SELECT * FROM lessons WHERE lesson_id = $1`

	var l Lesson
	if err := sqlx.GetContext(ctx, db, &l, q, id); err != nil {
		return Lesson{}, fmt.Errorf("fetching lesson[%s]: %w", id, err)
	}

	return l, nil
}

// FetchLessons returns every lesson of a course in section/lesson order. The
// enumeration goes through the catalog structure, not through progress rows,
// so it is correct for users with no progress at all.
func FetchLessons(ctx context.Context, db sqlx.ExtContext, courseID string) ([]Lesson, error) {
	const q = `
	SELECT l.* FROM lessons AS l
	JOIN sections AS s ON s.section_id = l.section_id
	WHERE s.course_id = $1
	ORDER BY s.position, l.position`

	lessons := []Lesson{}
	if err := sqlx.SelectContext(ctx, db, &lessons, q, courseID); err != nil {
		return nil, fmt.Errorf("fetching lessons of course[%s]: %w", courseID, err)
	}

	return lessons, nil
}

// FetchCourseOfLesson resolves the course a lesson belongs to, walking
// lesson -> section -> course.
func FetchCourseOfLesson(ctx context.Context, db sqlx.ExtContext, lessonID string) (Course, error) {
	const q = `
	SELECT c.* FROM courses AS c
	JOIN sections AS s ON s.course_id = c.course_id
	JOIN lessons AS l ON l.section_id = s.section_id
	WHERE l.lesson_id = $1`

	var c Course
	if err := sqlx.GetContext(ctx, db, &c, q, lessonID); err != nil {
		return Course{}, fmt.Errorf("fetching course of lesson[%s]: %w", lessonID, err)
	}

	return c, nil
}

// FetchContent returns the full ordered section/lesson tree of a course.
func FetchContent(ctx context.Context, db sqlx.ExtContext, courseID string) ([]SectionContent, error) {
	sections, err := FetchSections(ctx, db, courseID)
	if err != nil {
		return nil, err
	}

	lessons, err := FetchLessons(ctx, db, courseID)
	if err != nil {
		return nil, err
	}

	bySection := make(map[string][]Lesson, len(sections))
	for _, l := range lessons {
		bySection[l.SectionID] = append(bySection[l.SectionID], l)
	}

	content := make([]SectionContent, 0, len(sections))
	for _, s := range sections {
		content = append(content, SectionContent{Section: s, Lessons: bySection[s.ID]})
	}

	return content, nil
}
