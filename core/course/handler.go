package course

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ziadayman00/learning-platform/api/web"
	"github.com/ziadayman00/learning-platform/api/weberr"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/validate"
)

func HandleCreate(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		clm, err := claims.Get(ctx)
		if err != nil {
			return weberr.NotAuthorized(errors.New("user not authenticated"))
		}

		if clm.Role != claims.RoleInstructor && clm.Role != claims.RoleAdmin {
			return weberr.Forbidden(errors.New("only instructors can create courses"), "not allowed to create courses")
		}

		var cnew CourseNew
		if err := web.Decode(w, r, &cnew); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(cnew); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		c := Course{
			ID:           validate.GenerateID(),
			InstructorID: clm.UserID,
			Slug:         cnew.Slug,
			Title:        cnew.Title,
			Description:  cnew.Description,
			ImageURL:     cnew.ImageURL,
			Price:        cnew.Price,
			Published:    cnew.Published,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := Create(ctx, db, c); err != nil {
			return err
		}

		return web.Respond(ctx, w, c, http.StatusCreated)
	}
}

func HandleShow(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		c, err := fetchByIDOrSlug(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		return web.Respond(ctx, w, c, http.StatusOK)
	}
}

func HandleList(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courses, err := List(ctx, db)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, courses, http.StatusOK)
	}
}

func HandleListContent(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		id := web.Param(r, "id")

		c, err := fetchByIDOrSlug(ctx, db, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		content, err := FetchContent(ctx, db, c.ID)
		if err != nil {
			return err
		}

		return web.Respond(ctx, w, content, http.StatusOK)
	}
}

func HandleCreateSection(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		courseID := web.Param(r, "id")
		if err := validate.CheckID(courseID); err != nil {
			return weberr.BadRequest(err)
		}

		c, err := Fetch(ctx, db, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		if !claims.CanEditCourse(ctx, c.InstructorID) {
			return weberr.Forbidden(errors.New("no edit rights on course"), "not allowed to edit this course")
		}

		var snew SectionNew
		if err := web.Decode(w, r, &snew); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(snew); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		s := Section{
			ID:        validate.GenerateID(),
			CourseID:  c.ID,
			Title:     snew.Title,
			Position:  snew.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := CreateSection(ctx, db, s); err != nil {
			return err
		}

		return web.Respond(ctx, w, s, http.StatusCreated)
	}
}

func HandleCreateLesson(db *sqlx.DB) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		sectionID := web.Param(r, "id")
		if err := validate.CheckID(sectionID); err != nil {
			return weberr.BadRequest(err)
		}

		s, err := FetchSection(ctx, db, sectionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return weberr.NotFound(err)
			}
			return err
		}

		c, err := Fetch(ctx, db, s.CourseID)
		if err != nil {
			return err
		}

		if !claims.CanEditCourse(ctx, c.InstructorID) {
			return weberr.Forbidden(errors.New("no edit rights on course"), "not allowed to edit this course")
		}

		var lnew LessonNew
		if err := web.Decode(w, r, &lnew); err != nil {
			return weberr.BadRequest(err)
		}

		if err := validate.Check(lnew); err != nil {
			return weberr.NewError(err, err.Error(), http.StatusUnprocessableEntity)
		}

		now := time.Now().UTC()
		l := Lesson{
			ID:        validate.GenerateID(),
			SectionID: s.ID,
			Title:     lnew.Title,
			Position:  lnew.Position,
			Free:      lnew.Free,
			URL:       lnew.URL,
			Duration:  lnew.Duration,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := CreateLesson(ctx, db, l); err != nil {
			return err
		}

		return web.Respond(ctx, w, l, http.StatusCreated)
	}
}

func fetchByIDOrSlug(ctx context.Context, db *sqlx.DB, id string) (Course, error) {
	if err := validate.CheckID(id); err == nil {
		return Fetch(ctx, db, id)
	}
	return FetchBySlug(ctx, db, id)
}
