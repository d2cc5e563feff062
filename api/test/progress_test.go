package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ziadayman00/learning-platform/core/claims"
	"github.com/ziadayman00/learning-platform/core/progress"
)

type progressTest struct {
	*TestEnv
}

func TestProgress(t *testing.T) {
	env, err := NewTestEnv(t, "progress_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &progressTest{env}
	et := &enrollmentTest{env}

	instructor := env.CreateUser(t, "Dana", claims.RoleInstructor)
	student := env.CreateUser(t, "Riley", claims.RoleUser)

	crs := env.CreateCourse(t, instructor.ID, 0)
	lessons := env.CreateLessons(t, crs.ID, []bool{false, false, false, false})

	env.Login(t, student.ID)
	defer env.Logout(t)

	et.directEnrollOK(t, crs.ID)

	// Watching positions trickle in; three of four lessons get completed.
	pt.recordPositionOK(t, lessons[0].ID, 17)
	pt.markCompleteOK(t, lessons[0].ID)
	pt.markCompleteOK(t, lessons[1].ID)
	pt.markCompleteOK(t, lessons[2].ID)
	pt.recordPositionOK(t, lessons[3].ID, 42)

	want := progress.Completion{TotalLessons: 4, CompletedLessons: 3, Percentage: 75}
	if diff := cmp.Diff(want, pt.fetchCompletion(t, crs.ID)); diff != "" {
		t.Fatalf("completion mismatch (-want +got):\n%s", diff)
	}

	// Re-marking is a no-op, and a position ping landing after completion
	// never clears the flag.
	pt.markCompleteOK(t, lessons[0].ID)
	pt.recordPositionOK(t, lessons[0].ID, 500)

	if diff := cmp.Diff(want, pt.fetchCompletion(t, crs.ID)); diff != "" {
		t.Fatalf("completion after replays (-want +got):\n%s", diff)
	}

	// A negative position is clamped, not rejected.
	pt.recordPositionOK(t, lessons[3].ID, -5)

	// The final lesson closes the course.
	pt.markCompleteOK(t, lessons[3].ID)

	want = progress.Completion{TotalLessons: 4, CompletedLessons: 4, Percentage: 100}
	if diff := cmp.Diff(want, pt.fetchCompletion(t, crs.ID)); diff != "" {
		t.Fatalf("final completion (-want +got):\n%s", diff)
	}

	// The learning view reflects the per-lesson state: the late ping moved
	// the resume position, the clamped one reads zero, the flag held.
	sum := pt.fetchSummary(t, crs.ID)

	if !sum.CanAccess {
		t.Fatal("enrolled student must access the learning view")
	}

	l0 := sum.Progress[lessons[0].ID]
	if !l0.Completed || l0.Position != 500 {
		t.Fatalf("lesson 0 state = %+v, want completed at position 500", l0)
	}

	l3 := sum.Progress[lessons[3].ID]
	if !l3.Completed || l3.Position != 0 {
		t.Fatalf("lesson 3 state = %+v, want completed at position 0", l3)
	}

	// Unknown lessons are refused before any write happens.
	pt.recordPositionStatus(t, "2f4d1a9c-9f10-4cf4-9a55-3f2504e04f89", 10, http.StatusNotFound)
}

func TestProgressEmptyCourse(t *testing.T) {
	env, err := NewTestEnv(t, "progress_empty_test")
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	pt := &progressTest{env}
	et := &enrollmentTest{env}

	instructor := env.CreateUser(t, "Dana", claims.RoleInstructor)
	student := env.CreateUser(t, "Riley", claims.RoleUser)
	crs := env.CreateCourse(t, instructor.ID, 0)

	env.Login(t, student.ID)
	defer env.Logout(t)

	et.directEnrollOK(t, crs.ID)

	// A course with no lessons reports zero and never counts as complete:
	// no certificate comes out of it.
	want := progress.Completion{TotalLessons: 0, CompletedLessons: 0, Percentage: 0}
	if diff := cmp.Diff(want, pt.fetchCompletion(t, crs.ID)); diff != "" {
		t.Fatalf("empty course completion (-want +got):\n%s", diff)
	}

	w, err := env.Client().Get(env.URL + "/courses/" + crs.ID + "/certificate")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusForbidden {
		t.Fatalf("certificate on empty course: status code %s", w.Status)
	}
}

func (pt *progressTest) recordPositionOK(t *testing.T, lessonID string, position int) {
	t.Helper()
	pt.recordPositionStatus(t, lessonID, position, http.StatusNoContent)
}

func (pt *progressTest) recordPositionStatus(t *testing.T, lessonID string, position int, want int) {
	t.Helper()

	body, err := json.Marshal(progress.PositionUp{Position: position})
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPut, pt.URL+"/lessons/"+lessonID+"/position", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != want {
		t.Fatalf("recording position of lesson[%s]: status code %d, want %d", lessonID, w.StatusCode, want)
	}
}

func (pt *progressTest) markCompleteOK(t *testing.T, lessonID string) {
	t.Helper()

	r, err := http.NewRequest(http.MethodPut, pt.URL+"/lessons/"+lessonID+"/complete", nil)
	if err != nil {
		t.Fatal(err)
	}

	w, err := pt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't complete lesson[%s]: status code %s", lessonID, w.Status)
	}
}

func (pt *progressTest) fetchCompletion(t *testing.T, courseID string) progress.Completion {
	t.Helper()

	w, err := pt.Client().Get(pt.URL + "/courses/" + courseID + "/progress")
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't fetch completion: status code %s", w.Status)
	}

	var c progress.Completion
	if err := json.NewDecoder(w.Body).Decode(&c); err != nil {
		t.Fatalf("cannot unmarshal completion: %v", err)
	}

	return c
}
