package updateCourse

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	resp "ce_platform/internal/lib/api/response"
	"ce_platform/internal/models"
	"ce_platform/internal/storage"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"
)

type stubUpdater struct {
	err   error
	last  *models.Course
	calls int
}

func (s *stubUpdater) UpdateCourse(_ context.Context, c *models.Course) error {
	s.calls++
	s.last = c
	return s.err
}

func perform(t *testing.T, updater *stubUpdater, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	r := chi.NewRouter()
	r.Put("/courses/{id}", New(log, validator.New(), updater))

	req := httptest.NewRequest(http.MethodPut, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	r.ServeHTTP(rec, req)

	return rec
}

func validBody() string {
	return `{"course_number":"156-4211-E","title":"Structural Pest Control","instructor":"Dr. Reed","ce_hours":4,"price_cents":9500,"visible":true}`
}

func TestUpdateCourseSuccess(t *testing.T) {
	updater := &stubUpdater{}

	rec := perform(t, updater, "/courses/42", validBody())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if updater.calls != 1 {
		t.Fatalf("service calls = %d, want 1", updater.calls)
	}
	if updater.last.ID != 42 {
		t.Errorf("course id = %d, want 42", updater.last.ID)
	}
	if updater.last.CourseNumber != "156-4211-E" {
		t.Errorf("course number = %q", updater.last.CourseNumber)
	}

	var body resp.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != resp.StatusOK {
		t.Errorf("response status = %q", body.Status)
	}
}

func TestUpdateCourseNotFound(t *testing.T) {
	updater := &stubUpdater{err: storage.ErrCourseNotFound}

	rec := perform(t, updater, "/courses/42", validBody())

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body resp.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Error != "Course not found" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestUpdateCourseBadID(t *testing.T) {
	updater := &stubUpdater{}

	rec := perform(t, updater, "/courses/not-a-number", validBody())

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if updater.calls != 0 {
		t.Errorf("service must not be called")
	}
}

func TestUpdateCourseValidation(t *testing.T) {
	cases := []string{
		`{`,
		`{"course_number":"","title":"Structural Pest Control"}`,
		`{"course_number":"156-4211-E","title":""}`,
		`{"course_number":"156-4211-E","title":"Structural Pest Control","ce_hours":-1}`,
	}

	for _, body := range cases {
		updater := &stubUpdater{}
		rec := perform(t, updater, "/courses/42", body)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
		if updater.calls != 0 {
			t.Errorf("body %s: service must not be called", body)
		}
	}
}
