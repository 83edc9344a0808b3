package tests

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	testutil "github.com/trezcool/darasa/tests"
)

func TestSubjectAPI_create(t *testing.T) {
	deps := setup(t)
	admToken := adminToken(t)
	stuToken := studentToken(t, "s-1")

	sec := testutil.CreateSection(t, deps.secRepo, "MATH101-A", "t-001", "R101",
		[]string{"Monday 09:00-11:00"}, 30)

	body := []byte(fmt.Sprintf(`{
		"subjectCode": "MATH101",
		"subjectName": "Calculus I",
		"department": "Mathematics",
		"schedules": ["Monday 09:00-10:00"],
		"sectionId": %q
	}`, sec.ID))

	tests := []httpTest{
		{
			name: "anonymous", method: http.MethodPost, path: "/api/subjects", body: body,
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "student forbidden", method: http.MethodPost, path: "/api/subjects", body: body, token: stuToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			deps.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("admin creates attached", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects", admToken, body)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusCreated)

		sub := decodeSubject(t, rec)
		assert.Equal(t, "MATH101", sub.Code)
		assert.Equal(t, sec.ID, sub.SectionID)
	})

	t.Run("dated expression without end time", func(t *testing.T) {
		dated := []byte(`{
			"subjectCode": "PHYS201",
			"subjectName": "Mechanics",
			"department": "Physics",
			"schedules": ["2026-03-03 14:00"]
		}`)
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects", admToken, dated)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusCreated)
		assert.Contains(t, rec.Body.String(), "2026-03-03 14:00-15:00")
	})

	t.Run("missing fields", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects", admToken, []byte(`{"subjectCode": "X"}`))
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusBadRequest)
	})
}

func TestSubjectAPI_attachDetach(t *testing.T) {
	deps := setup(t)
	admToken := adminToken(t)

	sec := testutil.CreateSection(t, deps.secRepo, "MATH101-A", "t-001", "R101",
		[]string{"Monday 09:00-11:00"}, 30)
	testutil.CreateSection(t, deps.secRepo, "MATH102-A", "t-001", "R102",
		[]string{"Tuesday 09:00-11:00"}, 30)
	sub := testutil.CreateSubject(t, deps.subRepo, "MATH101", "Mathematics",
		[]string{"Monday 09:00-10:00"}, "")
	clashing := testutil.CreateSubject(t, deps.subRepo, "MATH102", "Mathematics",
		[]string{"Tuesday 10:00-11:00"}, "")

	attachBody := []byte(fmt.Sprintf(`{"sectionId": %q}`, sec.ID))

	t.Run("attach", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects/"+sub.ID+"/attach", admToken, attachBody)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusOK)
		assert.Equal(t, sec.ID, decodeSubject(t, rec).SectionID)
	})

	t.Run("attach with instructor clash elsewhere", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects/"+clashing.ID+"/attach", admToken, attachBody)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusConflict)
	})

	t.Run("reschedule conflicts while attached", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/subjects/"+sub.ID+"/schedules", admToken,
			[]byte(`{"schedules": ["Tuesday 09:30-10:30"]}`))
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusConflict)
	})

	t.Run("detach", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects/"+sub.ID+"/detach", admToken)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusOK)
		assert.Empty(t, decodeSubject(t, rec).SectionID)
	})

	t.Run("detach unknown subject", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/api/subjects/nope/detach", admToken)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusNotFound)
	})
}

func TestSubjectAPI_updateAndDelete(t *testing.T) {
	deps := setup(t)
	admToken := adminToken(t)
	stuToken := studentToken(t, "s-1")

	sub := testutil.CreateSubject(t, deps.subRepo, "MATH101", "Mathematics",
		[]string{"Monday 09:00-10:00"}, "")

	t.Run("student reads", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/subjects", stuToken)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusOK)
		assert.Contains(t, rec.Body.String(), "MATH101")
	})

	t.Run("rename", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/api/subjects/"+sub.ID, admToken,
			[]byte(`{"subjectName": "Calculus I (Honors)"}`))
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusOK)
		assert.Equal(t, "Calculus I (Honors)", decodeSubject(t, rec).Name)
	})

	t.Run("delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/api/subjects/"+sub.ID, admToken)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusNoContent)

		req, rec = newAuthRequest(http.MethodGet, "/api/subjects/"+sub.ID, stuToken)
		deps.server.ServeHTTP(rec, req)
		assertStatus(t, rec, http.StatusNotFound)
	})
}
