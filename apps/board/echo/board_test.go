package echoboard

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/mzalendo/darasa/core/entity"
	"github.com/mzalendo/darasa/core/school"
	logsvc "github.com/mzalendo/darasa/services/logger"
	testutil "github.com/mzalendo/darasa/tests"
)

func newTestServer(t *testing.T) (*testutil.FakeAPI, Server) {
	t.Helper()
	logger := logsvc.NewConsoleLogger(log.New(ioutil.Discard, "", 0))
	api := testutil.NewFakeAPI()
	cache := entity.NewCache(api, logger)
	svc := school.NewService(cache, api, logger)
	return api, NewServer(&Options{
		DisableReqLogs: true,
		SchoolSvc:      svc,
		Logger:         logger,
	})
}

func newRequest(t *testing.T, method, path, body string, claims *Claims) *http.Request {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if claims != nil {
		token, err := GenerateToken(claims)
		if err != nil {
			t.Fatalf("signing token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func do(srv Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

var (
	teacherClaims = &Claims{UserID: 1, Username: "mwalimu", IsTeacher: true, Roles: []string{school.RoleTeacher}}
	adminClaims   = &Claims{UserID: 2, Username: "mkuu", IsAdmin: true, Roles: []string{school.RoleSchoolAdmin}}
	studentClaims = &Claims{UserID: 3, Username: "ama", IsStudent: true, Roles: []string{school.RoleStudent}}
)

func TestHome(t *testing.T) {
	_, srv := newTestServer(t)
	rec := do(srv, newRequest(t, http.MethodGet, "/", "", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Darasa")
}

func TestViewsRequireAuth(t *testing.T) {
	_, srv := newTestServer(t)
	rec := do(srv, newRequest(t, http.MethodGet, "/v1/views/roster", "", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStaffViewsForbidStudents(t *testing.T) {
	_, srv := newTestServer(t)
	for _, path := range []string{
		"/v1/views/roster",
		"/v1/views/attendance",
		"/v1/views/attendance/summary",
		"/v1/views/gradebook",
	} {
		rec := do(srv, newRequest(t, http.MethodGet, path, "", studentClaims))
		assert.Equalf(t, http.StatusForbidden, rec.Code, "GET %s as student", path)
	}
}

func TestRoster(t *testing.T) {
	api, srv := newTestServer(t)
	cls := testutil.SeedClass(api, "SS1A", 30, 1)
	ama := testutil.SeedStudent(api, "Ama")
	testutil.SeedEnrollment(api, ama.ID, cls.ID)

	rec := do(srv, newRequest(t, http.MethodGet, "/v1/views/roster?class_id=1", "", teacherClaims))
	assert.Equal(t, http.StatusOK, rec.Code)

	var rows []map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	if assert.Len(t, rows, 1) {
		student := rows[0]["student"].(map[string]interface{})
		assert.Equal(t, "Ama", student["name"])
		assert.Equal(t, float64(3), rows[0]["occupancy"]) // 1 of 30
	}
}

func TestTimetableOpenToStudents(t *testing.T) {
	api, srv := newTestServer(t)
	api.Seed(school.TypeSubject, map[string]interface{}{"name": "Maths"})
	api.Seed(school.TypePeriod, map[string]interface{}{
		"class_id": float64(7), "subject_id": float64(1), "teacher_id": nil,
		"day": float64(1), "start_time": "08:00", "end_time": "09:00",
	})

	rec := do(srv, newRequest(t, http.MethodGet, "/v1/views/timetable?class_id=7", "", studentClaims))
	assert.Equal(t, http.StatusOK, rec.Code)

	var days []map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &days))
	assert.Len(t, days, 1)
}

func TestAnnouncementsScopedToTokenAudience(t *testing.T) {
	api, srv := newTestServer(t)
	api.Seed(school.TypeAnnouncement, map[string]interface{}{
		"title": "Sports day", "body": "...", "audience": "all", "created_at": "2026-02-01T08:00:00Z",
	})
	api.Seed(school.TypeAnnouncement, map[string]interface{}{
		"title": "Staff meeting", "body": "...", "audience": "teachers", "created_at": "2026-02-02T08:00:00Z",
	})

	rec := do(srv, newRequest(t, http.MethodGet, "/v1/views/announcements", "", studentClaims))
	assert.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	if assert.Len(t, rows, 1) {
		note := rows[0]["announcement"].(map[string]interface{})
		assert.Equal(t, "Sports day", note["title"])
	}

	rec = do(srv, newRequest(t, http.MethodGet, "/v1/views/announcements", "", teacherClaims))
	assert.Equal(t, http.StatusOK, rec.Code)
	rows = nil
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Len(t, rows, 2)
}

func TestEnroll(t *testing.T) {
	api, srv := newTestServer(t)
	testutil.SeedClass(api, "SS1A", 30, 0)

	rec := do(srv, newRequest(t, http.MethodPost, "/v1/enrollments",
		`{"student_id": 5, "class_id": 1}`, teacherClaims))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, api.Writes())

	var res map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Contains(t, res["Invalidated"], "class")
}

func TestEnrollValidationFailure(t *testing.T) {
	api, srv := newTestServer(t)

	rec := do(srv, newRequest(t, http.MethodPost, "/v1/enrollments",
		`{"student_id": 5}`, teacherClaims))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, api.Writes())
	assert.Contains(t, rec.Body.String(), "class_id")
}

func TestWithdraw(t *testing.T) {
	api, srv := newTestServer(t)
	testutil.SeedEnrollment(api, 5, 1)

	rec := do(srv, newRequest(t, http.MethodDelete, "/v1/enrollments/1", "", teacherClaims))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, api.Writes())

	rec = do(srv, newRequest(t, http.MethodDelete, "/v1/enrollments/nope", "", teacherClaims))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminOnlyMutations(t *testing.T) {
	_, srv := newTestServer(t)
	for _, tt := range []struct {
		path, body string
	}{
		{"/v1/fees", `{"student_id": 5, "title": "Tuition", "amount": 100, "due_date": "2026-09-30"}`},
		{"/v1/periods", `{"class_id": 1, "subject_id": 1, "day": 1, "start_time": "08:00", "end_time": "09:00"}`},
		{"/v1/announcements", `{"title": "x", "body": "y", "audience": "all"}`},
	} {
		rec := do(srv, newRequest(t, http.MethodPost, tt.path, tt.body, teacherClaims))
		assert.Equalf(t, http.StatusForbidden, rec.Code, "POST %s as teacher", tt.path)

		rec = do(srv, newRequest(t, http.MethodPost, tt.path, tt.body, adminClaims))
		assert.Equalf(t, http.StatusCreated, rec.Code, "POST %s as admin: %s", tt.path, rec.Body.String())
	}
}

func TestPayFee(t *testing.T) {
	api, srv := newTestServer(t)
	testutil.SeedFee(api, 5, "Tuition", 100, "2026-09-30", false)

	rec := do(srv, newRequest(t, http.MethodPut, "/v1/fees/1/pay", "", studentClaims))
	assert.Equal(t, http.StatusOK, rec.Code)

	var res map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	ent := res["Entity"].(map[string]interface{})
	assert.Equal(t, true, ent["paid"])
}

func TestRecordAttendance(t *testing.T) {
	api, srv := newTestServer(t)

	rec := do(srv, newRequest(t, http.MethodPost, "/v1/attendance",
		`{"student_id": 5, "class_id": 1, "date": "2026-03-02", "status": "Present"}`, teacherClaims))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, api.Writes())
}
