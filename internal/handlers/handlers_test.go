package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/semla/internal/app"
)

const rosterCSV = "student_id,name,email,group\n1,Ann,ann@x.com,T1\n2,Ben,ben@x.com,T1\n3,Cat,cat@x.com,\n"

type client struct {
	t       *testing.T
	handler http.Handler
	service *app.Service
	prof    string
}

func newClient(t *testing.T) *client {
	config, err := app.ParseConfig("config.toml", []byte(`
[server]
port = ":0"
frontend_base_url = "https://peer.example.edu"
cors_origins = ["http://localhost:3000"]

[database]
dsn = ":memory:"
`))
	require.NoError(t, err)

	service, err := app.NewServiceFromConfig(context.Background(), config)
	require.NoError(t, err)
	t.Cleanup(func() { service.Close() })

	return &client{t: t, handler: NewRouter(service), service: service, prof: "prof-1"}
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if c.prof != "" {
		req.Header.Set("X-Professor-ID", c.prof)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func (c *client) upload(path, csv string) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "roster.csv")
	require.NoError(c.t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(c.t, err)
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Professor-ID", c.prof)
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (c *client) createCourse() string {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/courses", map[string]string{
		"course_name": "Capstone", "course_number": "CS499", "semester": "Fall 2024",
	})
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	var course struct {
		ID string `json:"id"`
	}
	decode(c.t, w, &course)
	return course.ID
}

func (c *client) token(courseID, externalID string) string {
	c.t.Helper()
	st, err := c.service.Store.GetStudentByExternalID(context.Background(), courseID, externalID)
	require.NoError(c.t, err)
	require.True(c.t, st.HasToken())
	return *st.EvaluationToken
}

func (c *client) studentID(courseID, externalID string) string {
	c.t.Helper()
	st, err := c.service.Store.GetStudentByExternalID(context.Background(), courseID, externalID)
	require.NoError(c.t, err)
	return st.ID
}

func TestRequiresProfessor(t *testing.T) {
	c := newClient(t)
	c.prof = ""

	w := c.do(http.MethodGet, "/api/courses", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEvaluationFlow(t *testing.T) {
	c := newClient(t)
	courseID := c.createCourse()
	base := "/api/courses/" + courseID

	w := c.upload(base+"/roster", rosterCSV)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var imported struct {
		StudentsInserted int `json:"students_inserted"`
		TeamCount        int `json:"team_count"`
	}
	decode(t, w, &imported)
	assert.Equal(t, 3, imported.StudentsInserted)
	assert.Equal(t, 1, imported.TeamCount)

	w = c.do(http.MethodPost, base+"/evaluations/send", map[string]string{"deadline": "2024-12-01T23:59:00Z"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sent struct {
		TokensIssued int `json:"tokens_issued"`
		Sent         int `json:"sent"`
	}
	decode(t, w, &sent)
	assert.Equal(t, 3, sent.TokensIssued)
	assert.Equal(t, 3, sent.Sent)

	token := c.token(courseID, "1")
	w = c.do(http.MethodGet, "/evaluate/"+token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var form struct {
		Completed bool `json:"completed"`
		Teammates []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"teammates"`
	}
	decode(t, w, &form)
	require.Len(t, form.Teammates, 1)
	assert.Equal(t, "Ben", form.Teammates[0].Name)

	submission := map[string]interface{}{
		"evaluations": []map[string]interface{}{{
			"student_id": form.Teammates[0].ID,
			"ratings": map[string]int{
				"professionalism": 4, "communication": 4, "work_ethic": 5,
				"content_knowledge_skills": 4, "overall_contribution": 4, "participation": 3,
			},
			"overall_feedback": "Reliable and easy to work with all semester.",
		}},
	}
	w = c.do(http.MethodPost, "/evaluate/"+token, submission)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = c.do(http.MethodPost, "/evaluate/"+token, submission)
	assert.Equal(t, http.StatusConflict, w.Code)
	var errBody errorResponse
	decode(t, w, &errBody)
	assert.Equal(t, "CONFLICT", string(errBody.Code))

	w = c.do(http.MethodGet, "/evaluate/"+token+"/status", nil)
	assert.JSONEq(t, `{"valid": true, "completed": true}`, w.Body.String())

	w = c.do(http.MethodGet, base+"/evaluations/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Completed      int     `json:"completed"`
		CompletionRate float64 `json:"completion_rate"`
	}
	decode(t, w, &status)
	assert.Equal(t, 1, status.Completed)
	assert.Equal(t, 33.33, status.CompletionRate)

	w = c.do(http.MethodGet, base+"/reports?gradingMethod=curved&boostFactor=0.3", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rep struct {
		GradingSettings struct {
			Method      string  `json:"grading_method"`
			BoostFactor float64 `json:"boost_factor"`
		} `json:"grading_settings"`
		Students []struct {
			Name        string  `json:"name"`
			FinalScore  float64 `json:"final_score"`
			LetterGrade string  `json:"letter_grade"`
		} `json:"students"`
	}
	decode(t, w, &rep)
	assert.Equal(t, "curved", rep.GradingSettings.Method)
	assert.Equal(t, 0.3, rep.GradingSettings.BoostFactor)
	require.Len(t, rep.Students, 3)
	assert.Equal(t, "Ben", rep.Students[1].Name)
	assert.Equal(t, "B", rep.Students[1].LetterGrade)

	w = c.do(http.MethodGet, base+"/reports/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "peer-evaluation-report-CS499-mean-")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Student ID,Name,Email,Team,Original Score"))

	w = c.do(http.MethodGet, base+"/reports/students/"+c.studentID(courseID, "2"), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, base+"/reports?boostFactor=lots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = c.do(http.MethodGet, base+"/reports?gradingMethod=bell", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, base+"/evaluations/reset", map[string][]string{"student_ids": {c.studentID(courseID, "1")}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reset": 1}`, w.Body.String())

	w = c.do(http.MethodGet, "/evaluate/"+token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	decode(t, w, &errBody)
	assert.Equal(t, "EVALUATION_CANCELLED", string(errBody.Code))
}

func TestRosterEndpoints(t *testing.T) {
	c := newClient(t)
	courseID := c.createCourse()
	base := "/api/courses/" + courseID

	w := c.do(http.MethodPost, base+"/roster", map[string]interface{}{
		"students": []map[string]string{
			{"student_id": "1", "name": "Ann", "email": "ann@x.com", "team_name": "T1"},
			{"student_id": "2", "name": "", "email": "ben@x.com"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	var imported struct {
		StudentsInserted int      `json:"students_inserted"`
		Errors           []string `json:"errors"`
	}
	decode(t, w, &imported)
	assert.Equal(t, 1, imported.StudentsInserted)
	assert.Equal(t, []string{"Row 2: name is required"}, imported.Errors)

	w = c.do(http.MethodGet, base+"/teams", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var teams struct {
		Teams []struct {
			ID       string `json:"id"`
			Students []struct {
				Name string `json:"name"`
			} `json:"students"`
		} `json:"teams"`
	}
	decode(t, w, &teams)
	require.Len(t, teams.Teams, 1)
	teamID := teams.Teams[0].ID

	w = c.do(http.MethodDelete, base+"/teams/"+teamID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	annID := c.studentID(courseID, "1")
	w = c.do(http.MethodDelete, base+"/teams/"+teamID+"/students/"+annID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = c.do(http.MethodDelete, base+"/teams/"+teamID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = c.do(http.MethodPost, base+"/students", map[string]string{"student_id": "1", "name": "Ann", "email": "ann@x.com"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = c.do(http.MethodPost, base+"/students/bulk-delete", map[string][]string{"student_ids": {}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, base+"/evaluations/send", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodDelete, base+"/students", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted": 1}`, w.Body.String())

	w = c.do(http.MethodPost, base+"/evaluations/send", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.upload(base+"/roster", "name,email\nAnn,ann@x.com\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseOwnership(t *testing.T) {
	c := newClient(t)
	courseID := c.createCourse()

	c.prof = "prof-2"
	w := c.do(http.MethodGet, "/api/courses/"+courseID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var errBody errorResponse
	decode(t, w, &errBody)
	assert.Equal(t, "NOT_FOUND", string(errBody.Code))

	w = c.do(http.MethodGet, "/api/courses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"courses": []}`, w.Body.String())

	c.prof = "prof-1"
	w = c.do(http.MethodDelete, "/api/courses/"+courseID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = c.do(http.MethodGet, "/api/courses/"+courseID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"course_status":"Inactive"`)
}

func TestConcerningWordsEndpoints(t *testing.T) {
	c := newClient(t)

	w := c.do(http.MethodPost, "/api/professor/concerning-words", map[string]string{"action": "add", "word": "lazy"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"words": ["lazy"]}`, w.Body.String())

	w = c.do(http.MethodPost, "/api/professor/concerning-words", map[string]interface{}{"action": "edit", "index": 3, "word": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodGet, "/api/professor/concerning-words", nil)
	assert.JSONEq(t, `{"words": ["lazy"]}`, w.Body.String())
}
