package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"autograder/internal/grader/sandbox/result"
	"autograder/internal/grader/service"
	appErr "autograder/pkg/errors"

	"github.com/gin-gonic/gin"
)

type fakeSubmitter struct {
	report service.Report
	err    error
	calls  int
	last   service.SubmitRequest
}

func (f *fakeSubmitter) Submit(ctx context.Context, req service.SubmitRequest) (service.Report, error) {
	f.calls++
	f.last = req
	return f.report, f.err
}

func newTestRouter(s *fakeSubmitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	RegisterRoutes(router, NewGraderController(s))
	return router
}

func post(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/submit-url", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHello(t *testing.T) {
	router := newTestRouter(&fakeSubmitter{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/hello", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if msg, _ := decode(t, w)["message"].(string); !strings.HasPrefix(msg, "Hello") {
		t.Fatalf("unexpected message: %q", msg)
	}
}

func TestSubmitURLValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"not json", `{`, "Invalid request parameters"},
		{"test cases missing", `{"url":"https://github.com/a/b"}`, "Test cases must be a list"},
		{"test cases object", `{"url":"https://github.com/a/b","test_cases":{"input":"1"}}`, "Test cases must be a list"},
		{"url missing", `{"test_cases":[]}`, "No URL provided"},
		{"bad case", `{"url":"u","test_cases":[{"input":[1,2]}]}`, "Invalid test case"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &fakeSubmitter{}
			w := post(newTestRouter(s), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("unexpected status: %d", w.Code)
			}
			if msg, _ := decode(t, w)["message"].(string); !strings.HasPrefix(msg, tt.message) {
				t.Fatalf("unexpected message: %q", msg)
			}
			if s.calls != 0 {
				t.Fatalf("service must not be called")
			}
		})
	}
}

func TestSubmitURLSuccess(t *testing.T) {
	date := "2024-05-01T10:00:00Z"
	s := &fakeSubmitter{report: service.Report{
		Message:        "Python test cases executed",
		Results:        []result.CaseResult{{Input: "1", ExpectedOutput: "2", Output: "2", Error: "no error", Points: 1, Passed: true}},
		Score:          service.Score{EarnedPoints: 1, TotalPoints: 1, Percentage: 100},
		LastCommitDate: &date,
	}}
	w := post(newTestRouter(s), `{"url":"https://github.com/a/b","test_cases":[{"input":1,"expected_output":2},{"input":"x","expected_output":"y","points":"3"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", w.Code, w.Body.String())
	}
	if s.last.Language != "" || s.last.URL != "https://github.com/a/b" {
		t.Fatalf("unexpected request: %+v", s.last)
	}
	if len(s.last.Tests) != 2 || s.last.Tests[0].Input != "1" || s.last.Tests[0].Points != 1 || s.last.Tests[1].Points != 3 {
		t.Fatalf("unexpected test cases: %+v", s.last.Tests)
	}

	body := decode(t, w)
	if body["message"] != "Python test cases executed" || body["last_commit_date"] != date {
		t.Fatalf("unexpected body: %v", body)
	}
	score, _ := body["score"].(map[string]interface{})
	if score["percentage"] != float64(100) {
		t.Fatalf("unexpected score: %v", score)
	}
	if _, wrapped := body["code"]; wrapped {
		t.Fatalf("report must not be wrapped in the envelope")
	}
}

func TestSubmitURLServiceError(t *testing.T) {
	s := &fakeSubmitter{err: appErr.New(appErr.CompilationError).WithMessage("Java compilation failed: Main.java:3: error")}
	w := post(newTestRouter(s), `{"url":"u","language":"java","test_cases":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if msg, _ := decode(t, w)["message"].(string); msg != "Java compilation failed: Main.java:3: error" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if s.last.Language != "java" {
		t.Fatalf("language not forwarded: %+v", s.last)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeSubmitter{})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}
