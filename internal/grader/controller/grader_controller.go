package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"autograder/internal/grader/sandbox/result"
	"autograder/internal/grader/service"
	appErr "autograder/pkg/errors"
	"autograder/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// Submitter is the grading pipeline behind the HTTP layer.
type Submitter interface {
	Submit(ctx context.Context, req service.SubmitRequest) (service.Report, error)
}

// GraderController handles grading HTTP endpoints.
type GraderController struct {
	submitter Submitter
}

// NewGraderController creates a new GraderController.
func NewGraderController(submitter Submitter) *GraderController {
	return &GraderController{submitter: submitter}
}

// Hello answers the frontend connectivity probe.
func (h *GraderController) Hello(c *gin.Context) {
	response.Payload(c, HelloResponse{Message: "Hello from the grader backend!"})
}

// SubmitURL grades the repository at url against the posted test cases.
func (h *GraderController) SubmitURL(c *gin.Context) {
	var req SubmitURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}
	if !isJSONArray(req.TestCases) {
		response.Error(c, appErr.ValidationError("test_cases", "must be a list").WithMessage("Test cases must be a list"))
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		response.Error(c, appErr.ValidationError("url", "required").WithMessage("No URL provided"))
		return
	}

	var tests []result.TestCase
	if err := json.Unmarshal(req.TestCases, &tests); err != nil {
		response.Error(c, appErr.ValidationError("test_cases", err.Error()).WithMessagef("Invalid test case: %v", err))
		return
	}

	report, err := h.submitter.Submit(c.Request.Context(), service.SubmitRequest{
		URL:      strings.TrimSpace(req.URL),
		Language: strings.TrimSpace(req.Language),
		Tests:    tests,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Payload(c, report)
}

// Health reports liveness.
func (h *GraderController) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

func isJSONArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
