package controller

import "encoding/json"

// SubmitURLRequest is the body of POST /api/submit-url.
// TestCases stays raw so a non-list value can be rejected with a precise message.
type SubmitURLRequest struct {
	URL       string          `json:"url"`
	Language  string          `json:"language"`
	TestCases json.RawMessage `json:"test_cases"`
}

// HelloResponse is the body of GET /api/hello.
type HelloResponse struct {
	Message string `json:"message"`
}
