package httpext

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/regscout/regscout/pkg/logger"
	"github.com/rs/zerolog/log"
)

func TestJsonError(t *testing.T) {
	tests := []struct {
		name           string
		message        string
		code           int
		expectedStatus int
	}{
		{
			name:           "Basic error",
			message:        "Something went wrong",
			code:           http.StatusBadRequest,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Internal server error",
			message:        "Internal error",
			code:           http.StatusInternalServerError,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JsonError(w, tt.message, tt.code)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status code %d, got %d", tt.expectedStatus, w.Code)
			}

			if w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", w.Header().Get("Content-Type"))
			}

			var response ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response body: %v", err)
			}

			if response.Error != tt.message {
				t.Errorf("Expected error message %q, got %q", tt.message, response.Error)
			}
		})
	}
}

func TestJsonErrorWithDetails(t *testing.T) {
	w := httptest.NewRecorder()
	JsonErrorWithDetails(w, http.StatusBadGateway, ErrorResponse{
		Error:            "assistant_unavailable",
		ErrorDescription: "The assistant run failed",
		Kind:             "upstream",
	})

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status code %d, got %d", http.StatusBadGateway, w.Code)
	}

	var response ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}

	if response.ErrorDescription != "The assistant run failed" {
		t.Errorf("Expected error description, got %q", response.ErrorDescription)
	}
	if response.Kind != "upstream" {
		t.Errorf("Expected kind upstream, got %q", response.Kind)
	}
}

func TestJsonResponse(t *testing.T) {
	w := httptest.NewRecorder()
	JsonResponse(w, http.StatusCreated, map[string]string{"role": "assistant"})

	if w.Code != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	if body["role"] != "assistant" {
		t.Errorf("Expected role assistant, got %q", body["role"])
	}
}

func TestJsonResponseEncodeFailureLogsComponent(t *testing.T) {
	previous := log.Logger
	defer func() { log.Logger = previous }()

	var buf bytes.Buffer
	logger.Init(logger.Options{Environment: "production", Output: &buf})

	w := httptest.NewRecorder()
	JsonResponse(w, http.StatusOK, map[string]interface{}{"bad": make(chan int)})

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != logger.HANDLER {
		t.Errorf("Expected component %s, got %v", logger.HANDLER, entry["component"])
	}
	if entry["message"] != "Failed to encode response" {
		t.Errorf("Unexpected log message %v", entry["message"])
	}
}
