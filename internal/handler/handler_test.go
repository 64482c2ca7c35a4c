package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestHandler_HelloReportsIdentity(t *testing.T) {
	tests := []struct {
		name    string
		service string
		version string
	}{
		{"release", "usergate", "0.1.0"},
		{"renamed build", "usergate-canary", "0.2.0-rc.1"},
		{"empty version", "usergate", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			New(tt.service, tt.version).Hello(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %s", ct)
			}

			var got map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			want := map[string]string{"service": tt.service, "version": tt.version}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestHandler_Fallbacks(t *testing.T) {
	h := New("usergate", "0.1.0")

	tests := []struct {
		name       string
		serve      http.HandlerFunc
		method     string
		path       string
		wantStatus int
		wantError  string
	}{
		{"unknown route", h.NotFound, http.MethodGet, "/nonexistent", http.StatusNotFound, "resource not found"},
		{"unknown user path", h.NotFound, http.MethodGet, "/api/users/a/b", http.StatusNotFound, "resource not found"},
		{"wrong method", h.MethodNotAllowed, http.MethodPatch, "/api/users/abc", http.StatusMethodNotAllowed, "method not allowed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.serve(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["error"] != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, body["error"])
			}
		})
	}
}
