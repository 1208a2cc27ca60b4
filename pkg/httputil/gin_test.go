package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oyaguma3/wpn-authz/pkg/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) ProblemDetail {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != ContentType {
		t.Errorf("Content-Type = %q, want %q", ct, ContentType)
	}
	var parsed ProblemDetail
	if err := json.Unmarshal(w.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return parsed
}

func TestWriteError(t *testing.T) {
	router := gin.New()
	router.GET("/api/v1/udn/:mac", func(c *gin.Context) {
		ctx := logging.ContextWithTraceID(c.Request.Context(), "trace-123")
		c.Request = c.Request.WithContext(ctx)
		WriteError(c, NotFound("assignment not found"))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/udn/AA:BB:CC:DD:EE:FF", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusNotFound)
	}
	parsed := decodeProblem(t, w)
	if parsed.Detail != "assignment not found" {
		t.Errorf("Detail = %q, want %q", parsed.Detail, "assignment not found")
	}
	if parsed.Instance != "/api/v1/udn/AA:BB:CC:DD:EE:FF" {
		t.Errorf("Instance = %q", parsed.Instance)
	}
	if parsed.TraceID != "trace-123" {
		t.Errorf("TraceID = %q, want %q", parsed.TraceID, "trace-123")
	}
}

func TestWriteErrorKeepsExplicitFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/udn", nil)

	problem := Conflict("pool exhausted")
	problem.Instance = "/custom"
	WriteError(c, problem)

	parsed := decodeProblem(t, w)
	if parsed.Instance != "/custom" {
		t.Errorf("Instance = %q, want %q", parsed.Instance, "/custom")
	}
	if parsed.TraceID != "" {
		t.Errorf("TraceID = %q, want empty", parsed.TraceID)
	}
	// 元のProblemDetailは変更しない
	if problem.TraceID != "" || problem.Instance != "/custom" {
		t.Errorf("problem mutated: %+v", problem)
	}
}

func TestWriteErrorWithoutRequest(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	WriteError(c, BadRequest("invalid parameter"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusBadRequest)
	}
	parsed := decodeProblem(t, w)
	if parsed.Instance != "" {
		t.Errorf("Instance = %q, want empty", parsed.Instance)
	}
}

func TestAbortWithErrorInMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			AbortWithError(c, Unauthorized("invalid or missing bearer token"))
			return
		}
		c.Next()
	})
	router.GET("/api/v1/pool", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("aborted", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/pool", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("Status code = %d, want %d", w.Code, http.StatusUnauthorized)
		}
		parsed := decodeProblem(t, w)
		if parsed.Instance != "/api/v1/pool" {
			t.Errorf("Instance = %q", parsed.Instance)
		}
	})

	t.Run("passes", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pool", nil)
		req.Header.Set("Authorization", "Bearer x")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status code = %d, want %d", w.Code, http.StatusOK)
		}
	})
}
