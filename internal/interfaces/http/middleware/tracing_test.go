package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ifcvalidation/bff/internal/domain/identity"
	"github.com/ifcvalidation/bff/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer returns a provider that records spans and the recorder.
func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return tp, sr
}

func tracedRouter(tp *sdktrace.TracerProvider, handlers ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID())
	router.Use(TracingWithConfig(TracingConfig{
		Enabled:        true,
		ServiceName:    "test-service",
		TracerProvider: tp,
	}))
	router.Use(handlers...)
	return router
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no span named %q", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	tp, sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false, TracerProvider: tp}))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracingWithConfig_Enabled(t *testing.T) {
	tp, sr := setupTestTracer(t)

	router := tracedRouter(tp)
	router.GET("/api/download/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/download/12", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	findSpan(t, sr, "GET /api/download/:id")
}

func TestTracingAttributeInjector_RequestID(t *testing.T) {
	tp, sr := setupTestTracer(t)

	router := tracedRouter(tp, TracingAttributeInjector())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(RequestIDHeader, "test-request-id-123")
	router.ServeHTTP(httptest.NewRecorder(), req)

	span := findSpan(t, sr, "GET /test")
	v, ok := spanAttr(span, "request_id")
	require.True(t, ok, "request_id attribute not found in span")
	assert.Equal(t, "test-request-id-123", v.AsString())

	_, ok = spanAttr(span, "user_id")
	assert.False(t, ok, "anonymous request must not carry user_id")
}

func TestTracingAttributeInjector_CurrentUser(t *testing.T) {
	tp, sr := setupTestTracer(t)

	user := &identity.User{BaseEntity: shared.BaseEntity{ID: 42}, IsActive: false}
	router := tracedRouter(tp,
		func(c *gin.Context) {
			c.Set(CurrentUserKey, user)
			c.Next()
		},
		TracingAttributeInjector(),
	)
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

	span := findSpan(t, sr, "GET /test")
	v, ok := spanAttr(span, "user_id")
	require.True(t, ok)
	assert.Equal(t, int64(42), v.AsInt64())
	v, ok = spanAttr(span, "user_active")
	require.True(t, ok)
	assert.False(t, v.AsBool())
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		wantCode    codes.Code
		wantMessage string
	}{
		{"bad request", http.StatusBadRequest, codes.Error, "Client Error"},
		{"unauthorized", http.StatusUnauthorized, codes.Error, "Unauthorized"},
		{"forbidden", http.StatusForbidden, codes.Error, "Forbidden"},
		{"not found", http.StatusNotFound, codes.Error, "Not Found"},
		{"internal", http.StatusInternalServerError, codes.Error, "Internal Server Error"},
		{"ok", http.StatusOK, codes.Unset, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, sr := setupTestTracer(t)

			router := tracedRouter(tp, SpanErrorMarker())
			router.GET("/test", func(c *gin.Context) {
				c.Status(tt.status)
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/test", nil))

			span := findSpan(t, sr, "GET /test")
			assert.Equal(t, tt.wantCode, span.Status().Code)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, span.Status().Description)
			}
		})
	}
}

func TestSpanErrorMarker_WithNoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanErrorMarker())
	router.Use(TracingAttributeInjector())
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, "ifc-validation-bff", cfg.ServiceName)
	assert.Nil(t, cfg.TracerProvider)
}
