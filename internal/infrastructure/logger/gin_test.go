package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serveWithMiddleware(t *testing.T, level zapcore.Level, register func(*gin.Engine), method, target string, header http.Header) *observer.ObservedLogs {
	t.Helper()
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(level)
	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core)))
	register(engine)

	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	engine.ServeHTTP(httptest.NewRecorder(), req)
	return recorded
}

func findRequestLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	for _, entry := range recorded.All() {
		if entry.Message == "HTTP request" {
			return entry
		}
	}
	t.Fatal("no HTTP request log entry recorded")
	return observer.LoggedEntry{}
}

func TestGinMiddleware(t *testing.T) {
	recorded := serveWithMiddleware(t, zapcore.InfoLevel, func(e *gin.Engine) {
		e.GET("/invoices", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"message": "ok"})
		})
	}, http.MethodGet, "/invoices", nil)

	entry := findRequestLog(t, recorded)
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
}

func TestGinMiddleware_WithRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.InfoLevel)
	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("request_id", "req-123")
		c.Next()
	})
	engine.Use(GinMiddleware(zap.New(core)))
	engine.GET("/invoices", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invoices", nil))

	entry := findRequestLog(t, recorded)
	fields := entry.ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
}

func TestGinMiddleware_ClientErrorLogsWarn(t *testing.T) {
	recorded := serveWithMiddleware(t, zapcore.WarnLevel, func(e *gin.Engine) {
		e.GET("/bad", func(c *gin.Context) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		})
	}, http.MethodGet, "/bad", nil)

	entry := findRequestLog(t, recorded)
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
}

func TestGinMiddleware_ServerErrorLogsError(t *testing.T) {
	recorded := serveWithMiddleware(t, zapcore.ErrorLevel, func(e *gin.Engine) {
		e.GET("/boom", func(c *gin.Context) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		})
	}, http.MethodGet, "/boom", nil)

	entry := findRequestLog(t, recorded)
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
}

func TestGinMiddleware_LogsQueryString(t *testing.T) {
	recorded := serveWithMiddleware(t, zapcore.InfoLevel, func(e *gin.Engine) {
		e.GET("/invoices", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
	}, http.MethodGet, "/invoices?status=SENT&page=1", nil)

	entry := findRequestLog(t, recorded)
	query, ok := entry.ContextMap()["query"].(string)
	require.True(t, ok, "query should be in log fields")
	assert.Contains(t, query, "status=SENT")
}

func TestGinMiddleware_LogsStandardFields(t *testing.T) {
	header := http.Header{}
	header.Set("User-Agent", "Test-Agent/1.0")

	recorded := serveWithMiddleware(t, zapcore.InfoLevel, func(e *gin.Engine) {
		e.POST("/api/v1/billing/invoices", func(c *gin.Context) {
			c.JSON(http.StatusCreated, gin.H{"id": 1})
		})
	}, http.MethodPost, "/api/v1/billing/invoices", header)

	entry := findRequestLog(t, recorded)
	fields := entry.ContextMap()
	for _, key := range []string{"status", "latency", "client_ip", "user_agent", "method", "path"} {
		assert.Contains(t, fields, key)
	}
	assert.Equal(t, "Test-Agent/1.0", fields["user_agent"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, recorded := observer.New(zapcore.ErrorLevel)
	engine := gin.New()
	engine.Use(Recovery(zap.New(core)))
	engine.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	logs := recorded.All()
	require.NotEmpty(t, logs)
	assert.Equal(t, "Panic recovered", logs[0].Message)
}

func TestGetGinLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, _ := observer.New(zapcore.InfoLevel)
	var fromContext *zap.Logger

	engine := gin.New()
	engine.Use(GinMiddleware(zap.New(core)))
	engine.GET("/invoices", func(c *gin.Context) {
		fromContext = GetGinLogger(c)
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invoices", nil))

	assert.NotNil(t, fromContext)
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromContext *zap.Logger

	engine := gin.New()
	engine.GET("/invoices", func(c *gin.Context) {
		fromContext = GetGinLogger(c)
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/invoices", nil))

	// Falls back to a usable nop logger
	require.NotNil(t, fromContext)
	assert.NotPanics(t, func() {
		fromContext.Info("test")
	})
}
