package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingLogger struct {
	msg  string
	args []any
}

func (l *capturingLogger) Info(msg string, args ...any) {
	l.msg = msg
	l.args = args
}

func Test_LoggerMiddleware(t *testing.T) {
	t.Parallel()

	argsAsMap := func(args []any) map[string]any {
		m := make(map[string]any, len(args)/2)
		for i := 0; i+1 < len(args); i += 2 {
			m[args[i].(string)] = args[i+1]
		}
		return m
	}

	t.Run("status and size captured", func(t *testing.T) {
		l := &capturingLogger{}
		handler := LoggerMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/teapot", nil))

		require.Equal(t, "got HTTP request", l.msg)
		got := argsAsMap(l.args)
		assert.Equal(t, http.MethodGet, got["method"])
		assert.Equal(t, "/teapot", got["uri"])
		assert.Equal(t, http.StatusTeapot, got["status"])
		assert.Equal(t, len("short and stout"), got["size"])
	})

	t.Run("implicit 200 reported", func(t *testing.T) {
		l := &capturingLogger{}
		handler := LoggerMiddleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("ok"))
		}))

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		got := argsAsMap(l.args)
		assert.Equal(t, http.StatusOK, got["status"])
	})
}
