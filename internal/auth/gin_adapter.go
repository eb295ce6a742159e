package auth

import (
	"log"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
)

// sessionWriter flushes the session cookie right before the first byte of the
// response goes out. Gin handlers write headers eagerly, so committing after
// c.Next() would be too late for any handler that rendered a body.
type sessionWriter struct {
	gin.ResponseWriter
	sessions *SessionManager
	req      *http.Request
	flushed  bool
}

func (w *sessionWriter) WriteHeader(code int) {
	w.flush()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.flush()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.flush()
	return w.ResponseWriter.WriteString(s)
}

// flush runs at most once per request.
func (w *sessionWriter) flush() {
	if w.flushed {
		return
	}
	w.flushed = true

	ctx := w.req.Context()
	switch w.sessions.Status(ctx) {
	case scs.Unmodified:
		return
	case scs.Destroyed:
		w.sessions.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
	case scs.Modified:
		token, expiry, err := w.sessions.Commit(ctx)
		if err != nil {
			log.Printf("Session commit failed for %s %s: %v", w.req.Method, w.req.URL.Path, err)
			return
		}
		w.sessions.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
	}
	w.Header().Add("Vary", "Cookie")
}

// SessionLoadSave loads the session named by the request cookie into the
// request context and persists any change before the response is written.
// Register it ahead of every handler that touches the session.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			log.Printf("Session load failed: %v", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Server Error",
			})
			return
		}
		c.Request = c.Request.WithContext(ctx)

		writer := &sessionWriter{ResponseWriter: c.Writer, sessions: sm, req: c.Request}
		c.Writer = writer

		c.Next()

		// Handlers that never wrote (e.g. c.Status only) still need the cookie.
		writer.flush()
	}
}
