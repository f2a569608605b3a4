package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func guestRouter() *gin.Engine {
	r := gin.New()
	r.Use(GuestSession())
	r.GET("/cart", func(c *gin.Context) {
		c.String(http.StatusOK, CurrentSessionKey(c))
	})
	return r
}

func TestGuestSessionMintsKey(t *testing.T) {
	w := httptest.NewRecorder()
	guestRouter().ServeHTTP(w, httptest.NewRequest("GET", "/cart", nil))

	key := w.Body.String()
	if _, err := uuid.Parse(key); err != nil {
		t.Fatalf("expected a uuid session key, got %q", key)
	}
	if got := w.Header().Get(GuestSessionHeader); got != key {
		t.Errorf("expected header %q, got %q", key, got)
	}
	if cookie := w.Header().Get("Set-Cookie"); !strings.Contains(cookie, GuestSessionCookie+"="+key) {
		t.Errorf("expected session cookie, got %q", cookie)
	}
}

func TestGuestSessionPrefersHeader(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(GuestSessionHeader, "from-header")
	req.AddCookie(&http.Cookie{Name: GuestSessionCookie, Value: "from-cookie"})
	guestRouter().ServeHTTP(w, req)

	if w.Body.String() != "from-header" {
		t.Fatalf("expected header session, got %q", w.Body.String())
	}
}

func TestGuestSessionReadsCookie(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/cart", nil)
	req.AddCookie(&http.Cookie{Name: GuestSessionCookie, Value: "from-cookie"})
	guestRouter().ServeHTTP(w, req)

	if w.Body.String() != "from-cookie" {
		t.Fatalf("expected cookie session, got %q", w.Body.String())
	}
}

func TestGuestSessionReplacesOversizedKey(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(GuestSessionHeader, strings.Repeat("x", maxSessionKeyLen+1))
	guestRouter().ServeHTTP(w, req)

	if _, err := uuid.Parse(w.Body.String()); err != nil {
		t.Fatalf("expected a fresh uuid, got %q", w.Body.String())
	}
}
