package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolve(t *testing.T) {
	t.Run("keeps the presented token", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/lounge/write", nil)
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "abc"})
		token, minted := Resolve(r)
		if token != "abc" || minted {
			t.Errorf("Resolve() = %q, %v", token, minted)
		}
	})
	t.Run("mints a fresh token", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/lounge/write", nil)
		first, minted := Resolve(r)
		if first == "" || !minted {
			t.Fatalf("Resolve() = %q, %v", first, minted)
		}
		second, _ := Resolve(r)
		if first == second {
			t.Errorf("Resolve() reused token %q", first)
		}
	})
}

func TestCurrentNeverMints(t *testing.T) {
	r := httptest.NewRequest("POST", "/comment/1/delete", nil)
	if got := Current(r); got != "" {
		t.Errorf("Current() = %q, want empty", got)
	}
}

func TestIssue(t *testing.T) {
	w := httptest.NewRecorder()
	Issue(w, "abc")
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("got %d cookies", len(cookies))
	}
	c := cookies[0]
	if c.Name != CookieName || c.Value != "abc" {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags HttpOnly=%v SameSite=%v", c.HttpOnly, c.SameSite)
	}
	if c.MaxAge != 365*24*60*60 {
		t.Errorf("cookie MaxAge = %d", c.MaxAge)
	}
}
