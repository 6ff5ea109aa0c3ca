package main

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSessionValueRoundTrip(t *testing.T) {
	auth := newAuthService(nil, "secret")

	userID, ok := auth.verifySessionValue(auth.createSessionValue("user-1"))
	if !ok || userID != "user-1" {
		t.Fatalf("expected user-1, got %q (ok=%v)", userID, ok)
	}
}

func TestSessionValueRejectsTampering(t *testing.T) {
	auth := newAuthService(nil, "secret")
	value := auth.createSessionValue("user-1")

	payload, signature, _ := strings.Cut(value, ".")
	forged := newAuthService(nil, "other").createSessionValue("admin-1")

	for name, candidate := range map[string]string{
		"empty":           "",
		"no signature":    payload,
		"bad hex":         payload + ".zz",
		"other secret":    forged,
		"swapped payload": strings.Split(forged, ".")[0] + "." + signature,
	} {
		if _, ok := auth.verifySessionValue(candidate); ok {
			t.Fatalf("%s: expected session to be rejected", name)
		}
	}
}

func TestSessionValueExpires(t *testing.T) {
	auth := newAuthService(nil, "secret")
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }
	value := auth.createSessionValue("user-1")

	auth.now = func() time.Time { return issued.Add(sessionMaxAge - time.Minute) }
	if _, ok := auth.verifySessionValue(value); !ok {
		t.Fatal("expected session to be valid before max age")
	}

	auth.now = func() time.Time { return issued.Add(sessionMaxAge + time.Minute) }
	if _, ok := auth.verifySessionValue(value); ok {
		t.Fatal("expected session to expire after max age")
	}
}

func TestSessionCookieSecureFlag(t *testing.T) {
	for _, secure := range []bool{false, true} {
		auth := newAuthService(nil, "secret")
		auth.secureCookie = secure

		set := httptest.NewRecorder()
		auth.setSessionCookie(set, "user-1")
		cleared := httptest.NewRecorder()
		auth.clearSessionCookie(cleared)

		for name, rr := range map[string]*httptest.ResponseRecorder{"set": set, "clear": cleared} {
			cookies := rr.Result().Cookies()
			if len(cookies) != 1 {
				t.Fatalf("%s: expected one cookie, got %d", name, len(cookies))
			}
			if cookies[0].Secure != secure {
				t.Fatalf("%s: Secure = %v, want %v", name, cookies[0].Secure, secure)
			}
			if !cookies[0].HttpOnly {
				t.Fatalf("%s: expected HttpOnly", name)
			}
		}
	}
}
