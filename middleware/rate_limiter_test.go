package middleware

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPGeneric_DirectRemote(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	ip := clientIPGeneric(req, nil)
	if ip != "203.0.113.5" {
		t.Fatalf("expected direct remote IP, got %s", ip)
	}
}

func TestClientIPGeneric_TrustedProxyXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.10:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 198.51.100.10")
	// trustedCIDR contains the remote IP
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "203.0.113.7" {
		t.Fatalf("expected X-Forwarded-For first value, got %s", ip)
	}
}

func TestClientIPGeneric_UntrustedProxyIgnoresXFF(t *testing.T) {
	req := httptest.NewRequest("GET", "http://example.local/", nil)
	req.RemoteAddr = "198.51.100.11:443"
	req.Header.Set("X-Forwarded-For", "203.0.113.8, 198.51.100.11")
	ip := clientIPGeneric(req, []string{"198.51.100.10"})
	if ip != "198.51.100.11" {
		t.Fatalf("expected remote IP when proxy untrusted, got %s", ip)
	}
}

func TestSlidingWindowAllow(t *testing.T) {
	sw := &slidingWindow{window: time.Minute, state: make(map[string]timestamps)}
	for i := 0; i < 3; i++ {
		if ok, _ := sw.allow("k", 3); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if ok, _ := sw.allow("k", 3); ok {
		t.Fatal("fourth request should be rejected")
	}
	if ok, _ := sw.allow("other", 3); !ok {
		t.Fatal("different key should not be affected")
	}
}

func TestAccountLockout(t *testing.T) {
	lockoutInitOnce.Do(lockoutInit)
	const uid = 9001
	ResetFailedLogin(uid)
	for i := 0; i < lockoutMax; i++ {
		if locked, _ := IsAccountLocked(uid); locked {
			t.Fatalf("locked after %d attempts, threshold is %d", i, lockoutMax)
		}
		RecordFailedLogin(uid)
	}
	locked, retry := IsAccountLocked(uid)
	if !locked {
		t.Fatal("expected account to be locked")
	}
	if retry <= 0 {
		t.Fatalf("expected positive retry duration, got %v", retry)
	}
	ResetFailedLogin(uid)
	if locked, _ := IsAccountLocked(uid); locked {
		t.Fatal("expected lockout cleared after reset")
	}
}
