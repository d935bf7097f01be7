package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/amaydixit11/tabsync/internal/apperr"
)

func request(t *testing.T, headerValue string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/sync", nil)
	if headerValue != "" {
		r.Header.Set("Authorization", headerValue)
	}
	return r
}

func TestCheckMissingHeader(t *testing.T) {
	c := New("", "secret", "")
	_, err := c.Check(request(t, ""))
	var appErr *apperr.Error
	if !errorsAs(err, &appErr) || appErr.Code() != apperr.CodeAuthMissing {
		t.Fatalf("expected auth_missing, got %v", err)
	}
}

func TestCheckMalformedPrefix(t *testing.T) {
	c := New("", "secret", "")
	_, err := c.Check(request(t, "Token secret"))
	var appErr *apperr.Error
	if !errorsAs(err, &appErr) || appErr.Code() != apperr.CodeAuthInvalid {
		t.Fatalf("expected auth_invalid for bad scheme, got %v", err)
	}
}

func TestCheckWrongToken(t *testing.T) {
	c := New("", "secret", "")
	_, err := c.Check(request(t, "Bearer wrong"))
	var appErr *apperr.Error
	if !errorsAs(err, &appErr) || appErr.Code() != apperr.CodeAuthInvalid {
		t.Fatalf("expected auth_invalid for wrong token, got %v", err)
	}
}

func TestCheckCaseSensitive(t *testing.T) {
	c := New("", "Secret", "")
	_, err := c.Check(request(t, "Bearer secret"))
	if err == nil {
		t.Error("expected case-sensitive comparison to reject differently-cased token")
	}
}

func TestCheckSucceedsWithSentinelDeviceID(t *testing.T) {
	c := New("", "secret", "")
	ctx, err := c.Check(request(t, "Bearer secret"))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if ctx.DeviceID != Sentinel {
		t.Errorf("expected sentinel device id, got %q", ctx.DeviceID)
	}
}

func TestCheckSucceedsAgainstBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}
	c := New("", "", string(hash))
	if _, err := c.Check(request(t, "Bearer hunter2")); err != nil {
		t.Errorf("expected bcrypt-hashed token to match: %v", err)
	}
}

func TestCheckHonorsConfiguredHeaderName(t *testing.T) {
	c := New("X-Tabsync-Token", "secret", "")
	r := httptest.NewRequest(http.MethodPost, "/sync", nil)
	r.Header.Set("X-Tabsync-Token", "Bearer secret")
	if _, err := c.Check(r); err != nil {
		t.Errorf("expected configured header name to be honored: %v", err)
	}
}

func errorsAs(err error, target **apperr.Error) bool {
	e, ok := err.(*apperr.Error)
	if !ok {
		return false
	}
	*target = e
	return true
}
