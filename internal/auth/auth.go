// Package auth validates the single shared bearer token every request must
// present. The produced Context carries a fixed sentinel device id: the
// protocol's real device identity always comes from the request body, never
// from auth, so nothing downstream can accidentally key off of it (spec §9).
package auth

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/amaydixit11/tabsync/internal/apperr"
)

// Sentinel is the fixed device id every AuthContext carries. The request
// body's device_id must never equal this value (internal/validate rejects
// it), which keeps the two identity sources from ever being confused.
const Sentinel = "auth-validated"

// Context is what a successful auth check produces.
type Context struct {
	DeviceID string // always Sentinel
	Token    string
}

// Checker validates the bearer token against a configured shared secret,
// either in cleartext or pre-hashed with bcrypt.
type Checker struct {
	headerName string
	token      string
	tokenHash  string
}

// New builds a Checker. headerName defaults to "Authorization" when empty.
// Exactly one of token/tokenHash should normally be set; if both are, only
// the hash is checked and the cleartext token is ignored.
func New(headerName, token, tokenHash string) *Checker {
	if headerName == "" {
		headerName = "Authorization"
	}
	return &Checker{headerName: headerName, token: token, tokenHash: tokenHash}
}

// Check reads the configured header off r and validates it. Failure modes
// are distinguished per spec §4.7: a missing header, a malformed scheme
// prefix, and a mismatched token each map to a distinct error code.
func (c *Checker) Check(r *http.Request) (*Context, error) {
	header := r.Header.Get(c.headerName)
	if header == "" {
		return nil, apperr.AuthMissing()
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, apperr.AuthInvalidFormat()
	}
	presented := strings.TrimPrefix(header, prefix)
	if presented == "" {
		return nil, apperr.AuthInvalidFormat()
	}

	if !c.matches(presented) {
		return nil, apperr.AuthInvalidToken()
	}

	return &Context{DeviceID: Sentinel, Token: presented}, nil
}

func (c *Checker) matches(presented string) bool {
	if c.tokenHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.tokenHash), []byte(presented)) == nil
	}
	// Exact, case-sensitive comparison, per spec §4.7.
	return presented == c.token
}
