// Package tracetoken generates the opaque per-TransferRequest trace token
// named in spec.md §3 and, when a signing key is configured, produces a
// signed variant a journal consumer can verify without trusting the
// journal store's integrity (SPEC_FULL.md §9).
package tracetoken

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// claims carries the trace token identifier inside a standard HS256 JWT.
type claims struct {
	TraceToken string `json:"tid"`
	jwt.RegisteredClaims
}

// Generator mints trace tokens and, when key is non-empty, signs them.
// The zero value is a valid unsigned generator.
type Generator struct {
	key []byte
}

// NewGenerator builds a Generator. A nil or empty key disables signing:
// Sign becomes a no-op that returns the bare token.
func NewGenerator(key []byte) *Generator {
	return &Generator{key: key}
}

// New mints a fresh opaque trace token (a UUID v4 string).
func (g *Generator) New() string {
	return uuid.NewString()
}

// Sign wraps traceToken in an HS256 JWT when a signing key is configured,
// otherwise it returns traceToken unchanged. Signing failures are returned
// to the caller rather than swallowed: unlike journal writes, this isn't a
// terminal task event, so there's no established "log and continue" point
// here — callers that journal opportunistically (see Verify) already treat
// a signing/verification failure as "admit unsigned" rather than fatal.
func (g *Generator) Sign(traceToken string) (string, error) {
	if g == nil || len(g.key) == 0 {
		return traceToken, nil
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		TraceToken: traceToken,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	})
	return token.SignedString(g.key)
}

// Verify recovers the trace token from a string previously returned by
// Sign. If signing is disabled, signed is assumed to already be the bare
// token. Per SPEC_FULL.md §9, a verification failure never blocks a
// transfer: callers use the bool to decide only whether to admit a journal
// record, never whether to proceed with a transfer.
func (g *Generator) Verify(signed string) (traceToken string, ok bool) {
	if g == nil || len(g.key) == 0 {
		return signed, true
	}
	parsed, err := jwt.ParseWithClaims(signed, &claims{}, func(t *jwt.Token) (any, error) {
		return g.key, nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}
	c, ok := parsed.Claims.(*claims)
	if !ok {
		return "", false
	}
	return c.TraceToken, true
}
