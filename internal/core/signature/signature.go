// Package signature authenticates gateway webhook deliveries.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/MikeRez0/orderpay/internal/core/domain"
	"go.uber.org/zap"
)

const (
	HeaderPrimary   = "Chapa-Signature"
	HeaderSecondary = "x-chapa-signature"

	prefix = "sha256="
)

var ErrNoSecret = errors.New("webhook secret is empty and permissive mode is not enabled")

type Verifier struct {
	secret     []byte
	permissive bool
	logger     *zap.Logger
}

// NewVerifier refuses an empty secret unless permissive mode is asked for
// explicitly. A configured secret always wins over the permissive flag.
func NewVerifier(secret string, permissive bool, logger *zap.Logger) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" && !permissive {
		return nil, ErrNoSecret
	}
	if secret == "" {
		logger.Warn("webhook signature verification is DISABLED (permissive mode)")
	}
	return &Verifier{
		secret:     []byte(secret),
		permissive: secret == "",
		logger:     logger,
	}, nil
}

func (v *Verifier) Permissive() bool {
	return v.permissive
}

// Verify checks the candidates in order and succeeds on the first match.
func (v *Verifier) Verify(payload []byte, signatures ...string) error {
	if v.permissive {
		return nil
	}

	expected := []byte(Sign(payload, v.secret))
	present := 0
	for i, s := range signatures {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		present++
		s = strings.TrimPrefix(strings.ToLower(s), prefix)
		if subtle.ConstantTimeCompare([]byte(s), expected) == 1 {
			v.logger.Debug("webhook signature verified", zap.Int("slot", i))
			return nil
		}
	}

	if present == 0 {
		return fmt.Errorf("%w: no signature provided", domain.ErrSignatureVerification)
	}
	return fmt.Errorf("%w: %d signature(s) did not match", domain.ErrSignatureVerification, present)
}

// Sign returns the lowercase hex HMAC-SHA256 of payload.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
