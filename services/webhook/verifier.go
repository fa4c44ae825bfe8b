package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"readingbot/pkg/config"
	"readingbot/pkg/errutil"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

const signaturePrefix = "sha256_"

// Verifier checks the HMAC-SHA256 signature the gateway attaches to every
// notification.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func ProvideVerifier(cfg *config.Config) *Verifier {
	return NewVerifier(cfg.WebhookSecret())
}

// Sign returns the hex signature of payload without the prefix.
func (v *Verifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify accepts the lowercase hex signature with or without the "sha256_"
// prefix.
func (v *Verifier) Verify(payload []byte, signature string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return errutil.BadRequest("missing signature", ErrMissingSignature)
	}

	// Compared as lowercase hex text: decoding first would accept case flips.
	got := strings.TrimPrefix(signature, signaturePrefix)
	if !hmac.Equal([]byte(v.Sign(payload)), []byte(got)) {
		return errutil.Unauthorized("invalid signature", ErrInvalidSignature)
	}
	return nil
}
