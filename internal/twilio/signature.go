package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base64"
	"net/url"
	"sort"
)

// SignatureHeader is the request header carrying the platform signature.
const SignatureHeader = "X-Twilio-Signature"

// RequestValidator recomputes and checks webhook signatures. Twilio signs
// each callback by appending every POST parameter name and value, sorted by
// name, to the full callback URL, then HMAC-SHA1-ing the result with the
// account's auth token and base64-encoding the digest.
type RequestValidator struct {
	authToken string
}

// NewRequestValidator builds a validator around the shared auth token.
func NewRequestValidator(authToken string) *RequestValidator {
	return &RequestValidator{authToken: authToken}
}

// Enabled reports whether a secret is configured. When false, verification
// is skipped entirely; callers decide how loudly to announce that mode.
func (v *RequestValidator) Enabled() bool {
	return v != nil && v.authToken != ""
}

// Validate checks the signature header against the callback URL and form
// parameters. It returns true when verification is disabled or the
// recomputed signature matches using a constant-time comparison.
func (v *RequestValidator) Validate(callbackURL string, params url.Values, signature string) bool {
	if !v.Enabled() {
		return true
	}
	if signature == "" {
		return false
	}

	expected := v.sign(callbackURL, params)
	return constantTimeEqual(expected, signature)
}

func (v *RequestValidator) sign(callbackURL string, params url.Values) string {
	payload := callbackURL
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range params[key] {
			payload += key + value
		}
	}

	mac := hmac.New(sha1.New, []byte(v.authToken))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func constantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
