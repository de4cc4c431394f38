package app

import "strings"

// Token returns the webhook auth token with surrounding whitespace removed.
func (c WebhookConfig) Token() string {
	return strings.TrimSpace(c.AuthToken)
}

// Secured reports whether inbound webhook signatures will be verified.
func (c WebhookConfig) Secured() bool {
	return c.Token() != ""
}

// Callback returns the externally visible webhook URL, if one is configured.
func (c WebhookConfig) Callback() string {
	return strings.TrimSpace(c.CallbackURL)
}
