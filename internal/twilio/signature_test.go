package twilio

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookParams() url.Values {
	return url.Values{
		"From":       []string{"whatsapp:+15551234567"},
		"To":         []string{"whatsapp:+15559876543"},
		"Body":       []string{"London"},
		"MessageSid": []string{"SM1234567890abcdef"},
	}
}

func TestValidateAcceptsCorrectSignature(t *testing.T) {
	v := NewRequestValidator("test-auth-token")
	callback := "https://bot.example.com/webhook/whatsapp"
	params := webhookParams()

	signature := v.sign(callback, params)
	assert.True(t, v.Validate(callback, params, signature))
}

func TestValidateRejectsMutations(t *testing.T) {
	v := NewRequestValidator("test-auth-token")
	callback := "https://bot.example.com/webhook/whatsapp"
	params := webhookParams()
	signature := v.sign(callback, params)

	t.Run("body changed", func(t *testing.T) {
		mutated := webhookParams()
		mutated.Set("Body", "Londom")
		assert.False(t, v.Validate(callback, mutated, signature))
	})

	t.Run("url changed", func(t *testing.T) {
		assert.False(t, v.Validate("https://bot.example.com/webhook/whatsapp2", params, signature))
	})

	t.Run("header changed", func(t *testing.T) {
		assert.False(t, v.Validate(callback, params, mutate(signature)))
	})

	t.Run("header empty", func(t *testing.T) {
		assert.False(t, v.Validate(callback, params, ""))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewRequestValidator("other-token")
		assert.False(t, other.Validate(callback, params, signature))
	})
}

func TestValidateCoversEveryFormParameter(t *testing.T) {
	v := NewRequestValidator("test-auth-token")
	callback := "https://bot.example.com/webhook/whatsapp"
	params := webhookParams()
	signature := v.sign(callback, params)

	extra := webhookParams()
	extra.Set("Injected", "1")
	assert.False(t, v.Validate(callback, extra, signature), "adding a parameter must break the signature")

	dropped := webhookParams()
	dropped.Del("MessageSid")
	assert.False(t, v.Validate(callback, dropped, signature), "removing a parameter must break the signature")
}

func TestValidateSkippedWhenNoSecretConfigured(t *testing.T) {
	v := NewRequestValidator("")

	require.False(t, v.Enabled())
	assert.True(t, v.Validate("https://bot.example.com/webhook/whatsapp", webhookParams(), ""))
	assert.True(t, v.Validate("https://bot.example.com/webhook/whatsapp", webhookParams(), "garbage"))
}

// mutate flips the first byte of a signature string.
func mutate(s string) string {
	if s == "" {
		return "X"
	}
	b := []byte(s)
	if b[0] == 'X' {
		b[0] = 'Y'
	} else {
		b[0] = 'X'
	}
	return string(b)
}
