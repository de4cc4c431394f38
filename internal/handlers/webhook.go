package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/charlesng35/weatherbot/internal/models"
	"github.com/charlesng35/weatherbot/internal/ratelimit"
	"github.com/charlesng35/weatherbot/internal/services"
	"github.com/charlesng35/weatherbot/internal/twilio"
	apperrors "github.com/charlesng35/weatherbot/pkg/errors"
	"github.com/charlesng35/weatherbot/pkg/logger"
	"github.com/charlesng35/weatherbot/pkg/metrics"
)

const greetingReply = `WhatsApp Weather Bot

Commands:
- Send city name for weather (e.g., 'London' or 'New York')
- 'help' for commands
- 'ping' to test

Example: London`

const helpReply = `Available commands:
- Send city name for weather
- 'ping' - test bot
- 'help' - show commands

Supported: Any city worldwide`

const pingReply = "Weather bot is working!"

var conditionCaser = cases.Title(language.Und)

// WebhookHandler ingests messaging-platform callbacks. Each request walks
// the pipeline in order: signature, rate limit, dispatch. Failures before
// admission answer with plain HTTP errors; anything after admission is a
// delivered conversation turn and answers 200 with a TwiML body.
type WebhookHandler struct {
	lookup      *services.LookupService
	limiter     *ratelimit.Limiter
	validator   *twilio.RequestValidator
	callbackURL string
	log         *zap.Logger
}

// NewWebhookHandler wires the webhook entry point. callbackURL is the
// publicly visible URL the platform signs; when empty the URL is
// reconstructed from the request.
func NewWebhookHandler(
	lookup *services.LookupService,
	limiter *ratelimit.Limiter,
	validator *twilio.RequestValidator,
	callbackURL string,
) *WebhookHandler {
	return &WebhookHandler{
		lookup:      lookup,
		limiter:     limiter,
		validator:   validator,
		callbackURL: strings.TrimSpace(callbackURL),
		log:         logger.WithModule("webhook"),
	}
}

// Receive handles one inbound message and always emits exactly one reply.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	if h.validator.Enabled() {
		signature := c.GetHeader(twilio.SignatureHeader)
		if !h.validator.Validate(h.requestURL(c), c.Request.PostForm, signature) {
			h.log.Warn("webhook signature verification failed",
				zap.String("remote_addr", c.ClientIP()))
			c.String(http.StatusForbidden, "Forbidden")
			return
		}
	}

	sender := strings.TrimSpace(c.Request.PostForm.Get("From"))
	body := c.Request.PostForm.Get("Body")
	if sender == "" {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	if !h.limiter.Allow(sender) {
		metrics.RateLimited.WithLabelValues(sender).Inc()
		h.log.Warn("sender rate limited", zap.String("sender", sender))
		c.String(http.StatusTooManyRequests, "Too many requests, please try again later.")
		return
	}

	reply, messageType := h.messageReply(requestContext(c), body)
	metrics.WebhookMessages.WithLabelValues(messageType).Inc()

	payload, err := twilio.Reply(reply)
	if err != nil {
		h.log.Error("render reply", zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	c.Data(http.StatusOK, twilio.ContentType, payload)
}

// messageReply dispatches a message body to a canned command or, failing
// that, treats it as a place name. It returns the reply text and the
// message type recorded in metrics.
func (h *WebhookHandler) messageReply(ctx context.Context, body string) (string, string) {
	switch strings.ToLower(strings.TrimSpace(body)) {
	case "hello", "hi", "start":
		return greetingReply, "greeting"
	case "help", "?":
		return helpReply, "help"
	case "ping":
		return pingReply, "ping"
	}

	result, err := h.lookup.Lookup(ctx, body)
	if err == nil {
		return formatWeatherReply(result.Record), "weather_success"
	}

	if errors.Is(err, context.Canceled) {
		// Caller hung up; the reply will never be delivered but one is
		// still owed to the framework.
		return "Sorry, an error occurred. Please try again later.", "weather_error"
	}

	appErr := apperrors.FromError(err)
	switch appErr.Code {
	case apperrors.ErrInvalidCity.Code:
		return appErr.Message, "invalid_input"
	case apperrors.ErrCityNotFound.Code:
		city := strings.TrimSpace(body)
		return fmt.Sprintf("Could not fetch weather for: %s\n\nTry a different city name.", city), "weather_error"
	default:
		h.log.Error("weather lookup failed", zap.String("code", appErr.Code), zap.Error(err))
		return "Sorry, the weather service is unavailable right now. Please try again later.", "weather_error"
	}
}

func (h *WebhookHandler) requestURL(c *gin.Context) string {
	if h.callbackURL != "" {
		return h.callbackURL
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}

func formatWeatherReply(record *models.WeatherRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Weather Update for %s\n\n", record.City)
	fmt.Fprintf(&b, "Temperature: %.1f°C\n", record.Temperature)
	fmt.Fprintf(&b, "Conditions: %s\n", conditionCaser.String(record.Description))
	fmt.Fprintf(&b, "Feels like: %.1f°C\n", record.FeelsLike)
	fmt.Fprintf(&b, "Humidity: %d%%\n\n", record.Humidity)
	fmt.Fprintf(&b, "Last updated: %s", record.CreatedAt.Format("2006-01-02 15:04:05"))
	return b.String()
}
