package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"queueup/internal/config"
	"queueup/internal/constants"

	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"
)

// WebhookSink POSTs events as JSON to a configured webhook URL.
type WebhookSink struct {
	url    string
	client *fasthttp.Client
	logger zerolog.Logger
}

func NewWebhookSink(cfg *config.Config, logger zerolog.Logger) *WebhookSink {
	return &WebhookSink{
		url: cfg.WebhookURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.SinkTimeout,
			WriteTimeout:        constants.SinkTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger,
	}
}

func (s *WebhookSink) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(s.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if ok {
		err = s.client.DoDeadline(req, resp, deadline)
	} else {
		err = s.client.DoDeadline(req, resp, time.Now().Add(constants.SinkTimeout))
	}
	if err != nil {
		return fmt.Errorf("failed to deliver event: %w", err)
	}

	if resp.StatusCode() >= fasthttp.StatusBadRequest {
		return fmt.Errorf("webhook error: %d", resp.StatusCode())
	}

	s.logger.Debug().
		Str("kind", ev.Kind).
		Str("tenant_id", ev.TenantID).
		Int("session", ev.Session).
		Msg("event delivered")
	return nil
}

// NewSink picks the webhook sink when a URL is configured, otherwise a nop.
func NewSink(cfg *config.Config, logger zerolog.Logger) Sink {
	if cfg.WebhookURL == "" {
		logger.Info().Msg("no webhook configured, announcements disabled")
		return NopSink{}
	}
	return NewWebhookSink(cfg, logger)
}
