package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/crowdshield/dashboard/backend/internal/config"
	"github.com/crowdshield/dashboard/backend/internal/metrics"
	alertmodel "github.com/crowdshield/dashboard/backend/internal/model/alert"
)

const integrationName = "sms"

// Dispatcher routes alerts to Twilio when its credential group is complete
// and to the mock outbox otherwise.
type Dispatcher struct {
	cfg     config.SMSConfig
	live    Sender
	outbox  *Outbox
	limiter *rate.Limiter
	logger  *zap.Logger
}

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithSender replaces the live sender.
func WithSender(s Sender) Option {
	return func(d *Dispatcher) {
		d.live = s
	}
}

// WithOutbox shares an outbox between dispatchers.
func WithOutbox(o *Outbox) Option {
	return func(d *Dispatcher) {
		d.outbox = o
	}
}

// NewDispatcher builds the Twilio client when the credential group is
// complete. A construction failure is logged and leaves only the mock path.
func NewDispatcher(cfg config.SMSConfig, logger *zap.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	perMinute := cfg.RatePerMinute
	if perMinute <= 0 {
		perMinute = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	d := &Dispatcher{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), burst),
		logger:  logger.Named("alert"),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.outbox == nil {
		d.outbox = NewOutbox()
	}

	if d.live == nil && cfg.Enabled() {
		sender, err := NewTwilioSender(cfg)
		if err != nil {
			d.logger.Warn("twilio client unavailable, alerts will use the mock sender", zap.Error(err))
		} else {
			d.live = sender
		}
	}
	return d
}

// Mode reports whether Send would reach the live provider.
func (d *Dispatcher) Mode() config.Mode {
	if d.live != nil && d.cfg.Enabled() {
		return config.ModeLive
	}
	return config.ModeFallback
}

// Outbox exposes messages captured by the mock sender.
func (d *Dispatcher) Outbox() *Outbox {
	return d.outbox
}

// Send dispatches message to `to`, or to the configured default recipient
// when `to` is empty. The result is always (sent, detail).
func (d *Dispatcher) Send(ctx context.Context, message, to string) alertmodel.Result {
	message = strings.TrimSpace(message)
	if message == "" {
		return alertmodel.Result{Sent: false, Detail: "message is empty"}
	}

	to = strings.TrimSpace(to)
	if to == "" {
		to = d.cfg.ToNumber
	}

	missing := d.cfg.Missing()
	if len(missing) > 0 || d.live == nil {
		entry := d.outbox.Record(to, message)
		metrics.ObserveIntegration(integrationName, string(config.ModeFallback), metrics.OutcomeSkipped)

		reason := fmt.Sprintf("twilio credentials missing (%s); alert recorded by mock sender", strings.Join(missing, ", "))
		if len(missing) == 0 {
			reason = "twilio client unavailable; alert recorded by mock sender"
		}
		d.logger.Info("alert captured by mock sender", zap.String("id", entry.ID), zap.Strings("missing", missing))
		return alertmodel.Result{Sent: false, Detail: reason}
	}

	if !d.limiter.Allow() {
		metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeSkipped)
		return alertmodel.Result{Sent: false, Detail: "rate limit exceeded"}
	}

	start := time.Now()
	sid, err := d.live.Send(ctx, to, message)
	metrics.IntegrationDuration.WithLabelValues(integrationName).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeError)
		d.logger.Warn("twilio send failed", zap.Error(err))
		return alertmodel.Result{Sent: false, Detail: err.Error()}
	}

	metrics.ObserveIntegration(integrationName, string(config.ModeLive), metrics.OutcomeSuccess)
	d.logger.Info("alert sent", zap.String("sid", sid))
	return alertmodel.Result{Sent: true, Detail: sid}
}
