package notifier

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/alto9/kube9-vscode-sub011/internal/types"
)

const (
	defaultWebhookTimeout    = 10 * time.Second
	defaultWebhookWorkers    = 2
	defaultWebhookOutboxSize = 64
	defaultWebhookPerMinute  = 60
	maxDeliveryAttempts      = 4
	defaultRetryAfterCap     = 30 * time.Second
	webhookUserAgent         = "kube9-notifier"

	headerIdempotencyKey  = "Idempotency-Key"
	headerDeliveryAttempt = "X-Kube9-Delivery-Attempt"
	headerErrorKind       = "X-Kube9-Error-Kind"

	redacted = "REDACTED"
)

// WebhookEnvelope is the JSON payload POSTed to webhook endpoints.
type WebhookEnvelope struct {
	// Type identifies the payload kind.
	Type string `json:"type"`
	// SchemaVersion allows consumers to detect breaking changes.
	SchemaVersion string `json:"schemaVersion"`
	// Timestamp is the RFC3339 time the payload was sent.
	Timestamp string `json:"timestamp"`
	// Data contains the redacted error record.
	Data ErrorRecord `json:"data"`
}

var severityOrder = map[types.Severity]int{
	types.SeverityInfo:    1,
	types.SeverityWarning: 2,
	types.SeverityError:   3,
}

// severityRank orders severities; unknown values rank below INFO.
func severityRank(s types.Severity) int {
	return severityOrder[s]
}

func recordRank(rec ErrorRecord) int {
	return severityRank(types.Severity(rec.Severity))
}

// outbox queues records awaiting delivery. When full, a new record displaces
// the oldest queued record of the lowest strictly-lower severity; if there is
// none, the new record is refused.
type outbox struct {
	mu      sync.Mutex
	pending []ErrorRecord
	limit   int
	ready   chan struct{}
}

func newOutbox(limit int) *outbox {
	return &outbox{limit: limit, ready: make(chan struct{}, 1)}
}

// push queues rec. It returns the displaced record, if any, and false when
// rec was refused.
func (o *outbox) push(rec ErrorRecord) (*ErrorRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var evicted *ErrorRecord
	if len(o.pending) >= o.limit {
		victim := -1
		for i, p := range o.pending {
			if recordRank(p) >= recordRank(rec) {
				continue
			}
			if victim < 0 || recordRank(p) < recordRank(o.pending[victim]) {
				victim = i
			}
		}
		if victim < 0 {
			return nil, false
		}
		v := o.pending[victim]
		evicted = &v
		o.pending = slices.Delete(o.pending, victim, victim+1)
	}
	o.pending = append(o.pending, rec)
	o.signal()
	return evicted, true
}

// pop removes the oldest record.
func (o *outbox) pop() (ErrorRecord, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.pending) == 0 {
		return ErrorRecord{}, false
	}
	rec := o.pending[0]
	o.pending = slices.Delete(o.pending, 0, 1)
	if len(o.pending) > 0 {
		o.signal()
	}
	return rec, true
}

func (o *outbox) size() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

func (o *outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}

// kindRateLimiter caps forwarded records per error kind.
type kindRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

func newKindRateLimiter(perMinute int) *kindRateLimiter {
	return &kindRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    max(1, perMinute/10),
	}
}

func (k *kindRateLimiter) Allow(kind string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	limiter, ok := k.limiters[kind]
	if !ok {
		limiter = rate.NewLimiter(k.rate, k.burst)
		k.limiters[kind] = limiter
	}
	return limiter.Allow()
}

// WebhookSender forwards error records to an HTTP endpoint. Records are
// redacted, queued by severity and delivered by a small worker pool with the
// incident ID as the idempotency key, so receivers can discard retried copies.
type WebhookSender struct {
	httpClient    *http.Client
	logger        *zap.Logger
	url           string
	authToken     string
	minSeverity   types.Severity
	limiter       *kindRateLimiter
	outbox        *outbox
	workers       int
	backoff       wait.Backoff
	retryAfterCap time.Duration
	wg            sync.WaitGroup
}

// WebhookSenderConfig holds the configuration for creating a WebhookSender.
type WebhookSenderConfig struct {
	URL                string
	TimeoutSeconds     int
	InsecureSkipVerify bool
	MinSeverity        string
	AuthToken          string
	// PerMinute caps forwarded records per error kind. Zero uses the default.
	PerMinute int
	// OutboxSize bounds queued records. Zero uses the default.
	OutboxSize int
}

// NewWebhookSender creates a WebhookSender. Returns an error if the URL or severity is invalid.
func NewWebhookSender(logger *zap.Logger, cfg WebhookSenderConfig) (*WebhookSender, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("webhook URL is required")
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("webhook URL must include a host")
	}

	minSev := types.Severity(strings.ToUpper(cfg.MinSeverity))
	if minSev == "" {
		minSev = types.SeverityWarning
	}
	if !minSev.Valid() {
		return nil, fmt.Errorf("invalid webhook minimum severity %q", cfg.MinSeverity)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = defaultWebhookPerMinute
	}
	size := cfg.OutboxSize
	if size <= 0 {
		size = defaultWebhookOutboxSize
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user-configured
		logger.Warn("Webhook TLS certificate verification is disabled",
			zap.String("url", RedactURL(cfg.URL)))
	}

	return &WebhookSender{
		httpClient:  &http.Client{Timeout: timeout, Transport: transport},
		logger:      logger.Named("webhook-sender"),
		url:         cfg.URL,
		authToken:   cfg.AuthToken,
		minSeverity: minSev,
		limiter:     newKindRateLimiter(perMinute),
		outbox:      newOutbox(size),
		workers:     defaultWebhookWorkers,
		backoff: wait.Backoff{
			Duration: time.Second,
			Factor:   2,
			Jitter:   0.2,
			Steps:    maxDeliveryAttempts,
			Cap:      defaultRetryAfterCap,
		},
		retryAfterCap: defaultRetryAfterCap,
	}, nil
}

// Name implements Sender.
func (ws *WebhookSender) Name() string { return "webhook" }

// ShouldSend implements Sender.
func (ws *WebhookSender) ShouldSend(severity types.Severity) bool {
	return severityRank(severity) >= severityRank(ws.minSeverity)
}

// Start implements Sender.
func (ws *WebhookSender) Start(ctx context.Context) {
	for range ws.workers {
		ws.wg.Add(1)
		go ws.run(ctx)
	}
	ws.logger.Info("Webhook sender started",
		zap.String("url", RedactURL(ws.url)),
		zap.Int("workers", ws.workers),
		zap.String("min_severity", string(ws.minSeverity)),
	)
}

// Close waits for the workers to flush the outbox. Call after the context
// passed to Start is cancelled.
func (ws *WebhookSender) Close() {
	ws.wg.Wait()
}

// Send implements Sender. The record is queued for asynchronous delivery.
func (ws *WebhookSender) Send(ctx context.Context, rec ErrorRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ws.limiter.Allow(rec.Kind) {
		webhookSendTotal.WithLabelValues("rate_limited").Inc()
		return fmt.Errorf("webhook rate limit exceeded for kind %s", rec.Kind)
	}

	evicted, ok := ws.outbox.push(rec)
	if !ok {
		webhookSendTotal.WithLabelValues("dropped").Inc()
		return fmt.Errorf("webhook outbox full, dropped %s record %s", rec.Severity, rec.IncidentID)
	}
	if evicted != nil {
		webhookSendTotal.WithLabelValues("evicted").Inc()
		ws.logger.Warn("Webhook outbox full, evicted lower-severity record",
			zap.String("incident_id", rec.IncidentID),
			zap.String("evicted_incident_id", evicted.IncidentID),
			zap.String("evicted_severity", evicted.Severity),
		)
	}
	return nil
}

func (ws *WebhookSender) run(ctx context.Context) {
	defer ws.wg.Done()
	for {
		if ctx.Err() != nil {
			ws.flush()
			return
		}
		if rec, ok := ws.outbox.pop(); ok {
			ws.deliver(ctx, rec, maxDeliveryAttempts)
			continue
		}
		select {
		case <-ctx.Done():
		case <-ws.outbox.ready:
		}
	}
}

// flush makes one attempt for every record left in the outbox.
func (ws *WebhookSender) flush() {
	for {
		rec, ok := ws.outbox.pop()
		if !ok {
			return
		}
		ws.deliver(context.Background(), rec, 1)
	}
}

// deliver posts rec until it succeeds, fails permanently or runs out of
// attempts. A record waiting for its next attempt when ctx ends goes back to
// the outbox for the shutdown flush.
func (ws *WebhookSender) deliver(ctx context.Context, rec ErrorRecord, attempts int) {
	log := ws.logger.With(
		zap.String("incident_id", rec.IncidentID),
		zap.String("kind", rec.Kind),
	)
	body, err := json.Marshal(WebhookEnvelope{
		Type:          "kube9.error",
		SchemaVersion: "1",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Data:          redactRecord(rec),
	})
	if err != nil {
		webhookSendTotal.WithLabelValues("error").Inc()
		log.Error("Failed to encode webhook payload", zap.Error(err))
		return
	}

	backoff := ws.backoff
	for attempt := 1; ; attempt++ {
		err := ws.post(ctx, rec, body, attempt)
		if err == nil {
			webhookSendTotal.WithLabelValues("success").Inc()
			return
		}

		var de *deliveryError
		if !errors.As(err, &de) || !de.retryable() || attempt >= attempts {
			webhookSendTotal.WithLabelValues("error").Inc()
			log.Warn("Webhook delivery failed", zap.Int("attempts", attempt), zap.Error(err))
			return
		}

		delay := backoff.Step()
		if de.retryAfter > 0 {
			delay = min(de.retryAfter, ws.retryAfterCap)
		}
		webhookSendTotal.WithLabelValues("retry").Inc()
		log.Debug("Webhook delivery will be retried",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			ws.outbox.push(rec)
			return
		case <-timer.C:
		}
	}
}

// post performs one delivery attempt. In-flight requests outlive ctx and are
// bounded by the client timeout.
func (ws *WebhookSender) post(ctx context.Context, rec ErrorRecord, body []byte, attempt int) error {
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, ws.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	req.Header.Set(headerIdempotencyKey, rec.IncidentID)
	req.Header.Set(headerErrorKind, rec.Kind)
	req.Header.Set(headerDeliveryAttempt, strconv.Itoa(attempt))
	if ws.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+ws.authToken)
	}

	start := time.Now()
	resp, err := ws.httpClient.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		webhookSendDuration.WithLabelValues("error").Observe(elapsed)
		return &deliveryError{err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode/100 == 2 {
		webhookSendDuration.WithLabelValues("success").Observe(elapsed)
		return nil
	}
	webhookSendDuration.WithLabelValues("error").Observe(elapsed)
	return &deliveryError{
		status:     resp.StatusCode,
		retryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		err:        fmt.Errorf("webhook returned HTTP %d", resp.StatusCode),
	}
}

// deliveryError is a failed attempt. A zero status means the request never
// got a response.
type deliveryError struct {
	status     int
	retryAfter time.Duration
	err        error
}

func (e *deliveryError) Error() string { return e.err.Error() }
func (e *deliveryError) Unwrap() error { return e.err }

func (e *deliveryError) retryable() bool {
	switch {
	case e.status == 0:
		return true
	case e.status == http.StatusRequestTimeout, e.status == http.StatusTooManyRequests:
		return true
	case e.status == http.StatusNotImplemented:
		return false
	default:
		return e.status >= 500
	}
}

// parseRetryAfter reads delta-seconds or an HTTP date. Missing, malformed and
// past values yield zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

var (
	urlPattern         = regexp.MustCompile(`https?://[^\s"'<>]+`)
	bearerPattern      = regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9._~+/=-]+`)
	secretParamPattern = regexp.MustCompile(`(?i)\b(token|password|passwd|secret|api[_-]?key)(\s*[=:]\s*)[^\s&"',;]+`)
)

// redactText masks URL credentials, bearer tokens and secret-looking
// key=value pairs.
func redactText(s string) string {
	if s == "" {
		return s
	}
	s = urlPattern.ReplaceAllStringFunc(s, RedactURL)
	s = bearerPattern.ReplaceAllString(s, "${1} "+redacted)
	return secretParamPattern.ReplaceAllString(s, "${1}${2}"+redacted)
}

// redactRecord returns a copy of rec with every free-text field redacted.
// rec itself is not modified.
func redactRecord(rec ErrorRecord) ErrorRecord {
	out := rec
	out.Message = redactText(rec.Message)
	out.TechnicalDetails = redactText(rec.TechnicalDetails)
	if rec.DocumentationURL != "" {
		out.DocumentationURL = RedactURL(rec.DocumentationURL)
	}
	if rec.Suggestions != nil {
		out.Suggestions = make([]string, len(rec.Suggestions))
		for i, s := range rec.Suggestions {
			out.Suggestions[i] = redactText(s)
		}
	}
	if rec.Context != nil {
		out.Context = make(map[string]string, len(rec.Context))
		for k, v := range rec.Context {
			out.Context[k] = redactText(v)
		}
	}
	return out
}

// RedactURL hides userinfo and query values in rawURL.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	if u.User != nil {
		u.User = url.User(redacted)
	}
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			q[k] = []string{redacted}
		}
		u.RawQuery = q.Encode()
	}
	return u.String()
}
