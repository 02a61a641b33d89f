package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/medtrack/backend/internal/audit"
	"github.com/medtrack/backend/internal/events"
	"github.com/medtrack/backend/internal/metrics"
	"github.com/medtrack/backend/internal/notify"
	"go.uber.org/zap"
)

// Pseudo-channel used in delivery errors when the directory lookup itself
// failed.
const SourceDirectory = "directory"

// DeliveryError records one isolated failure inside a dispatch call.
type DeliveryError struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// Outcome is the result of one dispatch call.
type Outcome struct {
	Tier           events.Severity    `json:"tier"`
	Recipients     []notify.Recipient `json:"recipients"`
	Channels       []events.Channel   `json:"channels"`
	DeliveryErrors []DeliveryError    `json:"delivery_errors,omitempty"`
}

// Dispatcher funnels every domain event through classification, recipient
// resolution, channel selection, delivery and the audit trail. All
// collaborators are injected; there is no ambient state.
type Dispatcher struct {
	classifier *events.Classifier
	resolver   *notify.Resolver
	notifier   notify.Notifier
	sink       audit.Sink
	metrics    *metrics.Metrics
	log        *zap.Logger

	channelTimeout time.Duration
}

// New builds a dispatcher. metrics may be nil. channelTimeout bounds each
// channel delivery; zero falls back to 5 seconds.
func New(
	classifier *events.Classifier,
	resolver *notify.Resolver,
	notifier notify.Notifier,
	sink audit.Sink,
	m *metrics.Metrics,
	channelTimeout time.Duration,
	log *zap.Logger,
) *Dispatcher {
	if channelTimeout <= 0 {
		channelTimeout = 5 * time.Second
	}
	return &Dispatcher{
		classifier:     classifier,
		resolver:       resolver,
		notifier:       notifier,
		sink:           sink,
		metrics:        m,
		log:            log,
		channelTimeout: channelTimeout,
	}
}

// Dispatch runs one event through the pipeline. It never panics and only
// returns an error when the audit append itself failed; every other failure
// is absorbed into the outcome. A failed channel never blocks its siblings,
// and exactly one audit record is written per call, even on internal
// failure or caller cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, ev events.Event) (Outcome, error) {
	start := time.Now()

	outcome, internalErr := d.route(ctx, ev)
	if internalErr == nil {
		outcome.DeliveryErrors = append(outcome.DeliveryErrors, d.deliver(ctx, ev, outcome)...)
	}

	if d.metrics != nil {
		d.metrics.ObserveDispatch(ev.Category(), outcome.Tier.String(), time.Since(start).Seconds())
		for _, derr := range outcome.DeliveryErrors {
			d.metrics.IncrementDeliveryFailure(derr.Channel)
		}
	}

	// The audit write survives caller cancellation: once routing has run,
	// audit completeness wins over promptness.
	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.channelTimeout)
	defer cancel()
	if err := d.sink.Append(auditCtx, buildRecord(ev, outcome, internalErr)); err != nil {
		if d.metrics != nil {
			d.metrics.IncrementAuditAppendError()
		}
		d.log.Error("audit append failed",
			zap.String("event_type", ev.Type()),
			zap.Error(err),
		)
		return outcome, fmt.Errorf("audit append: %w", err)
	}

	if internalErr != nil {
		d.log.Error("dispatch failed",
			zap.String("event_type", ev.Type()),
			zap.Error(internalErr),
		)
	}
	return outcome, nil
}

// route runs classify, resolve and select in that fixed order. Any panic in
// the policy code is converted into an internal error; a directory failure
// is downgraded to a non-fatal delivery error with an empty recipient set.
func (d *Dispatcher) route(ctx context.Context, ev events.Event) (outcome Outcome, internalErr error) {
	defer func() {
		if r := recover(); r != nil {
			internalErr = fmt.Errorf("dispatch panic: %v", r)
		}
	}()

	outcome.Tier = d.classifier.Classify(ev)

	recipients, err := d.resolver.Resolve(ctx, ev, outcome.Tier)
	if err != nil {
		d.log.Warn("recipient resolution unavailable",
			zap.String("event_type", ev.Type()),
			zap.Error(err),
		)
		outcome.DeliveryErrors = append(outcome.DeliveryErrors, DeliveryError{
			Channel: SourceDirectory,
			Message: err.Error(),
		})
	}
	outcome.Recipients = recipients

	outcome.Channels = events.SelectChannels(ev, outcome.Tier)
	return outcome, nil
}

// deliver fans out to every selected channel concurrently. Each channel gets
// its own bounded timeout; a slow or failing channel is marked failed
// without holding up the join.
func (d *Dispatcher) deliver(ctx context.Context, ev events.Event, outcome Outcome) []DeliveryError {
	if len(outcome.Channels) == 0 {
		return nil
	}

	content := notify.Render(ev, outcome.Tier)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []DeliveryError
	)
	for _, channel := range outcome.Channels {
		wg.Add(1)
		go func(channel events.Channel) {
			defer wg.Done()
			chCtx, cancel := context.WithTimeout(ctx, d.channelTimeout)
			defer cancel()
			if err := d.notifier.Deliver(chCtx, channel, outcome.Recipients, content); err != nil {
				mu.Lock()
				errs = append(errs, DeliveryError{Channel: string(channel), Message: err.Error()})
				mu.Unlock()
			}
		}(channel)
	}
	wg.Wait()
	return errs
}

func buildRecord(ev events.Event, outcome Outcome, internalErr error) audit.Record {
	entityType, entityID := ev.EntityRef()

	rec := audit.Record{
		EventType:     ev.Type(),
		EntityType:    entityType,
		EntityID:      entityID,
		Actor:         ev.ActorID(),
		ChangedFields: ev.ChangedFields(),
		CreatedAt:     ev.OccurredAt(),
		Detail: map[string]any{
			"tier":     outcome.Tier.String(),
			"channels": channelNames(outcome.Channels),
			"metadata": ev.MetadataMap(),
		},
	}

	payload := ev.PayloadMap()
	if old, ok := payload["old_values"].(map[string]any); ok {
		rec.OldValues = old
		delete(payload, "old_values")
	}
	if newVals, ok := payload["new_values"].(map[string]any); ok {
		rec.NewValues = newVals
		delete(payload, "new_values")
	}
	if rec.NewValues == nil {
		rec.NewValues = payload
	}

	switch {
	case internalErr != nil:
		rec.Outcome = audit.OutcomeDispatchFailed
		rec.Detail["failure_reason"] = internalErr.Error()
	case len(outcome.DeliveryErrors) > 0:
		rec.Outcome = audit.OutcomePartiallyFailed
		rec.Detail["delivery_errors"] = deliveryErrorList(outcome.DeliveryErrors)
	default:
		rec.Outcome = audit.OutcomeDelivered
	}
	return rec
}

func channelNames(channels []events.Channel) []string {
	out := make([]string, len(channels))
	for i, c := range channels {
		out[i] = string(c)
	}
	return out
}

func deliveryErrorList(errs []DeliveryError) []any {
	out := make([]any, len(errs))
	for i, e := range errs {
		out[i] = map[string]any{"channel": e.Channel, "message": e.Message}
	}
	return out
}
