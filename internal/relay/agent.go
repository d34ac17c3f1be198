// Package relay drains the event outbox into a message broker.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"hirelane/internal/observability"
	"hirelane/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Queue is the part of the outbox the relay consumes.
type Queue interface {
	ClaimEvents(ctx context.Context, limit int, visibility time.Duration) ([]store.Event, error)
	AckEvent(ctx context.Context, id int64) error
	NackEvent(ctx context.Context, id int64, retryAt time.Time) error
}

// Publisher delivers one event to subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// AgentConfig holds configuration for the relay agent.
type AgentConfig struct {
	ID           string
	Concurrency  int
	PollInterval time.Duration
	MaxBackoff   time.Duration // Cap for both the idle poll backoff and the retry delay (default: 30s)
	BatchSize    int
	// MaxAttempts is how many failed publishes an event survives before it is dropped.
	MaxAttempts       int
	VisibilityTimeout time.Duration
	// RetryDelay is the delay after the first failed publish. It doubles per attempt.
	RetryDelay time.Duration
}

// Agent runs the claim-publish loop over the outbox.
type Agent struct {
	queue     Queue
	publisher Publisher
	config    AgentConfig
	metrics   *observability.RelayMetrics
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	done      chan struct{}
}

// tracedPayload is the part of every event payload the relay reads.
type tracedPayload struct {
	Trace map[string]string `json:"trace"`
}

// New creates a relay agent. metrics may be nil.
func New(q Queue, p Publisher, config AgentConfig, metrics *observability.RelayMetrics, log *slog.Logger) *Agent {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 50
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.VisibilityTimeout <= 0 {
		config.VisibilityTimeout = time.Minute
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	if config.ID != "" {
		log = log.With("relay_id", config.ID)
	}

	return &Agent{
		queue:     q,
		publisher: p,
		config:    config,
		metrics:   metrics,
		logger:    log,
		tracer:    observability.Tracer("relay"),
		now:       time.Now,
		done:      make(chan struct{}),
	}
}

// Run starts the poll loop. It blocks until the context is cancelled, then
// waits for in-flight publishes to finish.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("relay starting", "concurrency", a.config.Concurrency, "batch_size", a.config.BatchSize)

	sem := make(chan struct{}, a.config.Concurrency)
	var wg sync.WaitGroup

	pollNow := make(chan struct{}, 1)
	currentBackoff := a.config.PollInterval

	triggerPoll := func() {
		select {
		case pollNow <- struct{}{}:
		default:
		}
	}

	triggerPoll()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("relay stopping, waiting for in-flight events")
			wg.Wait()
			close(a.done)
			return ctx.Err()

		case <-time.After(currentBackoff):
			triggerPoll()

		case <-pollNow:
			available := a.config.Concurrency - len(sem)
			if available <= 0 {
				continue
			}
			limit := a.config.BatchSize
			if available < limit {
				limit = available
			}

			events, err := a.queue.ClaimEvents(ctx, limit, a.config.VisibilityTimeout)
			if err != nil {
				if ctx.Err() == nil {
					a.logger.Error("failed to claim events", "error", err)
				}
				continue
			}

			if len(events) == 0 {
				currentBackoff *= 2
				if currentBackoff > a.config.MaxBackoff {
					currentBackoff = a.config.MaxBackoff
				}
				continue
			}

			currentBackoff = a.config.PollInterval
			a.logger.Debug("claimed events", "count", len(events))

			for _, ev := range events {
				sem <- struct{}{}

				wg.Add(1)
				go func(ev store.Event) {
					defer wg.Done()
					defer func() {
						<-sem
						triggerPoll()
					}()
					a.deliver(ctx, ev)
				}(ev)
			}

			if len(events) < available {
				triggerPoll()
			}
		}
	}
}

// Done returns a channel that is closed when the agent has fully stopped.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// deliver publishes one claimed event and settles it in the outbox. Settling
// uses a fresh context so a shutdown does not leave the event claimed.
func (a *Agent) deliver(ctx context.Context, ev store.Event) {
	var wrapper tracedPayload
	if err := json.Unmarshal(ev.Payload, &wrapper); err == nil {
		ctx = observability.ExtractTrace(ctx, wrapper.Trace)
	}

	ctx, span := a.tracer.Start(ctx, "relay.publish",
		trace.WithAttributes(
			attribute.Int64("event.id", ev.ID),
			attribute.String("event.topic", ev.Topic),
			attribute.Int("event.attempts", ev.Attempts),
		),
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	defer span.End()

	log := a.logger.With("event_id", ev.ID, "topic", ev.Topic)
	settle := context.WithoutCancel(ctx)

	err := a.publisher.Publish(ctx, ev.Topic, ev.Payload)
	if err == nil {
		a.metrics.Published(ctx, ev.Topic)
		if err := a.queue.AckEvent(settle, ev.ID); err != nil {
			log.Error("failed to ack event", "error", err)
		}
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "publish failed")
	a.metrics.Failed(ctx, ev.Topic)

	attempts := ev.Attempts + 1
	if attempts >= a.config.MaxAttempts {
		log.Error("dropping event after repeated publish failures", "attempts", attempts, "error", err)
		if err := a.queue.AckEvent(settle, ev.ID); err != nil {
			log.Error("failed to drop event", "error", err)
		}
		return
	}

	retryAt := a.now().Add(a.retryDelay(attempts))
	log.Warn("publish failed, will retry", "attempts", attempts, "retry_at", retryAt, "error", err)
	if err := a.queue.NackEvent(settle, ev.ID, retryAt); err != nil {
		log.Error("failed to nack event", "error", err)
	}
}

// retryDelay is RetryDelay doubled per earlier failure, capped at MaxBackoff.
func (a *Agent) retryDelay(attempts int) time.Duration {
	delay := a.config.RetryDelay
	for i := 1; i < attempts && delay < a.config.MaxBackoff; i++ {
		delay *= 2
	}
	if delay > a.config.MaxBackoff {
		delay = a.config.MaxBackoff
	}
	return delay
}
