package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Phani130825/ask-a-coach/internal/infrastructure/resilience"
)

type Queue struct {
	conn     *nats.Conn
	subject  string
	group    string
	executor *resilience.Executor
	logger   *zap.Logger
	onLag    func(time.Duration)
	now      func() time.Time
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	ResilienceExecutor   *resilience.Executor
	Logger               *zap.Logger
	// OnDeliveryLag receives the publish-to-delivery delay of each event.
	OnDeliveryLag func(time.Duration)
}

// resumeIngested is the wire form of a resume ingestion event.
type resumeIngested struct {
	ResumeID    string    `json:"resume_id"`
	PublishedAt time.Time `json:"published_at"`
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	group := options.QueueGroup
	if group == "" {
		group = "coach-workers"
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("ask-a-coach"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		group:    group,
		executor: options.ResilienceExecutor,
		logger:   logger,
		onLag:    options.OnDeliveryLag,
		now:      time.Now,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishResumeIngested(ctx context.Context, resumeID string) error {
	payload, err := encodeEvent(resumeID, q.now())
	if err != nil {
		return err
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return resilience.Settle("nats publish", err, classifyNATSError)
	}
	return nil
}

func classifyNATSError(err error) resilience.Verdict {
	return resilience.Classify(err, func(err error) bool {
		return errors.Is(err, nats.ErrNoServers) ||
			errors.Is(err, nats.ErrTimeout) ||
			errors.Is(err, nats.ErrConnectionClosed) ||
			errors.Is(err, nats.ErrDisconnected)
	})
}

// SubscribeResumeIngested blocks until ctx is done, then drains in-flight
// deliveries. Handler errors are logged; redelivery is left to the publisher.
func (q *Queue) SubscribeResumeIngested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		event, err := decodeEvent(msg.Data)
		if err != nil {
			q.logger.Warn("resume_event_rejected", zap.Error(err))
			return
		}
		if q.onLag != nil && !event.PublishedAt.IsZero() {
			q.onLag(q.now().Sub(event.PublishedAt))
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event.ResumeID); err != nil {
			q.logger.Error("resume_event_handler_failed", zap.String("resume_id", event.ResumeID), zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeEvent(resumeID string, now time.Time) ([]byte, error) {
	if strings.TrimSpace(resumeID) == "" {
		return nil, fmt.Errorf("resume id is required")
	}
	payload, err := json.Marshal(resumeIngested{ResumeID: resumeID, PublishedAt: now.UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal resume event: %w", err)
	}
	return payload, nil
}

// decodeEvent accepts the JSON envelope and, for hand-published messages, a bare id.
func decodeEvent(data []byte) (resumeIngested, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return resumeIngested{}, fmt.Errorf("empty resume event")
	}
	if !strings.HasPrefix(raw, "{") {
		return resumeIngested{ResumeID: raw}, nil
	}
	var event resumeIngested
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return resumeIngested{}, fmt.Errorf("decode resume event: %w", err)
	}
	if strings.TrimSpace(event.ResumeID) == "" {
		return resumeIngested{}, fmt.Errorf("resume event without resume id")
	}
	return event, nil
}
