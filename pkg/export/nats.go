package export

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"github.com/jamesprial/go-reddit-harvester/pkg/types"
)

// DefaultSubject is the subject rows are published on when none is configured.
const DefaultSubject = "reddit.posts"

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher sends harvested rows to a NATS subject as JSON, one message per row.
type Publisher struct {
	nc      *nats.Conn
	subject string
}

// NewPublisher returns a Publisher on subject, or DefaultSubject when empty.
func NewPublisher(nc *nats.Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{nc: nc, subject: subject}
}

// Subject returns the subject rows are published on.
func (p *Publisher) Subject() string {
	return p.subject
}

// Publish sends one row. Trace context from ctx is carried in the message headers.
func (p *Publisher) Publish(ctx context.Context, row types.Post) error {
	data, err := json.Marshal(row)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return p.nc.PublishMsg(msg)
}

// PublishAll sends rows in order and flushes. It stops at the first failure.
func (p *Publisher) PublishAll(ctx context.Context, rows []types.Post) error {
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Publish(ctx, rows[i]); err != nil {
			return fmt.Errorf("publish post %s: %w", rows[i].ID, err)
		}
	}
	return p.nc.FlushWithContext(ctx)
}

// Subscribe delivers rows published on subject to handler. Malformed messages are
// dropped.
func Subscribe(nc *nats.Conn, subject string, handler func(context.Context, types.Post)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var row types.Post
		if err := json.Unmarshal(msg.Data, &row); err != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		handler(ctx, row)
	})
}
