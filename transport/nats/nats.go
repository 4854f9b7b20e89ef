// Package nats provides a NATS implementation of the MCP transport.
//
// The server subscribes to <prefix>.requests and publishes each dispatcher
// reply to the request's reply subject when one is set, falling back to
// <prefix>.responses otherwise.
package nats

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/onecsuite/syntaxhelper/transport"
)

// Option is a function that configures a Transport
type Option func(*Transport)

// WithSubjectPrefix sets the subject prefix for request and response
// subjects.
func WithSubjectPrefix(prefix string) Option {
	return func(t *Transport) {
		t.prefix = prefix
	}
}

// WithCredentials sets the credentials file used to authenticate.
func WithCredentials(file string) Option {
	return func(t *Transport) {
		t.opts = append(t.opts, nats.UserCredentials(file))
	}
}

// DefaultSubjectPrefix is the default subject prefix
const DefaultSubjectPrefix = "mcp"

// DefaultConnectTimeout is the timeout for the initial broker connection
const DefaultConnectTimeout = 10 * time.Second

// Transport implements the transport.Transport interface for NATS.
type Transport struct {
	transport.BaseTransport

	url    string
	prefix string
	opts   []nats.Option

	conn *nats.Conn
	sub  *nats.Subscription
}

// NewTransport creates a new NATS server transport for the given broker URL.
func NewTransport(url string, options ...Option) *Transport {
	t := &Transport{
		url:    url,
		prefix: DefaultSubjectPrefix,
	}

	for _, option := range options {
		option(t)
	}

	return t
}

// requestSubject returns the subject carrying inbound payloads.
func (t *Transport) requestSubject() string {
	return t.prefix + ".requests"
}

// responseSubject returns the fallback subject for replies.
func (t *Transport) responseSubject() string {
	return t.prefix + ".responses"
}

// Initialize connects to the broker.
func (t *Transport) Initialize() error {
	opts := append([]nats.Option{
		nats.Timeout(DefaultConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	}, t.opts...)

	conn, err := nats.Connect(t.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	t.conn = conn
	return nil
}

// Start subscribes to the request subject.
func (t *Transport) Start() error {
	if t.conn == nil {
		return fmt.Errorf("transport not initialized")
	}

	sub, err := t.conn.Subscribe(t.requestSubject(), t.handleRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", t.requestSubject(), err)
	}
	t.sub = sub

	t.GetLogger().Info("NATS transport subscribed", "url", t.url, "subject", t.requestSubject())
	return nil
}

// Stop unsubscribes and drains the connection.
func (t *Transport) Stop() error {
	if t.sub != nil {
		if err := t.sub.Unsubscribe(); err != nil {
			t.GetLogger().Debug("unsubscribe failed", "error", err)
		}
		t.sub = nil
	}
	if t.conn != nil {
		if err := t.conn.Drain(); err != nil {
			t.conn.Close()
			return err
		}
		t.conn = nil
	}
	return nil
}

// Send publishes a server-initiated message on the response subject.
func (t *Transport) Send(message []byte) error {
	if t.conn == nil {
		return fmt.Errorf("transport not started")
	}
	return t.conn.Publish(t.responseSubject(), message)
}

// handleRequest dispatches one inbound payload and publishes the reply.
func (t *Transport) handleRequest(msg *nats.Msg) {
	response, err := t.HandleMessage(msg.Data)
	if err != nil {
		t.GetLogger().Error("message handler failed", "subject", msg.Subject, "error", err)
		return
	}
	if response == nil {
		return
	}

	subject := msg.Reply
	if subject == "" {
		subject = t.responseSubject()
	}
	if err := t.conn.Publish(subject, response); err != nil {
		t.GetLogger().Debug("failed to publish response", "subject", subject, "error", err)
	}
}
