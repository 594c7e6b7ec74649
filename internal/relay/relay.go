// Package relay mirrors presentation events to NATS JetStream so external
// viewers (dashboards, editor panels on another machine) can follow a chat
// session live. The relay is fire-and-forget by contract: a publish failure
// is logged and never surfaces into the mutation/diff path.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Options describe the JetStream target.
type Options struct {
	URL      string
	User     string
	Password string

	// SubjectPrefix is the leading token of every subject
	// (<prefix>.changes.<sessionID>, <prefix>.chat.<sessionID>).
	SubjectPrefix string
	Stream        string
	MaxBytes      int64
	DupeWindow    time.Duration
}

func (o *Options) setDefaults() {
	if o.SubjectPrefix == "" {
		o.SubjectPrefix = "agentpane"
	}
	if o.Stream == "" {
		o.Stream = "agentpane_events"
	}
	if o.MaxBytes == 0 {
		o.MaxBytes = 1 * 1024 * 1024 * 1024 // 1GB
	}
	if o.DupeWindow == 0 {
		o.DupeWindow = 2 * time.Minute
	}
}

// Relay is a connected JetStream mirror.
type Relay struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	opts   Options
	logger *slog.Logger

	seq uint64
}

// Connect dials NATS and ensures the event stream exists.
func Connect(ctx context.Context, opts Options, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts
	cfg.setDefaults()
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	natsOpts := []nats.Option{nats.Name("agentpane-relay")}
	if cfg.User != "" {
		natsOpts = append(natsOpts, nats.UserInfo(cfg.User, cfg.Password))
	}
	conn, err := nats.Connect(url, natsOpts...)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, err
	}
	r := &Relay{conn: conn, js: js, opts: cfg, logger: logger}
	if err := r.ensureStream(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return r, nil
}

func (r *Relay) ensureStream(ctx context.Context) error {
	cfg := &nats.StreamConfig{
		Name:       r.opts.Stream,
		Subjects:   []string{r.opts.SubjectPrefix + ".>"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		MaxMsgs:    -1,
		MaxBytes:   r.opts.MaxBytes,
		Discard:    nats.DiscardOld,
		Duplicates: r.opts.DupeWindow,
	}
	if _, err := r.js.StreamInfo(cfg.Name, nats.Context(ctx)); err != nil {
		if errors.Is(err, nats.ErrStreamNotFound) {
			_, err = r.js.AddStream(cfg, nats.Context(ctx))
			return err
		}
		return err
	}
	_, err := r.js.UpdateStream(cfg, nats.Context(ctx))
	return err
}

// PublishChange mirrors one file-change event for the session. Best-effort:
// errors are logged, not returned.
func (r *Relay) PublishChange(sessionID string, change any) {
	r.publish(fmt.Sprintf("%s.changes.%s", r.opts.SubjectPrefix, sessionID), sessionID, change)
}

// PublishChat mirrors one chat event (assistant turns, status) for the session.
func (r *Relay) PublishChat(sessionID string, event any) {
	r.publish(fmt.Sprintf("%s.chat.%s", r.opts.SubjectPrefix, sessionID), sessionID, event)
}

func (r *Relay) publish(subject, sessionID string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("relay encode failed", "subject", subject, "error", err)
		return
	}
	r.seq++
	msgID := fmt.Sprintf("%s:%d", sessionID, r.seq)
	if _, err := r.js.Publish(subject, data, nats.MsgId(msgID)); err != nil {
		r.logger.Warn("relay publish failed", "subject", subject, "error", err)
	}
}

// Close drains and closes the connection.
func (r *Relay) Close() {
	if r.conn != nil {
		_ = r.conn.Drain()
		r.conn.Close()
	}
}
