package logger

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bmbranch/branchdesk/pkg/domain"
)

// LogSender ships one record to the server's log endpoint.
type LogSender interface {
	SendLog(ctx context.Context, entry domain.LogEntry) error
}

// RemoteOptions tunes a RemoteSink.
type RemoteOptions struct {
	// Level drops events below it: debug, info, warn, error.
	// Defaults to "info" when empty or unrecognised.
	Level string
	// QueueSize bounds buffered events; overflow is dropped. Defaults to 256.
	QueueSize int
	// Timeout bounds each send. Defaults to 5s.
	Timeout time.Duration
	// Component is used when an event carries no component field.
	Component string
}

// RemoteSink is an io.Writer that forwards zerolog JSON events to the
// server as domain.LogEntry records on a background goroutine. Send
// failures are swallowed.
type RemoteSink struct {
	sender   LogSender
	opts     RemoteOptions
	minLevel zerolog.Level

	mu     sync.Mutex
	closed bool
	queue  chan domain.LogEntry
	done   chan struct{}
}

// NewRemoteSink starts a sink draining into sender.
func NewRemoteSink(sender LogSender, opts RemoteOptions) *RemoteSink {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Component == "" {
		opts.Component = "branchdesk"
	}
	s := &RemoteSink{
		sender:   sender,
		opts:     opts,
		minLevel: parseLevel(opts.Level),
		queue:    make(chan domain.LogEntry, opts.QueueSize),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *RemoteSink) run() {
	defer close(s.done)
	for entry := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
		_ = s.sender.SendLog(ctx, entry) //nolint:errcheck // remote logging is best-effort
		cancel()
	}
}

// Write implements io.Writer. It never fails and never blocks.
func (s *RemoteSink) Write(p []byte) (int, error) {
	entry, ok := s.convert(p)
	if !ok {
		return len(p), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return len(p), nil
	}
	select {
	case s.queue <- entry:
	default:
	}
	return len(p), nil
}

func (s *RemoteSink) convert(p []byte) (domain.LogEntry, bool) {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		return domain.LogEntry{}, false
	}

	level, _ := fields[zerolog.LevelFieldName].(string)
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl < s.minLevel || lvl == zerolog.NoLevel {
		return domain.LogEntry{}, false
	}

	entry := domain.LogEntry{
		Level:     remoteLevel(lvl),
		Component: s.opts.Component,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	if ts, ok := fields[zerolog.TimestampFieldName].(string); ok && ts != "" {
		entry.Timestamp = ts
	}
	if c, ok := fields["component"].(string); ok && c != "" {
		entry.Component = c
	}
	entry.Message, _ = fields[zerolog.MessageFieldName].(string)

	for _, k := range []string{
		zerolog.LevelFieldName, zerolog.TimestampFieldName,
		zerolog.MessageFieldName, "component",
	} {
		delete(fields, k)
	}
	if len(fields) > 0 {
		if data, err := json.Marshal(fields); err == nil {
			entry.Data = data
		}
	}
	return entry, true
}

// remoteLevel maps zerolog levels onto the four the server accepts.
func remoteLevel(l zerolog.Level) string {
	switch {
	case l >= zerolog.ErrorLevel:
		return "error"
	case l == zerolog.WarnLevel:
		return "warn"
	case l == zerolog.InfoLevel:
		return "info"
	default:
		return "debug"
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to
// expire, whichever is first.
func (s *RemoteSink) Close(ctx context.Context) {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-ctx.Done():
	}
}
