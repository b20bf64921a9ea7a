package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmbranch/branchdesk/pkg/domain"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{" info ", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestInitOnce(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	var first, second bytes.Buffer
	Init(Options{Level: "warn", Output: &first})
	Init(Options{Level: "debug", Output: &second})

	l := Get()
	l.Info().Msg("dropped")
	gw := Component("gateway")
	gw.Warn().Msg("kept")

	assert.Empty(t, second.String())
	assert.NotContains(t, first.String(), "dropped")
	assert.Contains(t, first.String(), `"component":"gateway"`)
	assert.Contains(t, first.String(), `"message":"kept"`)
}

func TestGetBeforeInit(t *testing.T) {
	t.Cleanup(Reset)
	Reset()
	l := Get()
	l.Error().Msg("goes nowhere")
}

func TestOpenFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	f, err := OpenFile(dir)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	info, err := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

type fakeSender struct {
	mu      sync.Mutex
	entries []domain.LogEntry
	err     error
}

func (f *fakeSender) SendLog(_ context.Context, e domain.LogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return f.err
}

func (f *fakeSender) got() []domain.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.LogEntry(nil), f.entries...)
}

func TestRemoteSinkForwardsEntries(t *testing.T) {
	sender := &fakeSender{}
	sink := NewRemoteSink(sender, RemoteOptions{Component: "dashboard"})

	log := zerolog.New(sink).With().Timestamp().Logger()
	log.Debug().Msg("below threshold")
	log.Info().Str("path", "/sos").Int("status", 200).Msg("api request")
	log.Error().Str("component", "alerts").Msg("poll failed")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sink.Close(ctx)

	entries := sender.got()
	require.Len(t, entries, 2)

	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "dashboard", entries[0].Component)
	assert.Equal(t, "api request", entries[0].Message)
	assert.NotEmpty(t, entries[0].Timestamp)
	var data map[string]any
	require.NoError(t, json.Unmarshal(entries[0].Data, &data))
	assert.Equal(t, "/sos", data["path"])

	assert.Equal(t, "error", entries[1].Level)
	assert.Equal(t, "alerts", entries[1].Component)
	assert.Nil(t, entries[1].Data)
}

func TestRemoteSinkSwallowsFailures(t *testing.T) {
	sender := &fakeSender{err: errors.New("offline")}
	sink := NewRemoteSink(sender, RemoteOptions{})

	n, err := sink.Write([]byte(`{"level":"warn","message":"x"}`))
	require.NoError(t, err)
	assert.Equal(t, len(`{"level":"warn","message":"x"}`), n)

	_, err = sink.Write([]byte("not json"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sink.Close(ctx)
	assert.Len(t, sender.got(), 1)

	_, err = sink.Write([]byte(`{"level":"warn","message":"after close"}`))
	assert.NoError(t, err)
	assert.Len(t, sender.got(), 1)
}

// stallingSender records entries and holds the first send until released.
type stallingSender struct {
	fakeSender
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingSender) SendLog(ctx context.Context, e domain.LogEntry) error {
	err := s.fakeSender.SendLog(ctx, e)
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return err
}

func TestRemoteSinkDropsOnOverflow(t *testing.T) {
	sender := &stallingSender{started: make(chan struct{}), release: make(chan struct{})}
	sink := NewRemoteSink(sender, RemoteOptions{QueueSize: 1})

	write := func(msg string) {
		_, err := sink.Write([]byte(`{"level":"error","message":"` + msg + `"}`))
		require.NoError(t, err)
	}

	write("first")
	select {
	case <-sender.started:
	case <-time.After(time.Second):
		t.Fatal("sink never sent the first entry")
	}
	write("queued")
	write("dropped")
	write("dropped too")
	close(sender.release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sink.Close(ctx)

	entries := sender.got()
	require.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "queued", entries[1].Message)
}

func TestInitWithRemote(t *testing.T) {
	t.Cleanup(Reset)
	Reset()

	sender := &fakeSender{}
	sink := NewRemoteSink(sender, RemoteOptions{})
	var local bytes.Buffer
	Init(Options{Level: "info", Pretty: true, Output: &local, Remote: sink})

	l := Get()
	l.Warn().Msg("both places")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	sink.Close(ctx)

	assert.Contains(t, local.String(), "both places")
	require.Len(t, sender.got(), 1)
	assert.Equal(t, "both places", sender.got()[0].Message)
}
