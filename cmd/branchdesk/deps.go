package main

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/bmbranch/branchdesk/internal/alerts"
	"github.com/bmbranch/branchdesk/internal/config"
	"github.com/bmbranch/branchdesk/internal/logger"
	"github.com/bmbranch/branchdesk/internal/metrics"
	"github.com/bmbranch/branchdesk/internal/notify"
	"github.com/bmbranch/branchdesk/internal/session"
	"github.com/bmbranch/branchdesk/pkg/client"
)

var (
	errNotLoggedIn     = errors.New("not logged in, run `branchdesk login`")
	errSessionExpired  = errors.New("session expired, run `branchdesk login` again")
	remoteFlushTimeout = 2 * time.Second
)

// deps holds everything a command needs, built once from the environment.
type deps struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   *session.Store
	client  *client.Client
	reg     *prometheus.Registry
	metrics *metrics.Metrics

	logFile *os.File
	remote  *logger.RemoteSink
}

func newDeps(ctx context.Context) (*deps, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := cfg.StateDir()
	if err != nil {
		return nil, err
	}
	logFile, err := logger.OpenFile(dir)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg, logFile: logFile}

	// Remote logs go through their own gateway with no logger attached, so
	// shipping a record never produces another one.
	var remote io.Writer
	if cfg.RemoteLog {
		gw := client.New(cfg.BaseURL(),
			client.CredentialFunc(func() string { return d.store.Credential() }),
			client.WithTimeout(5*time.Second))
		d.remote = logger.NewRemoteSink(gw, logger.RemoteOptions{Level: cfg.LogLevel, Component: "branchdesk"})
		remote = d.remote
	}
	logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Output: logFile, Remote: remote})
	d.log = logger.Component("cli")

	d.reg, d.metrics = metrics.NewRegistry()
	d.store = session.NewStore(session.NewFileStorage(dir), logger.Component("session"))
	d.client = client.New(cfg.BaseURL(), d.store,
		client.WithTimeout(cfg.RequestTimeout),
		client.WithLogger(logger.Component("client")),
		client.WithObserver(d.metrics),
	)
	d.log.Debug().Str("api", d.client.BaseURL()).Str("state_dir", dir).Msg("ready")
	return d, nil
}

// Close flushes remote logs and closes the log file.
func (d *deps) Close() {
	if d.remote != nil {
		ctx, cancel := context.WithTimeout(context.Background(), remoteFlushTimeout)
		d.remote.Close(ctx)
		cancel()
	}
	d.logFile.Close() //nolint:errcheck // best-effort close
}

// requireSession restores the stored session and fails when there is none.
func (d *deps) requireSession() (session.Session, error) {
	d.store.Initialize()
	sess, ok := d.store.Current()
	if !ok {
		return session.Session{}, errNotLoggedIn
	}
	return sess, nil
}

// settle consumes a pending 401 from the gateway and signs out, the same
// way the dashboard does. err is returned unchanged otherwise.
func (d *deps) settle(err error) error {
	select {
	case ev := <-d.client.AuthFailures():
		d.log.Warn().Str("method", ev.Method).Str("path", ev.Path).Msg("server rejected credentials")
		d.metrics.AuthFailure()
		d.store.Logout()
		return errSessionExpired
	default:
	}
	return err
}

func (d *deps) poller(notifier notify.Notifier) *alerts.Poller {
	return alerts.New(d.client, notifier, alerts.Options{
		AutoOpen: d.cfg.SOS.AutoOpen,
		Cooldown: d.cfg.SOS.Cooldown,
		Observer: d.metrics,
		Log:      logger.Component("alerts"),
	})
}

// serveMetrics exposes the registry when an address is configured.
func (d *deps) serveMetrics(ctx context.Context) error {
	if d.cfg.MetricsAddr == "" {
		return nil
	}
	srv, err := metrics.Listen(d.cfg.MetricsAddr, d.reg, logger.Component("metrics"))
	if err != nil {
		return err
	}
	go srv.Serve(ctx)
	return nil
}
