package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bmbranch/branchdesk/internal/logger"
	"github.com/bmbranch/branchdesk/internal/notify"
	"github.com/bmbranch/branchdesk/internal/tui"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "branchdesk",
		Short:         "Branch dashboard for daily runs and SOS alerts",
		Long:          "branchdesk shows daily run summaries, runs per date, clients and live SOS alerts for a branch.\nRun without a subcommand to open the dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDashboard(cmd.Context())
		},
	}
	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newSummariesCmd(),
		newSOSCmd(),
		newVersionCmd(),
	)
	return root
}

func runDashboard(ctx context.Context) error {
	d, err := newDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.serveMetrics(ctx); err != nil {
		return err
	}

	// Desktop notifications only; the terminal belongs to the dashboard.
	poller := d.poller(notify.Auto(nil))

	app := tui.NewApp(d.client, d.store, tui.Options{
		Poller:        poller,
		PollInterval:  d.cfg.SOS.Interval,
		Version:       version,
		Log:           logger.Component("tui"),
		OnAuthFailure: d.metrics.AuthFailure,
	})

	d.log.Info().Str("version", version).Msg("dashboard starting")
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "branchdesk "+version)
		},
	}
}
