package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	gatewayURL string
	token      string
	agentURL   string
	timeout    time.Duration
	raw        bool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "clusterctl",
		Short:         "Inspect and control remote clusters and the kernel attacher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.gatewayURL, "gateway", envOr("CLUSTERLINK_GATEWAY_BASE_URL", "http://localhost:8888/bodo"), "cluster gateway base URL")
	flags.StringVar(&opts.token, "token", os.Getenv("CLUSTERLINK_GATEWAY_TOKEN"), "cluster gateway bearer token")
	flags.StringVar(&opts.agentURL, "agent", envOr("CLUSTERLINK_AGENT_URL", "http://localhost:8765"), "attacher API base URL")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "request timeout")
	flags.BoolVar(&opts.raw, "raw", false, "print raw JSON")

	root.AddCommand(
		newListCommand(opts),
		newActionCommand(opts, "resume", "Resume a paused cluster"),
		newActionCommand(opts, "pause", "Pause a running cluster"),
		newActionCommand(opts, "stop", "Stop a cluster"),
		newActionCommand(opts, "restart", "Restart a cluster"),
		newAttachCommand(opts),
		newStatusCommand(opts),
		newWatchCommand(opts),
	)
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}
