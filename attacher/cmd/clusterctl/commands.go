package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/williamhogman/clusterlink/attacher/internal/gateway"
	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/notify"
	"github.com/williamhogman/clusterlink/attacher/internal/reconciler"
	"github.com/williamhogman/clusterlink/attacher/internal/transport"
	"github.com/williamhogman/clusterlink/attacher/internal/types"
)

func (o *options) gatewayClient() (*gateway.Client, error) {
	return gateway.NewClient(gateway.ClientConfig{
		BaseURL: o.gatewayURL,
		Token:   o.token,
		Timeout: o.timeout,
	}, zap.NewNop())
}

func newListCommand(opts *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clusters known to the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.gatewayClient()
			if err != nil {
				return err
			}
			clusters, err := client.ListClusters(cmd.Context(), force)
			if err != nil {
				return err
			}
			if opts.raw {
				return printJSON(cmd.OutOrStdout(), clusters.SortedByStatus())
			}
			return printClusters(cmd.OutOrStdout(), clusters, reconciler.Attachment{})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "bypass gateway caches")
	return cmd
}

func newActionCommand(opts *options, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <cluster-uuid>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := models.ParseAction(name)
			if err != nil {
				return err
			}
			uuid, err := types.NewClusterUUID(args[0])
			if err != nil {
				return err
			}
			client, err := opts.gatewayClient()
			if err != nil {
				return err
			}

			logInfo("Requesting %s of cluster %s", action, uuid)
			if err := gateway.Apply(cmd.Context(), client, uuid, action); err != nil {
				return err
			}
			logSuccess("Cluster %s accepted %s", uuid, action)
			return nil
		},
	}
}

func newAttachCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <cluster-uuid|none>",
		Short: "Attach the notebook kernel to a running cluster, or detach with none",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agent := newAgentClient(opts.agentURL, opts.timeout)
			resp, err := agent.Attach(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.raw {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			if !resp.OK {
				return fmt.Errorf("attach to %s failed, see the attacher notifications", args[0])
			}
			logSuccess("Kernel is %s", describeAttachment(resp.Attachment))
			return nil
		},
	}
}

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the attacher's clusters and attachment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			agent := newAgentClient(opts.agentURL, opts.timeout)
			attachment, err := agent.Attachment(cmd.Context())
			if err != nil {
				return err
			}
			clusters, err := agent.Clusters(cmd.Context())
			if err != nil {
				return err
			}
			if opts.raw {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"attachment": attachment,
					"clusters":   clusters.Clusters,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Kernel: %s\n\n", describeAttachment(attachment))
			return printClusters(cmd.OutOrStdout(), clusters.Clusters, attachment)
		},
	}
}

func newWatchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream cluster, attachment and notification events from the attacher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			agent := newAgentClient(opts.agentURL, opts.timeout)
			return agent.Watch(ctx, func(e transport.Event, data json.RawMessage) {
				printEvent(cmd, opts, e, data)
			})
		},
	}
}

func printEvent(cmd *cobra.Command, opts *options, e transport.Event, data json.RawMessage) {
	out := cmd.OutOrStdout()
	if opts.raw {
		fmt.Fprintf(out, "%s %s\n", e.Type, data)
		return
	}

	switch e.Type {
	case transport.EventClusters:
		var clusters models.ClusterList
		if err := json.Unmarshal(data, &clusters); err != nil {
			logWarning("Malformed clusters event: %v", err)
			return
		}
		counts := clusters.CountByStatus()
		logInfo("Clusters: %d total, %d running", len(clusters), counts[models.StatusRunning])
	case transport.EventAttachment:
		var attachment reconciler.Attachment
		if err := json.Unmarshal(data, &attachment); err != nil {
			logWarning("Malformed attachment event: %v", err)
			return
		}
		logInfo("Kernel is %s", describeAttachment(attachment))
	case transport.EventNotification:
		var n notify.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			logWarning("Malformed notification event: %v", err)
			return
		}
		if n.Level == notify.LevelError {
			logError("%s: %s", n.Title, n.Message)
		} else {
			logWarning("%s: %s", n.Title, n.Message)
		}
	default:
		logWarning("Unknown event %q", e.Type)
	}
}

