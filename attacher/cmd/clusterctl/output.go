package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/williamhogman/clusterlink/attacher/internal/models"
	"github.com/williamhogman/clusterlink/attacher/internal/reconciler"
)

// Color formatters
var (
	infoColor    = color.New(color.FgBlue).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	errorColor   = color.New(color.FgRed).SprintFunc()
	warningColor = color.New(color.FgYellow).SprintFunc()
)

func logInfo(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", infoColor("[INFO]"), fmt.Sprintf(format, args...))
}

func logSuccess(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", successColor("[SUCCESS]"), fmt.Sprintf(format, args...))
}

func logError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorColor("[ERROR]"), fmt.Sprintf(format, args...))
}

func logWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warningColor("[WARNING]"), fmt.Sprintf(format, args...))
}

func colorStatus(status models.Status) string {
	switch {
	case status.IsRunning():
		return successColor(status.String())
	case status.IsTransitional():
		return warningColor(status.String())
	case status == models.StatusFailed:
		return errorColor(status.String())
	default:
		return status.String()
	}
}

// printClusters writes the clusters as a table, running ones first
func printClusters(w io.Writer, clusters models.ClusterList, attached reconciler.Attachment) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tUUID\tNAME\tSTATUS\tWORKERS\tINSTANCE\tVERSION\tNODES")
	for _, c := range clusters.SortedByStatus() {
		marker := ""
		if attached.ClusterUUID == c.UUID {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			marker, c.UUID, c.Name, colorStatus(c.Status), c.WorkersQuantity,
			c.InstanceType, c.BodoVersion, strings.Join(c.NodesIP, ","))
	}
	return tw.Flush()
}

func describeAttachment(a reconciler.Attachment) string {
	switch {
	case a.IsAttached():
		return fmt.Sprintf("attached to %s", successColor(a.ClusterUUID.String()))
	case a.Loading:
		return warningColor(fmt.Sprintf("%s %s", a.State, a.ClusterUUID))
	default:
		return "detached"
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
