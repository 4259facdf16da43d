package cli

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
)

// Stats prints the client's counters as gathered from the metrics registry.
func (a *App) Stats(_ context.Context, _ []string) error {
	s, err := a.metrics.Snapshot()
	if err != nil {
		a.println("Stats unavailable:", err.Error())
		return err
	}

	codes := make([]string, 0, len(s.Requests))
	var total float64
	for code, n := range s.Requests {
		codes = append(codes, code)
		total += n
	}
	sort.Strings(codes)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Requests\t%.0f\n", total)
	for _, code := range codes {
		fmt.Fprintf(tw, "  %s\t%.0f\n", code, s.Requests[code])
	}
	fmt.Fprintf(tw, "Forced logouts\t%.0f\n", s.ForcedLogouts)
	fmt.Fprintf(tw, "Upload failures\t%.0f\n", s.UploadFailures)
	fmt.Fprintf(tw, "Open previews\t%.0f (%.0f created, %.0f released)\n", s.PreviewsOpen, s.PreviewsAcquired, s.PreviewsReleased)
	return tw.Flush()
}
