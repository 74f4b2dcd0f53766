package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/stackrig-io/stackrig/internal/resource"
)

var (
	tagCreated = color.New(color.FgGreen).SprintFunc()
	tagReused  = color.New(color.FgCyan).SprintFunc()
	tagWarned  = color.New(color.FgYellow).SprintFunc()
	tagFailed  = color.New(color.FgRed).SprintFunc()
)

func statusTag(status resource.Status) string {
	switch status {
	case resource.StatusCreated:
		return tagCreated("[CREATED]")
	case resource.StatusReused:
		return tagReused("[REUSED]")
	case resource.StatusWarned:
		return tagWarned("[WARNED]")
	default:
		return tagFailed("[FAILED]")
	}
}

// renderRun prints the outcome of every executed step. Text mode is a
// table of step, kind, key, status, and the provider ID or failure
// detail; json mode emits the whole run for scripting.
func renderRun(w io.Writer, run *resource.Run, format string) error {
	if format == "json" {
		raw, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding run report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tKIND\tKEY\tSTATUS\tID")
	for _, o := range run.Outcomes {
		ref := o.Handle.ProviderID
		if o.Detail != "" {
			ref = o.Detail
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", o.Step, o.Kind, o.Key, statusTag(o.Status), ref)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d created, %d reused, %d warned, %d failed\n",
		run.Count(resource.StatusCreated),
		run.Count(resource.StatusReused),
		run.Count(resource.StatusWarned),
		run.Count(resource.StatusFailed))
	return err
}
