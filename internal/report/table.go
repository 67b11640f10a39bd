package report

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"
)

// WriteTable renders the per-stage summary table followed by the run
// summary line.
func (r *RunReport) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tSTATUS\tDURATION\tEXIT")
	for _, sr := range r.Stages {
		exit := fmt.Sprintf("%d", sr.ExitCode)
		if sr.Signal != "" {
			exit = sr.Signal
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			sr.Display(), sr.Status, sr.Duration().Truncate(time.Millisecond), exit)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\n"+r.Summary())
	return err
}
