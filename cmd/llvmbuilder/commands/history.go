package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/history"
	"git.home.luguber.info/inful/llvmbuilder/internal/report"
)

// HistoryCmd groups the run archive subcommands.
type HistoryCmd struct {
	List HistoryListCmd `cmd:"" default:"1" help:"List archived runs, newest first"`
	Show HistoryShowCmd `cmd:"" help:"Show one archived run in full"`
}

// HistoryListCmd implements 'history list'.
type HistoryListCmd struct {
	Limit int `short:"n" default:"20" help:"Maximum number of runs to list"`
}

func (h *HistoryListCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(context.Background(), h.Limit)
	if err != nil {
		return err
	}
	return renderRunList(os.Stdout, runs)
}

// HistoryShowCmd implements 'history show'.
type HistoryShowCmd struct {
	RunID  string `arg:"" help:"Run ID; a unique prefix is enough"`
	Format string `help:"Output format" enum:"table,json,markdown,html" default:"table"`
}

func (h *HistoryShowCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	rep, err := store.Get(context.Background(), h.RunID)
	if err != nil {
		return err
	}
	return writeReport(os.Stdout, rep, h.Format)
}

func renderRunList(w io.Writer, runs []history.RunSummary) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No archived runs.")
		return err
	}
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tWHEN\tSTATUS\tDURATION\tBUILD\tPROJECTS")
	for _, r := range runs {
		status := r.Status
		if r.FailedStage != "" {
			status += " (" + r.FailedStage + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s/%s -j%d\t%s\n",
			report.ShortID(r.RunID),
			r.Start.Format("2006-01-02 15:04"),
			status,
			r.Duration.Truncate(time.Millisecond),
			r.Generator, r.BuildType, r.Jobs,
			strings.Join(r.Projects, ","))
	}
	return tw.Flush()
}

func writeReport(w io.Writer, rep *report.RunReport, format string) error {
	switch format {
	case "json":
		_, err := w.Write(rep.JSON())
		return err
	case "markdown":
		_, err := io.WriteString(w, rep.Markdown())
		return err
	case "html":
		doc, err := rep.RenderHTML()
		if err != nil {
			return err
		}
		_, err = w.Write(doc)
		return err
	default:
		return rep.WriteTable(w)
	}
}
