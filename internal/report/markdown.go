package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders the report as a GitHub-flavored Markdown document,
// suitable for CI artifacts or review comments.
func (r *RunReport) Markdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Build run %s\n\n", ShortID(r.RunID))
	fmt.Fprintf(&b, "- Status: **%s**", r.Status)
	if r.FailedStage != "" {
		fmt.Fprintf(&b, " (stage: %s)", r.FailedStage)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- Started: %s, duration: %s\n",
		r.Start.Format(time.RFC3339), r.Duration().Truncate(time.Millisecond))
	fmt.Fprintf(&b, "- Generator: %s, build type: %s, jobs: %d\n", r.Generator, r.BuildType, r.Jobs)
	fmt.Fprintf(&b, "- Projects: %s\n", strings.Join(r.Projects, ", "))
	if len(r.Targets) > 0 {
		fmt.Fprintf(&b, "- Targets: %s\n", strings.Join(r.Targets, ", "))
	}
	if r.CMakeVersion != "" {
		fmt.Fprintf(&b, "- CMake: %s\n", r.CMakeVersion)
	}
	fmt.Fprintf(&b, "- llvmbuilder: %s\n", r.LLVMBuilderVersion)
	b.WriteString("\n")

	b.WriteString("| Stage | Status | Duration | Exit |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, sr := range r.Stages {
		exit := fmt.Sprintf("%d", sr.ExitCode)
		if sr.Signal != "" {
			exit = sr.Signal
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			sr.Display(), sr.Status, sr.Duration().Truncate(time.Millisecond), exit)
	}

	// The diagnostic tail of each unsuccessful invocation, fenced so log
	// content cannot break the document structure.
	for _, sr := range r.Stages {
		if sr.Status.OK() || len(sr.Tail) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## Output tail: %s\n\n", sr.Display())
		b.WriteString("```text\n")
		for _, line := range sr.Tail {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("```\n")
	}

	return b.String()
}

// RenderHTML converts the Markdown rendering into a standalone HTML document.
func (r *RunReport) RenderHTML() ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))

	var body bytes.Buffer
	if err := md.Convert([]byte(r.Markdown()), &body); err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}

	var doc bytes.Buffer
	doc.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&doc, "<title>Build run %s</title>\n", ShortID(r.RunID))
	doc.WriteString("</head>\n<body>\n")
	doc.Write(body.Bytes())
	doc.WriteString("</body>\n</html>\n")
	return doc.Bytes(), nil
}
