// Package notify publishes finished-run summaries to NATS so downstream
// automation (dashboards, chat hooks) can react without polling the history
// database. Notification is best-effort: a missing or unreachable broker
// must never fail a build.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/pipeline"
	"git.home.luguber.info/inful/llvmbuilder/internal/report"
)

const flushTimeout = 5 * time.Second

// RunEvent is the JSON payload published for every finished run.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	FailedStage string    `json:"failed_stage,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	DurationMS  int64     `json:"duration_ms"`
	Generator   string    `json:"generator"`
	BuildType   string    `json:"build_type"`
	Projects    []string  `json:"projects"`
	Jobs        int       `json:"jobs"`
	Host        string    `json:"host,omitempty"`
}

// Publisher holds a NATS connection for run notifications.
type Publisher struct {
	conn    *nats.Conn
	subject string
}

// New connects to the configured NATS server. An empty URL means
// notifications are disabled; New returns a nil Publisher and no error, and
// all Publisher methods tolerate the nil receiver.
func New(cfg config.NotifyConfig) (*Publisher, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	conn, err := nats.Connect(cfg.URL, nats.Name("llvmbuilder"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS %s: %w", cfg.URL, err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "llvmbuilder.runs"
	}
	slog.Debug("Connected to NATS for run notifications", "url", cfg.URL, "subject", subject)
	return &Publisher{conn: conn, subject: subject}, nil
}

// PublishRun sends the run summary and flushes so the message is on the wire
// before the process exits.
func (p *Publisher) PublishRun(rep *report.RunReport) error {
	if p == nil || p.conn == nil || rep == nil {
		return nil
	}
	data, err := json.Marshal(eventFromReport(rep))
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish run event: %w", err)
	}
	if err := p.conn.FlushTimeout(flushTimeout); err != nil {
		return fmt.Errorf("flush run event: %w", err)
	}
	slog.Debug("Published run event", "subject", p.subject, "run_id", report.ShortID(rep.RunID), "status", rep.Status)
	return nil
}

// Close releases the NATS connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.conn.Close()
}

// Subscribe wires the publisher to the run lifecycle so every finished run
// is announced. Publish failures surface as bus handler errors, which the
// pipeline logs without aborting the run.
func Subscribe(bus *pipeline.Bus, p *Publisher) {
	if bus == nil || p == nil {
		return
	}
	bus.Subscribe(pipeline.EventRunFinished, func(e pipeline.Event) error {
		ev, ok := e.(pipeline.RunFinished)
		if !ok {
			return nil
		}
		return p.PublishRun(ev.Report)
	})
}

func eventFromReport(rep *report.RunReport) RunEvent {
	host, _ := os.Hostname()
	return RunEvent{
		RunID:       rep.RunID,
		Status:      string(rep.Status),
		FailedStage: rep.FailedStage,
		Start:       rep.Start,
		End:         rep.End,
		DurationMS:  rep.Duration().Milliseconds(),
		Generator:   rep.Generator,
		BuildType:   rep.BuildType,
		Projects:    rep.Projects,
		Jobs:        rep.Jobs,
		Host:        host,
	}
}
