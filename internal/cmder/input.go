package cmder

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/vivaneiona/factextract"
)

// documentFlags are the per-document inputs shared by extract and plan.
type documentFlags struct {
	eventTime string
	context   string
	agentName string
	mode      string
}

func (f *documentFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.eventTime, "event-time", "", "Reference time of the document, RFC 3339 or YYYY-MM-DD (default now)")
	cmd.Flags().StringVar(&f.context, "context", "", "Free-form context passed to the model")
	cmd.Flags().StringVar(&f.agentName, "agent-name", "", "Name of the agent that owns the memory")
	cmd.Flags().StringVar(&f.mode, "mode", "world", "Fact mode: world (world and agent facts) or opinions")
}

// readDocument loads path, or stdin when path is "-", and applies the flags.
func (f *documentFlags) readDocument(cmd *cobra.Command, path string, now time.Time) (factextract.Document, error) {
	eventTime := now
	if f.eventTime != "" {
		t, err := parseEventTime(f.eventTime)
		if err != nil {
			return factextract.Document{}, err
		}
		eventTime = t
	}

	mode, err := factextract.ParseMode(f.mode)
	if err != nil {
		return factextract.Document{}, err
	}

	var doc factextract.Document
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return doc, fmt.Errorf("read stdin: %w", err)
		}
		if !utf8.Valid(data) {
			return doc, fmt.Errorf("stdin: invalid utf-8: %w", factextract.ErrNotText)
		}
		doc = factextract.Document{Text: string(data), EventTime: eventTime}
	} else {
		doc, err = factextract.LoadDocumentFile(path, eventTime)
		if err != nil {
			return doc, err
		}
	}

	doc.Context = f.context
	doc.AgentName = f.agentName
	doc.Mode = mode
	return doc, doc.Validate()
}

func parseEventTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --event-time %q", s)
}
