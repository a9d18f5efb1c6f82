package factextract

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// Mode selects which fact types the extraction asks for.
type Mode int

const (
	// ModeWorldAndAgent extracts world and agent facts. Opinions are never
	// created during normal memory storage.
	ModeWorldAndAgent Mode = iota
	// ModeOpinions extracts only opinion facts.
	ModeOpinions
)

func (m Mode) String() string {
	if m == ModeOpinions {
		return "opinions"
	}
	return "world+agent"
}

// ParseMode maps "opinions" / "opinion" to ModeOpinions and "", "world",
// "world+agent" to ModeWorldAndAgent.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "world", "agent", "world+agent", "facts":
		return ModeWorldAndAgent, nil
	case "opinion", "opinions":
		return ModeOpinions, nil
	}
	return 0, fmt.Errorf("unknown extraction mode %q", s)
}

// Document is the input of one extraction. It is not modified by the extractor.
type Document struct {
	Text      string
	EventTime time.Time // reference time used to resolve relative dates
	Context   string    // free-form context, may be empty
	AgentName string    // memory owner, may be empty
	Mode      Mode
}

// Validate reports whether the document can be submitted.
func (d Document) Validate() error {
	if strings.TrimSpace(d.Text) == "" {
		return ErrEmptyDocument
	}
	if d.EventTime.IsZero() {
		return ErrMissingEventTime
	}
	return nil
}

// ErrNotText is returned by LoadDocumentFile for binary inputs.
var ErrNotText = errors.New("input is not a text document")

// LoadDocumentFile reads a text file into a Document. Anything mimetype does
// not detect as text/* (or JSON, which is text for our purposes) is rejected.
func LoadDocumentFile(path string, eventTime time.Time) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	mt := mimetype.Detect(data)
	if !isTextMIME(mt) {
		return Document{}, fmt.Errorf("%s (%s): %w", path, mt.String(), ErrNotText)
	}
	if !utf8.Valid(data) {
		return Document{}, fmt.Errorf("%s: invalid utf-8: %w", path, ErrNotText)
	}
	return Document{Text: string(data), EventTime: eventTime}, nil
}

func isTextMIME(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") || strings.HasPrefix(m.String(), "text/") || m.Is("application/json") {
			return true
		}
	}
	return false
}
