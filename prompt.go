package factextract

import (
	"fmt"
	"strings"
	"time"
)

// isoLayout is the timestamp format used in prompts.
const isoLayout = "2006-01-02T15:04:05Z"

const (
	docOpen  = "<<DOC>>"
	docClose = "<<END>>"
)

// promptVars are the template variables available to the system and extract
// templates.
func promptVars(doc Document, unit Unit, now time.Time) map[string]any {
	return map[string]any{
		"today":            now.UTC().Format(isoLayout),
		"event_time":       doc.EventTime.UTC().Format(isoLayout),
		"context":          doc.Context,
		"agent_name":       doc.AgentName,
		"extract_opinions": doc.Mode == ModeOpinions,
		"mode":             doc.Mode.String(),
		"text":             unit.Text,
		"unit":             unit.ID(),
	}
}

// buildRequest renders the prompts for one unit. Contextual providers receive
// all variables; basic providers get their templates verbatim with the unit
// text appended between document markers.
func buildRequest(p PromptProvider, doc Document, unit Unit, opts Options) (*Request, error) {
	vars := promptVars(doc, unit, opts.Now())

	render := func(tag string) (string, error) {
		if cp, ok := p.(ContextualPromptProvider); ok {
			return cp.GetPromptWithVars(tag, 1, vars)
		}
		return p.GetPrompt(tag, 1)
	}

	system, err := render(PromptSystem)
	if err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", PromptSystem, err)
	}
	user, err := render(PromptExtract)
	if err != nil {
		return nil, fmt.Errorf("render %s prompt: %w", PromptExtract, err)
	}
	if _, ok := p.(ContextualPromptProvider); !ok {
		user = wrapDocument(user, unit.Text)
	}

	var msgs []*Message
	if s := strings.TrimSpace(system); s != "" {
		msgs = append(msgs, NewSystemMessage(s))
	}
	msgs = append(msgs, NewUserMessage(strings.TrimSpace(user)))

	return &Request{
		Messages:        msgs,
		Schema:          FactResponseSchema,
		SchemaName:      FactResponseSchemaName,
		Scope:           opts.Scope,
		Temperature:     opts.Temperature,
		MaxOutputTokens: opts.MaxOutputTokens,
	}, nil
}

func wrapDocument(instructions, text string) string {
	return instructions + "\n\n" + docOpen + "\n" + text + "\n" + docClose
}

// DocumentText returns the unit text embedded in a request's user message,
// trimmed of surrounding whitespace, or the whole user message when no
// document markers are present.
func DocumentText(req *Request) string {
	user := req.User()
	start := strings.Index(user, docOpen)
	end := strings.LastIndex(user, docClose)
	if start < 0 || end < start+len(docOpen) {
		return user
	}
	return strings.TrimSpace(user[start+len(docOpen) : end])
}
