package cmder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vivaneiona/factextract"
	"github.com/vivaneiona/factextract/internal/config"
)

const extractLongDesc string = `Extract facts from a text document and print them as JSON.

The document is read from <file>, or from stdin when <file> is "-". Only text
inputs are accepted.

Example:
  factextract extract notes.md
  factextract extract transcript.txt --event-time 2024-03-14 --agent-name Memora
  cat diary.txt | factextract extract - --provider ollama --model llama3.1
  factextract extract review.txt --mode opinions --format jsonl`

const extractShortDesc string = "Extract facts from a document"

var extractFlags = []string{
	config.FlagProvider,
	config.FlagModel,
	config.FlagChunkSize,
	config.FlagMaxAttempts,
	config.FlagTemperature,
	config.FlagMaxOutputTokens,
	config.FlagConcurrency,
	config.FlagTimeout,
	config.FlagMinUnitChars,
	config.FlagMaxSplitDepth,
	config.FlagOpenAIBaseURL,
	config.FlagOllamaURL,
}

type extractCommander struct {
	*session
	doc    documentFlags
	format string
	stats  bool
}

func newExtractCmd(s *session) *cobra.Command {
	cmder := &extractCommander{session: s}

	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: extractShortDesc,
		Long:  extractLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	config.AddFlags(cmd, false, extractFlags...)
	cmder.doc.register(cmd)
	cmd.Flags().StringVarP(&cmder.format, "format", "f", "json", "Output format: json (facts and stats) or jsonl (one fact per line)")
	cmd.Flags().BoolVar(&cmder.stats, "stats", true, "Include execution stats in json output")

	return cmd
}

func (c *extractCommander) run(cmd *cobra.Command, path string) error {
	if c.format != "json" && c.format != "jsonl" {
		return fmt.Errorf("unsupported format %q", c.format)
	}

	doc, err := c.doc.readDocument(cmd, path, time.Now())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	inv, err := newInvoker(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}

	x := factextract.NewWithLogger(inv, c.log, c.cfg.ExtractOptions()...)
	res, err := x.Extract(ctx, doc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.format == "jsonl" {
		enc := json.NewEncoder(out)
		for _, f := range res.Facts {
			if err := enc.Encode(f); err != nil {
				return err
			}
		}
		return nil
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if !c.stats {
		return enc.Encode(struct {
			Facts []factextract.Fact `json:"facts"`
		}{res.Facts})
	}
	return enc.Encode(res)
}
