package cmder

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vivaneiona/factextract"
	"github.com/vivaneiona/factextract/internal/config"
)

const planLongDesc string = `Show the calls an extraction of <file> would make, without calling a model.

Prompts are rendered for every chunk so token estimates include the
instructions. Chunks whose estimated output exceeds the output budget are
flagged; they are likely to be split at run time.

Example:
  factextract plan transcript.txt
  factextract plan transcript.txt --model gpt-4o-mini --format json`

const planShortDesc string = "Show the extraction plan for a document"

type planCommander struct {
	*session
	doc    documentFlags
	format string
}

func newPlanCmd(s *session) *cobra.Command {
	cmder := &planCommander{session: s}

	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: planShortDesc,
		Long:  planLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	config.AddFlags(cmd, false,
		config.FlagModel,
		config.FlagChunkSize,
		config.FlagMaxAttempts,
		config.FlagMaxOutputTokens,
	)
	cmder.doc.register(cmd)
	cmd.Flags().StringVarP(&cmder.format, "format", "f", string(factextract.FormatText), "Output format: text or json")

	return cmd
}

func (c *planCommander) run(cmd *cobra.Command, path string) error {
	doc, err := c.doc.readDocument(cmd, path, time.Now())
	if err != nil {
		return err
	}

	x := factextract.NewWithLogger(nil, c.log, c.cfg.ExtractOptions()...)
	stats, err := x.DryRun(cmd.Context(), doc)
	if err != nil {
		return err
	}

	out, err := factextract.FormatPlan(factextract.BuildPlan(stats, factextract.DefaultModelPricing()), factextract.FormatType(c.format))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
	return err
}
