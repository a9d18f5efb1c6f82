// Package cmder provides the factextract command tree.
package cmder

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vivaneiona/factextract/internal/config"
	"github.com/vivaneiona/factextract/internal/logger"
)

const rootLongDesc string = `factextract turns narrative or conversational text into ordered facts.

Documents are chunked, every chunk is extracted concurrently, responses that
fail validation are retried, and chunks whose output overflows are halved until
they fit.

Commands:
  factextract extract <file>   Extract facts and print them as JSON
  factextract plan <file>      Show the calls an extraction would make
  factextract chunk <file>     Show how a document would be chunked

Settings are read from factextract.toml, FACTEXTRACT_* environment variables
and flags, in increasing order of precedence.`

const rootShortDesc string = "factextract - fact extraction from text"

// session is the state shared by every subcommand once the root pre-run has
// resolved configuration.
type session struct {
	configFile string
	cfg        *config.Config
	log        *slog.Logger
}

func NewFactextractCmd() *cobra.Command {
	s := &session{}

	cmd := &cobra.Command{
		Use:           "factextract",
		Short:         rootShortDesc,
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return s.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&s.configFile, "config", "", "Path to a TOML config file (default ./factextract.toml)")
	config.AddFlags(cmd, true, config.FlagDebug, config.FlagLogJSON)

	cmd.AddCommand(newExtractCmd(s))
	cmd.AddCommand(newPlanCmd(s))
	cmd.AddCommand(newChunkCmd(s))

	return cmd
}

func (s *session) load(cmd *cobra.Command) error {
	v, err := config.InitViper(s.configFile)
	if err != nil {
		return err
	}
	if err := config.BindFlags(v, cmd); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	s.cfg = cfg
	s.log = logger.New(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithDebug(cfg.Debug),
		logger.WithJSON(cfg.LogJSON),
	)
	return nil
}

// Execute runs the command tree and prints a terminal error to errOut.
func Execute(cmd *cobra.Command, errOut io.Writer) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}
