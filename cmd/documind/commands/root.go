// Package commands defines all Cobra CLI commands for the documind binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/ronak8180/DocuMind/internal/audit"
	"github.com/ronak8180/DocuMind/internal/config"
	"github.com/ronak8180/DocuMind/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "documind",
		Short: "DocuMind — chat with your documents, powered by LLMs",
		Long: `DocuMind is a local-first document assistant.

Upload PDF, Word, Excel, or text files into a chat session, then ask
questions in natural language. Answers are grounded in the uploaded
documents and cite their sources.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.documind/config.yaml).
See 'documind --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.documind/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewServeCmd(),
		NewIngestCmd(),
		NewSessionsCmd(),
		NewVersionCmd(),
	)

	return root
}
