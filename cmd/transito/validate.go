package main

import (
	"fmt"

	"github.com/aretw0/transito/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [definition.yaml]",
	Short: "Check a machine definition",
	Long:  `Loads the definition and reports every structural problem: undeclared targets, unknown actions, unknown keys and cycles that can never settle.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := definitionPath(cmd, args)
		if err != nil {
			return err
		}
		doc, err := cli.LoadDefinition(path)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Definition is valid! ✅ (%d states, initial %q, %d context fields)\n",
			len(doc.Definition.States()), doc.Definition.Initial(), len(doc.Schema))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// definitionPath prefers the positional argument over --definition.
func definitionPath(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	return cfg.Definition, nil
}
