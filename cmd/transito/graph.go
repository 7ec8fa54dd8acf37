package main

import (
	"fmt"

	"github.com/aretw0/transito/internal/cli"
	"github.com/aretw0/transito/internal/presentation/graph"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [definition.yaml]",
	Short: "Export the machine as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the definition. With --actor, the actor's current state is highlighted.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		actorID, _ := cmd.Flags().GetString("actor")
		if actorID == "" {
			path, err := definitionPath(cmd, args)
			if err != nil {
				return err
			}
			doc, err := cli.LoadDefinition(path)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(doc.Definition, nil))
			return nil
		}

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if len(args) > 0 {
			cfg.Definition = args[0]
		}
		rt, err := cli.NewRuntime(cmd.Context(), cfg, logger, domain.LifecycleHooks{})
		if err != nil {
			return err
		}
		defer rt.Close()

		actor, err := rt.Machine.GetActor(cmd.Context(), actorID)
		if err != nil {
			return err
		}
		if actor == nil {
			return fmt.Errorf("actor %q: %w", actorID, domain.ErrActorNotFound)
		}
		overlay := &graph.Overlay{CurrentState: actor.State()}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(rt.Machine.Definition(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("actor", "", "Highlight the current state of this actor")
}
