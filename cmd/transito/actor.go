package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/transito/internal/cli"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var actorCmd = &cobra.Command{
	Use:   "actor",
	Short: "Create, inspect and drive actors",
	Long:  `Creates actors, sends them events, and lists or removes them in the configured backend.`,
}

var actorCreateCmd = &cobra.Command{
	Use:   "create [id]",
	Short: "Create an actor in the initial state (id defaults to a UUIDv7)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawContext, _ := cmd.Flags().GetString("context")
		data, err := parseContext(rawContext)
		if err != nil {
			return err
		}
		id := ""
		if len(args) > 0 {
			id = args[0]
		} else {
			u, err := uuid.NewV7()
			if err != nil {
				return err
			}
			id = u.String()
		}

		return withRuntime(cmd, func(rt *cli.Runtime) error {
			actor, err := rt.Machine.CreateActor(cmd.Context(), id, data)
			if err != nil {
				return err
			}
			return cli.PrintJSON(cmd.OutOrStdout(), actor.Snapshot())
		})
	},
}

var actorGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print the snapshot of an actor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *cli.Runtime) error {
			actor, err := rt.Machine.GetActor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if actor == nil {
				return fmt.Errorf("actor %q: %w", args[0], domain.ErrActorNotFound)
			}
			return cli.PrintJSON(cmd.OutOrStdout(), actor.Snapshot())
		})
	},
}

var actorSendCmd = &cobra.Command{
	Use:   "send <id> <event>",
	Short: "Send an event to an actor and print the persisted snapshot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rawPayload, _ := cmd.Flags().GetString("payload")
		payload, err := cli.ParseJSONArg("payload", rawPayload)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(rt *cli.Runtime) error {
			actor, err := rt.Machine.Send(cmd.Context(), args[0], args[1], payload)
			if err != nil {
				return err
			}
			return cli.PrintJSON(cmd.OutOrStdout(), actor.Snapshot())
		})
	},
}

var actorLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored actors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *cli.Runtime) error {
			lister, ok := rt.Machine.Adapter().(ports.Lister)
			if !ok {
				return fmt.Errorf("list: %w", errors.ErrUnsupported)
			}
			ids, err := lister.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "No actors found.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		})
	},
}

var actorRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Remove one or more actors",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(rt *cli.Runtime) error {
			deleter, ok := rt.Machine.Adapter().(ports.Deleter)
			if !ok {
				return fmt.Errorf("delete: %w", errors.ErrUnsupported)
			}
			var errs []error
			for _, id := range args {
				if err := deleter.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("remove %q: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed actor '%s'\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

func init() {
	rootCmd.AddCommand(actorCmd)
	actorCmd.AddCommand(actorCreateCmd, actorGetCmd, actorSendCmd, actorLsCmd, actorRmCmd)
	actorCreateCmd.Flags().String("context", "", "Initial context as a JSON object")
	actorSendCmd.Flags().String("payload", "", "Event payload as JSON")
}

func withRuntime(cmd *cobra.Command, fn func(*cli.Runtime) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rt, err := cli.NewRuntime(cmd.Context(), cfg, logger, domain.LifecycleHooks{})
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(rt)
}

func parseContext(raw string) (map[string]any, error) {
	v, err := cli.ParseJSONArg("context", raw)
	if err != nil || v == nil {
		return map[string]any{}, err
	}
	data, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("--context must be a JSON object, got %T", v)
	}
	return data, nil
}
