package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/alnah/chatpipeline/internal/pipelineconfig"
)

// ConfigCmd creates the config command with get/set/list subcommands.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage persistent configuration settings",
		Long: fmt.Sprintf(`Manage persistent configuration settings.

Configuration is stored under the XDG config directory and layered with
CHATPIPELINE_* environment variables and a --config YAML file at run time.

Supported settings:
  %s`, configKeyHelp()),
		Example: `  chatpipeline config set asr.model whisper-1
  chatpipeline config get asr.model
  chatpipeline config list`,
	}

	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configListCmd(env))
	return cmd
}

func configKeyHelp() string {
	var s string
	for i, k := range pipelineconfig.ValidKeys {
		if i > 0 {
			s += "\n  "
		}
		s += k
	}
	return s
}

func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := pipelineconfig.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), val)
			return nil
		},
	}
}

func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipelineconfig.Set(args[0], args[1])
		},
	}
}

func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every recognized configuration key and its current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := pipelineconfig.List()
			if err != nil {
				return err
			}
			keys := slices.Clone(pipelineconfig.ValidKeys)
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, values[k])
			}
			return nil
		},
	}
}
