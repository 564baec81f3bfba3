package cli

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tessro/startify/internal/config"
	apperrors "github.com/tessro/startify/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and editing startify configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration after defaults and STARTIFY_* overrides.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit configuration file",
	Long:  `Open the configuration file in your default editor.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigEdit,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create a new configuration file with default values.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) != 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return config.Keys(), cobra.ShellCompDirectiveNoFileComp
	},
}

func init() {
	configSetCmd.Long = "Set a configuration value. The file must still validate afterwards.\n\nSupported keys:\n  " +
		strings.Join(config.Keys(), "\n  ") + `

Examples:
  startify config set backend.base_url http://10.0.0.5:5000
  startify config set poll.snapshot_interval 1000`

	configCmd.AddCommand(configShowCmd, configPathCmd, configEditCmd, configInitCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configPath is the file config commands operate on.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := config.FindConfigFile(); p != "" {
		return p
	}
	return config.DefaultPath()
}

func requireConfigFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", path, apperrors.ErrConfigNotFound)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return render(cmd.OutOrStdout(), cfg, func(w io.Writer) error {
		data, err := config.Encode(cfg)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	})
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := configPath()
	_, err := os.Stat(path)
	exists := err == nil
	return render(cmd.OutOrStdout(), map[string]any{"path": path, "exists": exists}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, path)
		return err
	})
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	path := configPath()
	if err := requireConfigFile(path); err != nil {
		return err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		for _, e := range []string{"nano", "vim", "vi", "notepad"} {
			if _, err := exec.LookPath(e); err == nil {
				editor = e
				break
			}
		}
	}
	if editor == "" {
		return fmt.Errorf("no editor found. Set EDITOR environment variable")
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr
	if err := editorCmd.Run(); err != nil {
		return err
	}

	// Report mistakes now rather than on the next run.
	edited, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	return edited.Validate()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.Init(path); err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), map[string]string{"status": "created", "path": path}, func(w io.Writer) error {
		fmt.Fprintf(w, "Created config file: %s\n", path)
		fmt.Fprintln(w, "\nNext steps:")
		fmt.Fprintln(w, "  1. Point backend.base_url at your backend")
		fmt.Fprintln(w, "  2. Run 'startify auth set-token' to store your session credential")
		return nil
	})
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	path := configPath()
	if err := requireConfigFile(path); err != nil {
		return err
	}

	if _, err := config.Set(path, key, value); err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), map[string]string{"status": "updated", "key": key, "value": value}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "Set %s = %s\n", key, value)
		return err
	})
}
