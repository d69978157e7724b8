package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/marikmarie/mtnvas/internal/config"
	perrors "github.com/marikmarie/mtnvas/internal/errors"
	"github.com/marikmarie/mtnvas/internal/ux"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit wakanet configuration",
		Long: `Manage the wakanet configuration stored at ~/.wakanet/config.yaml

Configuration includes:
  • Backend base URL and request timeout
  • Session state directory and idle timeout
  • Notification colors and whether success messages are shown
  • Phone country code used to normalize MSISDNs
  • Export directory and default output format

Environment variables (WAKANET_API_URL, WAKANET_STATE_DIR, ...) override the
file. 'config set' only ever writes the file.

Examples:
  # View effective configuration
  wakanet config view

  # Point the client at a staging backend
  wakanet config set api.base_url https://staging.wakanet.example/api

  # Show success notifications
  wakanet config set notifications.success_enabled true

  # List every key
  wakanet config keys
`,
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Display current configuration",
		Long:  `Display the effective configuration after environment overrides.`,
		Args:  cobra.NoArgs,
		RunE:  runConfigView,
	}

	editCmd := &cobra.Command{
		Use:   "edit",
		Short: "Edit configuration in $EDITOR",
		Long:  `Open the configuration file in your default editor (from $EDITOR environment variable).`,
		Args:  cobra.NoArgs,
		RunE:  runConfigEdit,
	}

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific configuration value",
		Long:  `Retrieve the effective value of a key using dot notation (e.g., session.idle_timeout).`,
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigGet,
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a specific configuration value",
		Long:  `Set the value of a key using dot notation (e.g., session.idle_timeout 30m).`,
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSet,
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE:  runConfigPath,
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List configuration keys",
		Args:  cobra.NoArgs,
		RunE:  runConfigKeys,
	}

	configCmd.AddCommand(viewCmd, editCmd, getCmd, setCmd, pathCmd, keysCmd)
	return configCmd
}

// configValues is the flattened key/value view of a Config
type configValues struct {
	keys   []string
	values map[string]string
}

func newConfigValues(cfg *config.Config) configValues {
	v := configValues{keys: config.Keys(), values: make(map[string]string)}
	for _, k := range v.keys {
		v.values[k], _ = cfg.Get(k)
	}
	return v
}

func (v configValues) Headers() []string { return []string{"KEY", "VALUE"} }

func (v configValues) Rows() [][]string {
	rows := make([][]string, 0, len(v.keys))
	for _, k := range v.keys {
		rows = append(rows, []string{k, v.values[k]})
	}
	return rows
}

func loadEffectiveConfig(cmd *cobra.Command) (*CommandContext, *config.Config, error) {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create command context: %w", err)
	}
	if err := config.LoadEnvFile(".env"); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(cmdCtx.ResolvedConfigPath())
	if err != nil {
		return nil, nil, err
	}
	return cmdCtx, cfg, nil
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cmdCtx, cfg, err := loadEffectiveConfig(cmd)
	if err != nil {
		return err
	}

	format := cmdCtx.Format
	if format == "" {
		format = cfg.Defaults.Format
	}
	out := cmd.OutOrStdout()

	switch format {
	case "json", "yaml":
		formatter, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: out})
		if err != nil {
			return err
		}
		return formatter.Format(newConfigValues(cfg).values)
	case "table":
		formatter, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: out, NoColor: cmdCtx.NoColor})
		if err != nil {
			return err
		}
		return formatter.Format(newConfigValues(cfg))
	}

	fmt.Fprintf(out, "Configuration file: %s\n\n", cmdCtx.ResolvedConfigPath())
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return perrors.Wrap(perrors.ErrCodeFileMarshal, "failed to marshal config", err)
	}
	fmt.Fprint(out, string(data))
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	path := cmdCtx.ResolvedConfigPath()

	// Seed the file so the editor opens the full set of keys
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := config.Save(config.Default(), path); err != nil {
			return err
		}
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vi"
	}

	editorCmd := exec.Command(editor, path)
	editorCmd.Stdin = cmd.InOrStdin()
	editorCmd.Stdout = cmd.OutOrStdout()
	editorCmd.Stderr = cmd.ErrOrStderr()
	if err := editorCmd.Run(); err != nil {
		return fmt.Errorf("failed to run editor: %w", err)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: configuration contains errors, please fix %s\n", path)
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration updated successfully")
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadEffectiveConfig(cmd)
	if err != nil {
		return err
	}
	value, err := cfg.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	path := cmdCtx.ResolvedConfigPath()

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return err
	}

	stored, _ := cfg.Get(key)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s = %s\n", key, stored)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cmdCtx.ResolvedConfigPath())
	return nil
}

func runConfigKeys(cmd *cobra.Command, args []string) error {
	for _, k := range config.Keys() {
		fmt.Fprintln(cmd.OutOrStdout(), k)
	}
	return nil
}
