package cmd

import (
	"github.com/spf13/cobra"
)

// CommandContext holds the persistent flags. Commands build it from the
// cobra.Command they run under rather than reading package globals.
type CommandContext struct {
	// Output control
	Format  string
	NoColor bool
	Quiet   bool

	// Configuration
	ConfigPath string
	APIURL     string
	LogLevel   string
	LogFormat  string

	// MetricsTextfile, when set, receives the run's metrics on exit
	MetricsTextfile string
}

// NewCommandContext extracts command context from cobra.Command flags.
//
//	func runCommand(cmd *cobra.Command, args []string) error {
//		cmdCtx, err := NewCommandContext(cmd)
//		if err != nil {
//			return fmt.Errorf("failed to create command context: %w", err)
//		}
//		// Use cmdCtx.Format, cmdCtx.NoColor, etc.
//	}
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()

	format, err := flags.GetString("output")
	if err != nil {
		return nil, err
	}
	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return nil, err
	}
	quiet, err := flags.GetBool("quiet")
	if err != nil {
		return nil, err
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	apiURL, err := flags.GetString("api-url")
	if err != nil {
		return nil, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return nil, err
	}
	textfile, err := flags.GetString("metrics-textfile")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Format:          format,
		NoColor:         noColor,
		Quiet:           quiet,
		ConfigPath:      configPath,
		APIURL:          apiURL,
		LogLevel:        logLevel,
		LogFormat:       logFormat,
		MetricsTextfile: textfile,
	}, nil
}

// ResolvedConfigPath returns --config or the default location
func (c *CommandContext) ResolvedConfigPath() string {
	if c.ConfigPath != "" {
		return c.ConfigPath
	}
	return defaultConfigPath()
}
