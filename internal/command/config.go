package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/joeycumines/replay-inspector/internal/config"
)

const configUsage = `Configuration management:
  config <key>          - Get configuration value
  config <key> <value>  - Set configuration value
  config --all          - Show all configuration
  config validate       - Validate configuration
  config schema         - Show configuration schema
`

// ConfigCommand reads, sets and validates configuration options.
type ConfigCommand struct {
	*BaseCommand
	config  *config.Config
	path    string
	schema  *config.ConfigSchema
	showAll bool
}

// NewConfigCommand returns the config command. Set values are written to
// path unless it is empty.
func NewConfigCommand(cfg *config.Config, path string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Manage configuration settings",
			"config [options] [validate|schema|<key> [value]]",
		),
		config: cfg,
		path:   path,
		schema: config.DefaultSchema(),
	}
}

func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.showAll, "all", false, "Show all configuration (global and command-specific)")
}

func (c *ConfigCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	switch len(args) {
	case 0:
		if c.showAll {
			c.dump(stdout)
		} else {
			_, _ = io.WriteString(stdout, configUsage)
		}
		return nil
	case 1:
		switch args[0] {
		case "validate":
			c.validate(stdout)
		case "schema":
			_, _ = io.WriteString(stdout, c.schema.FormatHelp())
		default:
			c.get(args[0], stdout)
		}
		return nil
	case 2:
		return c.set(args[0], args[1], stdout, stderr)
	}
	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return errors.New("invalid arguments")
}

func (c *ConfigCommand) get(key string, stdout io.Writer) {
	_, set := c.config.GetGlobalOption(key)
	if !set && c.schema.Lookup("", key) == nil {
		_, _ = fmt.Fprintf(stdout, "Configuration key '%s' not found\n", key)
		return
	}
	_, _ = fmt.Fprintf(stdout, "%s: %s\n", key, c.schema.Resolve(c.config, key))
}

func (c *ConfigCommand) set(key, value string, stdout, stderr io.Writer) error {
	c.config.SetGlobalOption(key, value)
	for _, issue := range config.ValidateConfig(c.config, c.schema) {
		_, _ = fmt.Fprintf(stderr, "Warning: %s\n", issue)
	}
	if c.path != "" {
		if err := config.SetKeyInFile(c.path, key, value); err != nil {
			return fmt.Errorf("failed to persist config: %w", err)
		}
	}
	_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
	return nil
}

func (c *ConfigCommand) dump(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Global configuration:")
	for _, k := range slices.Sorted(maps.Keys(c.config.Global)) {
		_, _ = fmt.Fprintf(w, "  %s: %s\n", k, c.config.Global[k])
	}
	_, _ = fmt.Fprintln(w, "\nCommand-specific configuration:")
	for _, name := range slices.Sorted(maps.Keys(c.config.Commands)) {
		section := c.config.Commands[name]
		_, _ = fmt.Fprintf(w, "  [%s]\n", name)
		for _, k := range slices.Sorted(maps.Keys(section)) {
			_, _ = fmt.Fprintf(w, "    %s: %s\n", k, section[k])
		}
	}
}

func (c *ConfigCommand) validate(w io.Writer) {
	issues := config.ValidateConfig(c.config, c.schema)
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(w, "Configuration is valid.")
		return
	}
	_, _ = fmt.Fprintf(w, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(w, "  - %s\n", issue)
	}
}
