package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// ProgramName prefixes usage lines.
const ProgramName = "replay-inspector"

// HelpCommand lists the registered commands, or describes one of them.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand("help", "Display help information for commands", "help [command]"),
		registry:    registry,
	}
}

func (c *HelpCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 0 {
		return c.describe(args[0], stdout, stderr)
	}

	_, _ = fmt.Fprintf(stdout, "%s - drive a simulated runtime through capture and replay scenarios\n\n", ProgramName)
	_, _ = fmt.Fprintf(stdout, "Usage: %s <command> [options] [args...]\n\nAvailable commands:\n", ProgramName)
	tw := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
	for _, name := range c.registry.List() {
		cmd, _ := c.registry.Get(name)
		_, _ = fmt.Fprintf(tw, "  %s\t%s\n", name, cmd.Description())
	}
	_ = tw.Flush()
	_, _ = fmt.Fprintf(stdout, "\nRun '%s help <command>' to see a command's flags.\n", ProgramName)
	return nil
}

func (c *HelpCommand) describe(name string, stdout, stderr io.Writer) error {
	cmd, err := c.registry.Get(name)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", name)
		return err
	}
	_, _ = fmt.Fprintf(stdout, "Command: %s\nDescription: %s\nUsage: %s %s\n",
		cmd.Name(), cmd.Description(), ProgramName, cmd.Usage())

	var flags strings.Builder
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(&flags)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if flags.Len() != 0 {
		_, _ = fmt.Fprintf(stdout, "\nFlags:\n%s", flags.String())
	}
	return nil
}

// VersionCommand prints the build version.
type VersionCommand struct {
	*BaseCommand
	version string
}

func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand("version", "Display version information", "version"),
		version:     version,
	}
}

func (c *VersionCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return errors.New("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "%s version %s\n", ProgramName, c.version)
	return nil
}
