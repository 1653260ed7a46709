package command

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/joeycumines/replay-inspector/internal/config"
)

// StateCommand runs a scenario script and prints the resulting inspector
// snapshot as JSON.
type StateCommand struct {
	*BaseCommand
	config *config.Config
	flags  scenarioFlags
	pretty string
}

// NewStateCommand creates a new state command.
func NewStateCommand(cfg *config.Config) *StateCommand {
	return &StateCommand{
		BaseCommand: NewBaseCommand(
			"state",
			"Run a scenario script and print the final state as JSON",
			"state [options] <scenario.js>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the state command.
func (c *StateCommand) SetupFlags(fs *flag.FlagSet) {
	c.flags.setup(fs)
	fs.StringVar(&c.pretty, "pretty", "", "Indent the output: true or false (overrides the pretty option)")
}

// Execute runs the scenario and prints the snapshot.
func (c *StateCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: %s %s\n", ProgramName, c.Usage())
		return fmt.Errorf("expected exactly one scenario file")
	}

	if c.pretty != "" {
		c.config.SetCommandOption(c.Name(), "pretty", c.pretty)
	}
	pretty, err := config.DefaultSchema().ResolveCommandBool(c.config, c.Name(), "pretty")
	if err != nil {
		return err
	}

	s, err := runScenario(ctx, c.Name(), c.config, &c.flags, args[0])
	if s == nil {
		return err
	}
	defer s.Close()
	if err != nil {
		printLogs(stderr, s.logs)
		_, _ = fmt.Fprintf(stderr, "Scenario failed: %v\n", err)
		return err
	}

	snap, err := s.inspector.Snapshot()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(snap)
}
