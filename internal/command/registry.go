package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
)

// Registry manages the collection of available commands.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command, replacing any command of the same name.
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// Get returns a command by name.
func (r *Registry) Get(name string) (Command, error) {
	if cmd, exists := r.commands[name]; exists {
		return cmd, nil
	}
	return nil, fmt.Errorf("command not found: %s", name)
}

// List returns the sorted command names.
func (r *Registry) List() []string {
	return slices.Sorted(maps.Keys(r.commands))
}

// Dispatch parses the flags of the command named by args[0] and executes
// it with the rest. Without arguments, or with -h/--help, it runs help.
func (r *Registry) Dispatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" {
		args = []string{"help"}
	}

	cmd, err := r.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		_, _ = fmt.Fprintf(stderr, "Use '%s help' to see available commands.\n", ProgramName)
		return err
	}

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "Usage: %s %s\n", ProgramName, cmd.Usage())
		_, _ = fmt.Fprintf(stderr, "\n%s\n\n", cmd.Description())
		_, _ = fmt.Fprintln(stderr, "Options:")
		fs.PrintDefaults()
	}
	cmd.SetupFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	return cmd.Execute(ctx, fs.Args(), stdout, stderr)
}
