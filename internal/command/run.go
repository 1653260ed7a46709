package command

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/joeycumines/replay-inspector/internal/config"
	"github.com/joeycumines/replay-inspector/internal/logging"
	"github.com/joeycumines/replay-inspector/internal/replay"
	"golang.org/x/term"
)

// fallbackWidth is used when stdout is not a terminal and no width is set.
const fallbackWidth = 100

// RunCommand runs a scenario script against the simulated runtime and
// prints the replay event log and the timeline overview.
type RunCommand struct {
	*BaseCommand
	config  *config.Config
	flags   scenarioFlags
	width   int
	showLog bool
}

// NewRunCommand creates a new run command.
func NewRunCommand(cfg *config.Config) *RunCommand {
	return &RunCommand{
		BaseCommand: NewBaseCommand(
			"run",
			"Run a scenario script and print the replay log and timeline overview",
			"run [options] <scenario.js>",
		),
		config: cfg,
	}
}

// SetupFlags configures the flags for the run command.
func (c *RunCommand) SetupFlags(fs *flag.FlagSet) {
	c.flags.setup(fs)
	fs.IntVar(&c.width, "width", 0, "Overview width in columns (overrides render.width)")
	fs.BoolVar(&c.showLog, "show-log", false, "Print buffered log entries after the scenario")
}

// Execute runs the scenario.
func (c *RunCommand) Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) != 1 {
		_, _ = fmt.Fprintf(stderr, "Usage: %s %s\n", ProgramName, c.Usage())
		return fmt.Errorf("expected exactly one scenario file")
	}

	s, err := runScenario(ctx, c.Name(), c.config, &c.flags, args[0])
	if s == nil {
		return err
	}
	defer s.Close()

	showLog := c.showLog
	if !showLog {
		showLog, _ = config.DefaultSchema().ResolveCommandBool(c.config, c.Name(), "show-log")
	}

	events, eerr := s.inspector.Events()
	if eerr == nil {
		_, _ = fmt.Fprintln(stdout, eventTable(events))
	}

	width, werr := c.resolveWidth(stdout)
	if werr == nil {
		overview, rerr := s.inspector.Render(width)
		if rerr == nil {
			_, _ = fmt.Fprintln(stdout)
			_, _ = fmt.Fprint(stdout, overview)
		}
		werr = rerr
	}

	if showLog || err != nil {
		printLogs(stdout, s.logs)
	}
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Scenario failed: %v\n", err)
		return err
	}
	return errors.Join(eerr, werr)
}

func (c *RunCommand) resolveWidth(stdout io.Writer) (int, error) {
	if c.width > 0 {
		return c.width, nil
	}
	width, err := config.DefaultSchema().ResolveInt(c.config, "render.width")
	if err != nil || width > 0 {
		return width, err
	}
	return terminalWidth(stdout), nil
}

// terminalWidth reports the width of w when it is a terminal.
func terminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return fallbackWidth
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// eventTable renders the replay event log.
func eventTable(events []replay.Event) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "EVENT", "SESSION", "SEGMENT", "POSITION").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for n, ev := range events {
		t.Row(
			strconv.Itoa(n+1),
			string(ev.Type),
			idString(int64(ev.SessionID)),
			idString(int64(ev.SegmentID)),
			ev.Position.String(),
		)
	}
	return t.String()
}

func idString(id int64) string {
	if id == 0 {
		return "-"
	}
	return strconv.FormatInt(id, 10)
}

func printLogs(w io.Writer, logs *logging.Buffer) {
	entries := logs.Entries()
	if len(entries) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Log:")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "  %s %-5s %s", e.Time.Format("15:04:05.000"), e.Level, e.Message)
		for _, key := range slices.Sorted(maps.Keys(e.Attrs)) {
			_, _ = fmt.Fprintf(w, " %s=%s", key, e.Attrs[key])
		}
		_, _ = fmt.Fprintln(w)
	}
}
