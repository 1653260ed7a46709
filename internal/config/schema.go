package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// OptionType is the value type an option is validated against.
type OptionType string

const (
	TypeString OptionType = "string"
	// TypeBool accepts true/false, yes/no, on/off and 1/0.
	TypeBool OptionType = "bool"
	TypeInt  OptionType = "int"
	// TypeDuration accepts time.ParseDuration syntax, e.g. "250ms".
	TypeDuration OptionType = "duration"
)

// ConfigOption declares one option.
type ConfigOption struct {
	Key  string
	Type OptionType
	// Default is used when neither the environment nor the file sets the
	// option. Empty means no default.
	Default     string
	Description string
	// Section is the [section] the option belongs to, "" for global.
	Section string
	// EnvVar, when set and present in the environment, overrides the file.
	EnvVar string
}

type optionKey struct{ section, key string }

// ConfigSchema is the set of known options, kept in registration order.
type ConfigSchema struct {
	order []optionKey
	byKey map[optionKey]ConfigOption
}

// NewSchema creates an empty schema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{byKey: make(map[optionKey]ConfigOption)}
}

// Register adds options. Registering a section and key twice replaces the
// first declaration in place.
func (s *ConfigSchema) Register(opts ...ConfigOption) {
	for _, opt := range opts {
		k := optionKey{opt.Section, opt.Key}
		if _, exists := s.byKey[k]; !exists {
			s.order = append(s.order, k)
		}
		s.byKey[k] = opt
	}
}

// Lookup returns the option declared for key in section ("" for global).
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	opt, ok := s.byKey[optionKey{section, key}]
	if !ok {
		return nil
	}
	return &opt
}

// IsKnown reports whether key may appear in section. Global options may
// appear in any section, where they shadow the global value.
func (s *ConfigSchema) IsKnown(section, key string) bool {
	return s.lookupIn(section, key) != nil
}

// lookupIn is Lookup with the fallback from a section to the global options.
func (s *ConfigSchema) lookupIn(section, key string) *ConfigOption {
	if opt := s.Lookup(section, key); opt != nil {
		return opt
	}
	if section == "" {
		return nil
	}
	return s.Lookup("", key)
}

// Options returns the options of section in registration order.
func (s *ConfigSchema) Options(section string) []ConfigOption {
	var out []ConfigOption
	for _, k := range s.order {
		if k.section == section {
			out = append(out, s.byKey[k])
		}
	}
	return out
}

// Sections returns the sorted names of the sections with options.
func (s *ConfigSchema) Sections() []string {
	var out []string
	for _, k := range s.order {
		if k.section != "" && !slices.Contains(out, k.section) {
			out = append(out, k.section)
		}
	}
	slices.Sort(out)
	return out
}

// Resolve returns the effective value of a global option: the environment
// variable declared for it, then the file, then the default.
func (s *ConfigSchema) Resolve(c *Config, key string) string {
	return s.resolve(c, "", key)
}

// ResolveCommand is Resolve for a command: the command's [section] value
// shadows the global one, and a section default shadows the global default.
func (s *ConfigSchema) ResolveCommand(c *Config, command, key string) string {
	return s.resolve(c, command, key)
}

func (s *ConfigSchema) resolve(c *Config, section, key string) string {
	opt := s.lookupIn(section, key)
	if opt != nil && opt.EnvVar != "" {
		if v, ok := os.LookupEnv(opt.EnvVar); ok {
			return v
		}
	}
	if c != nil {
		var (
			v  string
			ok bool
		)
		if section == "" {
			v, ok = c.GetGlobalOption(key)
		} else {
			v, ok = c.GetCommandOption(section, key)
		}
		if ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig lists, sorted, every unknown option and every value that
// does not parse as its declared type.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string

	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := validateType(opt.Type, value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}

	for section, opts := range c.Commands {
		for key, value := range opts {
			opt := s.lookupIn(section, key)
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			if err := validateType(opt.Type, value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}

	slices.Sort(issues)
	return issues
}

func validateType(t OptionType, value string) error {
	var err error
	switch t {
	case TypeString, "":
	case TypeBool:
		_, err = parseBool(value)
	case TypeInt:
		_, err = strconv.Atoi(value)
	case TypeDuration:
		_, err = time.ParseDuration(value)
	default:
		return fmt.Errorf("unknown option type %q", t)
	}
	if err != nil {
		return fmt.Errorf("expected %s, got %q", t, value)
	}
	return nil
}

// --- Typed resolution ---

// ResolveInt returns Resolve(c, key) parsed as an integer. An empty value is
// zero.
func (s *ConfigSchema) ResolveInt(c *Config, key string) (int, error) {
	v := s.Resolve(c, key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: expected int, got %q", key, v)
	}
	return n, nil
}

// ResolveBool returns Resolve(c, key) parsed as a boolean. An empty value is
// false.
func (s *ConfigSchema) ResolveBool(c *Config, key string) (bool, error) {
	return resolvedBool(key, s.Resolve(c, key))
}

// ResolveCommandBool is ResolveBool via ResolveCommand.
func (s *ConfigSchema) ResolveCommandBool(c *Config, command, key string) (bool, error) {
	return resolvedBool(key, s.ResolveCommand(c, command, key))
}

func resolvedBool(key, v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := parseBool(v)
	if err != nil {
		return false, fmt.Errorf("option %q: expected bool, got %q", key, v)
	}
	return b, nil
}

// ResolveDuration returns Resolve(c, key) parsed as a non-negative
// time.Duration. An empty value is zero.
func (s *ConfigSchema) ResolveDuration(c *Config, key string) (time.Duration, error) {
	return resolvedDuration(key, s.Resolve(c, key))
}

// ResolveCommandDuration is ResolveDuration via ResolveCommand.
func (s *ConfigSchema) ResolveCommandDuration(c *Config, command, key string) (time.Duration, error) {
	return resolvedDuration(key, s.ResolveCommand(c, command, key))
}

func resolvedDuration(key, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("option %q: expected duration, got %q", key, v)
	}
	if d < 0 {
		return 0, fmt.Errorf("option %q: negative duration %s", key, d)
	}
	return d, nil
}

// --- Help text ---

// FormatHelp lists every option, global first, then one block per section.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	if globals := s.Options(""); len(globals) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range globals {
			writeOptionHelp(&b, o)
		}
	}
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range s.Options(sec) {
			writeOptionHelp(&b, o)
		}
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-32s %s", o.Key, o.Description)
	var notes []string
	if o.Type != "" && o.Type != TypeString {
		notes = append(notes, "type: "+string(o.Type))
	}
	if o.Default != "" {
		notes = append(notes, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		notes = append(notes, "env: "+o.EnvVar)
	}
	if len(notes) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(notes, ", "))
	}
	b.WriteByte('\n')
}

// --- Default schema ---

// DefaultSchema returns the schema declaring every known replay-inspector
// option.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.Register(defaultGlobalOptions()...)
	s.Register(defaultCommandOptions()...)
	return s
}

func defaultGlobalOptions() []ConfigOption {
	return []ConfigOption{
		// Logging
		{Key: "log.file", Type: TypeString, Default: "", Description: "Log file path (JSON output)", EnvVar: "REPLAY_INSPECTOR_LOG_FILE"},
		{Key: "log.level", Type: TypeString, Default: "info", Description: "Log level: debug, info, warn, error", EnvVar: "REPLAY_INSPECTOR_LOG_LEVEL"},
		{Key: "log.max-size-mb", Type: TypeInt, Default: "10", Description: "Max log file size in MB before rotation"},
		{Key: "log.max-files", Type: TypeInt, Default: "5", Description: "Max number of rotated log backup files"},
		{Key: "log.buffer-size", Type: TypeInt, Default: "1000", Description: "In-memory log buffer size (entries)"},

		// Event loop
		{Key: "loop.sync-timeout", Type: TypeDuration, Default: "", Description: "Timeout for synchronous calls onto the event loop"},

		// Replay controller
		{Key: "replay.fetch-timeout", Type: TypeDuration, Default: "5s", Description: "Timeout for fetching session and segment data"},
		{Key: "replay.playback-speed", Type: TypeString, Default: "fast", Description: "Initial playback speed: fast, slow"},

		// Hover controller
		{Key: "hover.mode", Type: TypeString, Default: "none", Description: "Token tracking mode: none, non-symbol-tokens, javascript-expression, marked-tokens"},
		{Key: "hover.mouse-over-delay", Type: TypeDuration, Default: "500ms", Description: "Dwell time before a hovered token becomes a candidate"},
		{Key: "hover.mouse-out-release-delay", Type: TypeDuration, Default: "0s", Description: "Delay before a highlighted range is released after the pointer leaves it"},
		{Key: "hover.highlight-class", Type: TypeString, Default: "hover-highlight", Description: "Class name applied to highlighted ranges"},

		// Timeline overview
		{Key: "timeline.frame-interval", Type: TypeDuration, Default: "16ms", Description: "Coalescing interval for scheduled overview layouts"},
		{Key: "timeline.filter", Type: TypeString, Default: "", Description: "Default overview filter expression"},

		// Rendering
		{Key: "render.width", Type: TypeInt, Default: "0", Description: "Overview render width in columns (0 detects the terminal)", EnvVar: "REPLAY_INSPECTOR_WIDTH"},

		// Simulator
		{Key: "simulator.latency", Type: TypeDuration, Default: "0s", Description: "Artificial latency for simulated runtime fetches"},
		{Key: "simulator.event-interval", Type: TypeDuration, Default: "0s", Description: "Delay between events during simulated playback"},
	}
}

func defaultCommandOptions() []ConfigOption {
	return []ConfigOption{
		// [run] section
		{Key: "timeout", Section: "run", Type: TypeDuration, Default: "30s", Description: "Maximum time a scenario may run"},
		{Key: "show-log", Section: "run", Type: TypeBool, Default: "false", Description: "Print buffered log entries after the scenario"},

		// [state] section
		{Key: "timeout", Section: "state", Type: TypeDuration, Default: "30s", Description: "Maximum time a scenario may run"},
		{Key: "pretty", Section: "state", Type: TypeBool, Default: "true", Description: "Indent the JSON output"},
	}
}
