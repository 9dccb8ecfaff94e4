// Package cli parses the daemon's command-line arguments using the
// standard flag package: -h/--help, -s/--scheduler, -t/--theme,
// -v/--verbosity.
package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/opera-rt/opera/pkg/config"
)

// Options holds the parsed CLI arguments.
type Options struct {
	Scheduler config.SchedulerMode
	Theme     config.Theme
	Verbosity int
	ConfigDir string
}

const usage = `Usage: operad [options]

Options:
  -h, --help                 Show this help message
  -s, --scheduler <mode>     Scheduler mode: immediate|blocking|nonblocking (default: nonblocking)
  -t, --theme <theme>        Output theme: none|light|dark (default: none)
  -v, --verbosity <n>        Log verbosity, a non-negative integer (default: 0)
      --config-dir <path>    Path to a YAML configuration file or directory
`

// Parse parses args (typically os.Args[1:]) against the recognised flags
// listed in the usage summary. Any unknown flag, duplicated flag, or missing required value
// causes Parse to print the usage summary to out and return a non-zero
// exit status.
func Parse(args []string, out io.Writer) (Options, int, bool) {
	fs := flag.NewFlagSet("operad", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // we print our own usage, not flag's default
	fs.Usage = func() {}

	var scheduler, theme, configDir string
	var verbosity int
	var help bool

	fs.StringVar(&scheduler, "scheduler", string(config.SchedulerNonblocking), "")
	fs.StringVar(&scheduler, "s", string(config.SchedulerNonblocking), "")
	fs.StringVar(&theme, "theme", string(config.ThemeNone), "")
	fs.StringVar(&theme, "t", string(config.ThemeNone), "")
	fs.IntVar(&verbosity, "verbosity", 0, "")
	fs.IntVar(&verbosity, "v", 0, "")
	fs.StringVar(&configDir, "config-dir", "", "")
	fs.BoolVar(&help, "help", false, "")
	fs.BoolVar(&help, "h", false, "")

	if dup := firstDuplicateFlag(args); dup != "" {
		fmt.Fprintf(out, "operad: duplicate argument %q\n\n%s", dup, usage)
		return Options{}, 2, false
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(out, "operad: %v\n\n%s", err, usage)
		return Options{}, 2, false
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(out, "operad: unknown argument %q\n\n%s", fs.Arg(0), usage)
		return Options{}, 2, false
	}
	if help {
		fmt.Fprint(out, usage)
		return Options{}, 0, false
	}

	opts := Options{
		Scheduler: config.SchedulerMode(scheduler),
		Theme:     config.Theme(theme),
		Verbosity: verbosity,
		ConfigDir: configDir,
	}
	if !opts.Scheduler.IsValid() {
		fmt.Fprintf(out, "operad: invalid --scheduler %q\n\n%s", scheduler, usage)
		return Options{}, 2, false
	}
	if !opts.Theme.IsValid() {
		fmt.Fprintf(out, "operad: invalid --theme %q\n\n%s", theme, usage)
		return Options{}, 2, false
	}
	if opts.Verbosity < 0 {
		fmt.Fprintf(out, "operad: --verbosity must be non-negative\n\n%s", usage)
		return Options{}, 2, false
	}

	return opts, 0, true
}

// firstDuplicateFlag scans args for a flag name (long or short form)
// supplied more than once, returning its canonical form, or "" if every
// flag appears at most once. The standard flag package silently accepts
// the last occurrence of a repeated flag; operad treats that as a hard
// failure instead.
func firstDuplicateFlag(args []string) string {
	seen := map[string]bool{}
	for _, a := range args {
		if !strings.HasPrefix(a, "-") {
			continue
		}
		name := strings.TrimLeft(a, "-")
		if eq := strings.IndexByte(name, '='); eq >= 0 {
			name = name[:eq]
		}
		canon := canonicalFlagName(name)
		if canon == "" {
			continue
		}
		if seen[canon] {
			return canon
		}
		seen[canon] = true
	}
	return ""
}

func canonicalFlagName(name string) string {
	switch name {
	case "h", "help":
		return "help"
	case "s", "scheduler":
		return "scheduler"
	case "t", "theme":
		return "theme"
	case "v", "verbosity":
		return "verbosity"
	case "config-dir":
		return "config-dir"
	default:
		return ""
	}
}
