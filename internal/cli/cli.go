package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/zeusync/simrunner/internal/config"
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: 2, Message: err.Error()}
}

// Options is the parsed command line of a scenario command.
type Options struct {
	Config    *config.Config
	Visualize bool
}

// BridgeOptions is the parsed command line of the engine bridge.
type BridgeOptions struct {
	Config *config.Config
}

// common holds the flags every command accepts.
type common struct {
	configPath *string
	logLevel   *string
	logFormat  *string
	viewer     *string
}

func addCommon(fs *flag.FlagSet) common {
	return common{
		configPath: fs.String("config", "", "Path to a YAML config file."),
		logLevel:   fs.String("log-level", "", "Log level: 'debug', 'info', 'warn' or 'error'. Overrides the config file."),
		logFormat:  fs.String("log-format", "", "Log format: 'console' or 'json'. Overrides the config file."),
		viewer:     fs.String("viewer", "", "Dry-run viewer: 'headless' or 'terminal'. Overrides the config file."),
	}
}

// load reads the config file and applies the flags that were set.
func (c common) load(set map[string]bool) (*config.Config, error) {
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		return nil, err
	}
	if set["log-level"] {
		cfg.Log.Level = strings.ToLower(*c.logLevel)
		// an explicit level wins over init.debug
		cfg.Init.Debug = cfg.Log.Level == "debug"
	}
	if set["log-format"] {
		cfg.Log.Format = strings.ToLower(*c.logFormat)
	}
	if set["viewer"] {
		cfg.Viewer.Kind = strings.ToLower(*c.viewer)
	}
	return cfg, nil
}

func newFlagSet(name, summary string, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(output, "\n%s\n\nUsage:\n  %s [options]\n\nOptions:\n", summary, name)
		fs.PrintDefaults()
	}
	return fs
}

// parse runs fs over args. It reports whether the caller should exit
// cleanly (help was requested) and which flags were set.
func parse(fs *flag.FlagSet, args []string) (map[string]bool, bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError(err)
	}
	if fs.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set, false, nil
}

// Parse processes the arguments of a scenario command. visualize is the
// default of the -vis flag. It returns the options, whether the program
// should exit cleanly, or an ExitError.
func Parse(name, summary string, visualize bool, args []string, output io.Writer) (*Options, bool, error) {
	fs := newFlagSet(name, summary, output)
	c := addCommon(fs)
	vis := fs.Bool("vis", visualize, "Show the engine viewer.")
	engineURL := fs.String("engine", "", "Engine: 'dryrun', ws://host:port/engine or quic://host:port. Overrides the config file.")
	maxSteps := fs.Int64("max-steps", 0, "Cap on free-running loop steps. Overrides the config file.")
	video := fs.String("video", "", "Recording filename for scenarios that record. Overrides the config file.")

	set, exit, err := parse(fs, args)
	if err != nil || exit {
		return nil, exit, err
	}

	cfg, err := c.load(set)
	if err != nil {
		return nil, false, usageError(err)
	}
	if set["engine"] {
		cfg.Engine.URL = *engineURL
	}
	if set["max-steps"] {
		cfg.Scenario.MaxSteps = *maxSteps
	}
	if set["video"] {
		cfg.Scenario.VideoFile = *video
	}
	if err = cfg.Validate(); err != nil {
		return nil, false, usageError(err)
	}
	return &Options{Config: cfg, Visualize: *vis}, false, nil
}

// ParseBridge processes the arguments of the engine bridge.
func ParseBridge(name string, args []string, output io.Writer) (*BridgeOptions, bool, error) {
	fs := newFlagSet(name, "simbridge - serves the dry-run engine over WebSocket and QUIC.", output)
	c := addCommon(fs)
	listen := fs.String("listen", "", "WebSocket listen address. Overrides the config file.")
	quicListen := fs.String("quic", "", "QUIC listen address, empty disables QUIC. Overrides the config file.")
	cert := fs.String("cert", "", "TLS certificate file for QUIC. A self-signed one is used when empty.")
	key := fs.String("key", "", "TLS key file for QUIC.")

	set, exit, err := parse(fs, args)
	if err != nil || exit {
		return nil, exit, err
	}

	cfg, err := c.load(set)
	if err != nil {
		return nil, false, usageError(err)
	}
	if set["listen"] {
		cfg.Bridge.Listen = *listen
	}
	if set["quic"] {
		cfg.Bridge.QUICListen = *quicListen
	}
	if set["cert"] {
		cfg.Bridge.CertFile = *cert
	}
	if set["key"] {
		cfg.Bridge.KeyFile = *key
	}
	if err = cfg.Validate(); err != nil {
		return nil, false, usageError(err)
	}
	if cfg.Bridge.Listen == "" && cfg.Bridge.QUICListen == "" {
		return nil, false, &ExitError{Code: 2, Message: "nothing to serve: both -listen and -quic are empty"}
	}
	return &BridgeOptions{Config: cfg}, false, nil
}
