// Package options parses the shared command-line surface (spec.md §6)
// with github.com/spf13/pflag, the flag package the example pack uses
// throughout telepresenceio-telepresence (directly here instead of
// layered under spf13/cobra, since the surface is a flat set of
// required flags rather than a subcommand tree). It is the Go
// equivalent of original_source's utils::CommandLineOptions /
// client::CommandLineOptions, built on boost::program_options there.
package options

import (
	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
)

// Common holds the flags shared by both processes.
type Common struct {
	ConfigPath string
	LogsPath   string
}

// ServerOptions is the server process's full CLI surface.
type ServerOptions struct {
	Common
}

// ClientOptions is the client process's full CLI surface.
type ClientOptions struct {
	Common
	NumbersPath string
}

// ParseServer parses os.Args-style arguments for the server binary.
func ParseServer(args []string) (*ServerOptions, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config-path", "", "Config file location")
	logsPath := fs.String("logs-path", "", "Location of the logs directory")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "config-path"); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "logs-path"); err != nil {
		return nil, err
	}

	return &ServerOptions{Common{ConfigPath: *configPath, LogsPath: *logsPath}}, nil
}

// ParseClient parses os.Args-style arguments for the client binary.
func ParseClient(args []string) (*ClientOptions, error) {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	configPath := fs.String("config-path", "", "Config file location")
	logsPath := fs.String("logs-path", "", "Location of the logs directory")
	numbersPath := fs.String("numbers-path", "", "File with numbers location")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "config-path"); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "logs-path"); err != nil {
		return nil, err
	}
	if err := requireFlag(fs, "numbers-path"); err != nil {
		return nil, err
	}

	return &ClientOptions{
		Common:      Common{ConfigPath: *configPath, LogsPath: *logsPath},
		NumbersPath: *numbersPath,
	}, nil
}

func requireFlag(fs *flag.FlagSet, name string) error {
	f := fs.Lookup(name)
	if f == nil || f.Value.String() == "" {
		return errors.Errorf("missing required flag --%s", name)
	}
	return nil
}
