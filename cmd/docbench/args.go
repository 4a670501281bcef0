package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/weiihann/docbench/config"
	"github.com/weiihann/docbench/layout"
)

// portArg requires exactly one positional argument holding a TCP port.
func portArg(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return &usageError{
			cmd: cmd,
			err: fmt.Errorf("expected exactly one port argument, got %d", len(args)),
		}
	}

	if _, err := parsePort(args[0]); err != nil {
		return &usageError{cmd: cmd, err: err}
	}

	return nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("invalid port %q: must be an integer between 1 and 65535", s)
	}

	return n, nil
}

// settings is the config after flag overrides, plus the parsed port.
type settings struct {
	config.Config

	port       int
	layout     layout.Layout
	outputJSON bool
}

func resolve(cfg config.Config, portText, layoutName string, outputJSON bool) (settings, error) {
	port, err := parsePort(portText)
	if err != nil {
		return settings{}, err
	}

	if err := cfg.Validate(); err != nil {
		return settings{}, &configError{err: err}
	}

	s := settings{Config: cfg, port: port, outputJSON: outputJSON}

	if layoutName != "" {
		s.layout, err = layout.Parse(layoutName)
		if err != nil {
			return settings{}, &configError{err: err}
		}
	}

	return s, nil
}
