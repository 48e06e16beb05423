/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package main implements the host network self check of the compute entrypoint.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	cobra "github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sergelogvinov/ce-host-network-check/pkg/config"
	"github.com/sergelogvinov/ce-host-network-check/pkg/diagnose"

	"sigs.k8s.io/karpenter/pkg/utils/env"
)

var (
	command = "ce-host-network-check"
	version = "v0.0.0"
	commit  = "none"
)

const (
	quietFlagName       = "quiet"
	quietEnvVarName     = "NETCHECK_QUIET"
	verbosityEnvVarName = "NETCHECK_VERBOSITY"
	configEnvVarName    = "NETCHECK_CONFIG"
	defaultConfigPath   = "/etc/condor-ce/netcheck.yaml"
)

type checkCmd struct {
	quiet bool
}

func main() {
	if exitCode := run(); exitCode != 0 {
		os.Exit(exitCode)
	}
}

func run() int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &checkCmd{}

	cmd := cobra.Command{
		Use:           command,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		Short:         "Check that the host network configuration lets clients reach the service",
		Args:          cobra.ExactArgs(0),
		RunE:          c.runCheck,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c.addFlags(cmd.Flags())

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		errorString := err.Error()

		switch {
		case errors.Is(err, diagnose.ErrCheckFailed):
			// The reporter already printed the reason.
		case strings.Contains(errorString, "arg(s)") || strings.Contains(errorString, "flag"):
			fmt.Fprintf(os.Stderr, "Error: %s\n\n", errorString)
			fmt.Fprintln(os.Stderr, cmd.UsageString())
		default:
			fmt.Fprintln(os.Stderr, "Execute error:", err)
		}

		return 1
	}

	return 0
}

func (c *checkCmd) addFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.quiet, quietFlagName, "q", env.WithDefaultBool(quietEnvVarName, false), "Only print warnings and errors")
}

func (c *checkCmd) runCheck(cmd *cobra.Command, _ []string) error {
	logger := setupLogger(env.WithDefaultInt(verbosityEnvVarName, 0), c.quiet)

	configPath := env.WithDefaultString(configEnvVarName, defaultConfigPath)

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}

	logger.V(1).Info("Loaded configuration", "path", configPath)

	checker, err := diagnose.NewChecker(logger, cfg, os.Stderr)
	if err != nil {
		return err
	}

	return checker.Run(cmd.Context())
}
