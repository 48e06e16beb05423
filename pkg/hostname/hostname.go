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

// Package hostname determines the name the service daemon advertises.
package hostname

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"

	"github.com/sergelogvinov/ce-host-network-check/pkg/resolver"
	utilsys "github.com/sergelogvinov/ce-host-network-check/pkg/utils/sys"

	utilexec "k8s.io/utils/exec"
)

// Source names where the base hostname came from.
type Source string

const (
	SourceConfig   Source = "config"
	SourceOverride Source = "override"
	SourceOS       Source = "os"
)

// Options are the hostname overrides known to the service.
type Options struct {
	// Configured is the hostname set in the service configuration.
	Configured string
	// OverrideFile is a shell environment file sourced at service start.
	OverrideFile string
	// OverrideVariable is the variable of OverrideFile holding a hostname.
	OverrideVariable string
}

// Result is the resolved hostname.
type Result struct {
	Base   string
	Source Source
	FQDN   string
}

// Chain resolves the base hostname through its override precedence.
type Chain struct {
	Logger     logr.Logger
	Exec       utilexec.Interface
	DNS        resolver.Resolver
	OSHostname func() (string, error)
}

// NewChain returns a chain using the OS hostname and the system shell.
func NewChain(logger logr.Logger, dns resolver.Resolver) *Chain {
	return &Chain{
		Logger:     logger,
		Exec:       utilexec.New(),
		DNS:        dns,
		OSHostname: os.Hostname,
	}
}

// Resolve picks the base hostname and expands it. Precedence, highest first:
// the configured hostname, the override file, the OS hostname. An override
// only wins when it differs from the OS hostname.
func (c *Chain) Resolve(ctx context.Context, opts Options) (*Result, error) {
	osName, err := c.OSHostname()
	if err != nil {
		return nil, fmt.Errorf("failed to get the OS hostname: %w", err)
	}

	osName = normalize(osName)
	if osName == "" {
		return nil, fmt.Errorf("the OS hostname is empty")
	}

	res := &Result{Base: osName, Source: SourceOS}

	c.Logger.Info("OS hostname", "hostname", osName)

	if override := c.override(ctx, opts); override != "" && override != osName {
		c.Logger.Info("Hostname overridden by the environment file", "file", opts.OverrideFile, "hostname", override)

		res.Base, res.Source = override, SourceOverride
	}

	if configured := normalize(opts.Configured); configured != "" && configured != osName {
		c.Logger.Info("Hostname overridden by the service configuration", "hostname", configured)

		res.Base, res.Source = configured, SourceConfig
	}

	res.FQDN, err = resolver.ExpandFQDN(ctx, c.DNS, res.Base)
	if err != nil {
		c.Logger.V(1).Info("Could not expand hostname", "hostname", res.Base, "error", err.Error())
	}

	if res.FQDN != res.Base {
		c.Logger.Info("Hostname expands to a different FQDN", "hostname", res.Base, "fqdn", res.FQDN)
	}

	return res, nil
}

// override reads the hostname from the environment file. Any failure means
// there is no override.
func (c *Chain) override(ctx context.Context, opts Options) string {
	if opts.OverrideFile == "" || opts.OverrideVariable == "" || c.Exec == nil {
		return ""
	}

	v, err := utilsys.SourceVariable(ctx, c.Exec, opts.OverrideFile, opts.OverrideVariable)
	if err != nil {
		c.Logger.V(1).Info("No hostname override", "file", opts.OverrideFile, "error", err.Error())

		return ""
	}

	return normalize(v)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}
