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

package diagnose

import (
	"github.com/sergelogvinov/ce-host-network-check/pkg/addrselect"
	"github.com/sergelogvinov/ce-host-network-check/pkg/config"
	"github.com/sergelogvinov/ce-host-network-check/pkg/hostname"
)

// Options are the service settings the check predicts the daemon behavior from.
type Options struct {
	// Interfaces selects the candidate bind addresses.
	Interfaces addrselect.Options
	// InterfaceRestricted is set when the interface pattern is configured explicitly.
	InterfaceRestricted bool
	// Hostname holds the hostname overrides.
	Hostname hostname.Options
	// CertificatePath is the host identity certificate.
	CertificatePath string
}

// OptionsFromConfig reads the check options from the service configuration.
func OptionsFromConfig(cfg config.Lookup) (Options, error) {
	all, err := config.GetBool(cfg, config.BindAllInterfaces)
	if err != nil {
		return Options{}, err
	}

	return Options{
		Interfaces: addrselect.Options{
			AllInterfaces: all,
			Pattern:       config.GetString(cfg, config.NetworkInterface),
		},
		InterfaceRestricted: !all && config.IsSet(cfg, config.NetworkInterface),
		Hostname: hostname.Options{
			Configured:       config.GetString(cfg, config.NetworkHostname),
			OverrideFile:     config.GetString(cfg, config.HostnameOverrideFile),
			OverrideVariable: config.GetString(cfg, config.HostnameOverrideVariable),
		},
		CertificatePath: config.GetString(cfg, config.DaemonCert),
	}, nil
}
