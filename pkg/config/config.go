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

// Package config reads the service configuration the host check depends on.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// BindAllInterfaces makes the daemon consider every local interface.
	BindAllInterfaces = "BIND_ALL_INTERFACES"
	// NetworkInterface is the glob naming the interfaces or addresses to bind.
	NetworkInterface = "NETWORK_INTERFACE"
	// NetworkHostname overrides the hostname the daemon advertises.
	NetworkHostname = "NETWORK_HOSTNAME"
	// DaemonCert is the host identity certificate.
	DaemonCert = "GSI_DAEMON_CERT"
	// HostnameOverrideFile is the shell environment file holding a hostname override.
	HostnameOverrideFile = "HOSTNAME_OVERRIDE_FILE"
	// HostnameOverrideVariable is the variable read from HostnameOverrideFile.
	HostnameOverrideVariable = "HOSTNAME_OVERRIDE_VARIABLE"
	// DNSResolver selects the resolver backend, system or direct.
	DNSResolver = "DNS_RESOLVER"
	// ResolvConf is the resolver configuration used by the direct backend.
	ResolvConf = "RESOLV_CONF"
)

// Defaults for optional keys.
var Defaults = map[string]string{
	BindAllInterfaces:        "false",
	NetworkInterface:         "*",
	DaemonCert:               "/etc/grid-security/hostcert.pem",
	HostnameOverrideFile:     "/usr/share/condor-ce/condor_ce_env_bootstrap",
	HostnameOverrideVariable: "_CONDOR_NETWORK_HOSTNAME",
	DNSResolver:              "system",
	ResolvConf:               "/etc/resolv.conf",
}

// ErrInvalidValue is returned for values that cannot be converted.
var ErrInvalidValue = errors.New("invalid configuration value")

// Lookup is a read-only key/value view of the service configuration.
type Lookup interface {
	// Get returns the raw value and whether the key is explicitly set.
	Get(key string) (string, bool)
}

// Static is an in-memory configuration.
type Static map[string]string

var _ Lookup = Static{}

// Get looks the key up case-insensitively.
func (s Static) Get(key string) (string, bool) {
	if v, ok := s[key]; ok {
		return v, true
	}

	for k, v := range s {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}

	return "", false
}

// LoadFile reads a YAML mapping of configuration keys. A missing file yields
// an empty configuration.
func LoadFile(name string) (Static, error) {
	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return Static{}, nil
		}

		return nil, fmt.Errorf("failed to read config file %s: %w", name, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config file %s: %w", name, err)
	}

	cfg := make(Static, len(raw))

	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case map[string]any, []any:
			return nil, fmt.Errorf("%w: key %s in %s must be a scalar", ErrInvalidValue, k, name)
		default:
			cfg[strings.ToUpper(k)] = fmt.Sprint(val)
		}
	}

	return cfg, nil
}

// GetString returns the value of key, or its default when the key is unset
// or blank.
func GetString(l Lookup, key string) string {
	if v, ok := l.Get(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return Defaults[key]
}

// GetBool returns the boolean value of key, or its default.
func GetBool(l Lookup, key string) (bool, error) {
	v := GetString(l, key)

	switch strings.ToLower(v) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off", "":
		return false, nil
	}

	return false, fmt.Errorf("%w: %s = %q is not a boolean", ErrInvalidValue, key, v)
}

// IsSet reports whether key is explicitly configured with a non-empty value.
func IsSet(l Lookup, key string) bool {
	v, ok := l.Get(key)

	return ok && strings.TrimSpace(v) != ""
}
