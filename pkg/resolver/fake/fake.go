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

// Package fake provides an in-memory resolver for tests.
package fake

import (
	"context"
	"net"
	"strings"
)

// Resolver answers from static forward and reverse tables.
type Resolver struct {
	// Hosts maps a name to its addresses.
	Hosts map[string][]string
	// Addrs maps an address to its reverse names.
	Addrs map[string][]string

	// Calls records every lookup issued, in order.
	Calls []string
}

func (r *Resolver) LookupHost(_ context.Context, host string) ([]string, error) {
	r.Calls = append(r.Calls, "host:"+host)

	key := strings.ToLower(strings.TrimSuffix(host, "."))
	if addrs, ok := r.Hosts[key]; ok && len(addrs) > 0 {
		return addrs, nil
	}

	return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
}

func (r *Resolver) LookupAddr(_ context.Context, addr string) ([]string, error) {
	r.Calls = append(r.Calls, "addr:"+addr)

	if names, ok := r.Addrs[addr]; ok && len(names) > 0 {
		return names, nil
	}

	return nil, &net.DNSError{Err: "no such host", Name: addr, IsNotFound: true}
}
