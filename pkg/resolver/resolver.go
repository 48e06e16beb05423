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

// Package resolver wraps forward and reverse DNS resolution.
package resolver

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var (
	// ErrNoIPv4 is returned when a name has no IPv4 address.
	ErrNoIPv4 = errors.New("no IPv4 address")
	// ErrNoName is returned when an address has no reverse record.
	ErrNoName = errors.New("no reverse DNS name")
)

// Resolver performs DNS lookups.
type Resolver interface {
	// LookupHost returns the addresses of host.
	LookupHost(ctx context.Context, host string) ([]string, error)
	// LookupAddr returns the names mapping to addr.
	LookupAddr(ctx context.Context, addr string) ([]string, error)
}

// System uses the OS resolution path.
type System struct {
	Resolver *net.Resolver
}

var _ Resolver = &System{}

// NewSystem returns a resolver backed by net.DefaultResolver.
func NewSystem() *System {
	return &System{Resolver: net.DefaultResolver}
}

func (s *System) LookupHost(ctx context.Context, host string) ([]string, error) {
	return s.Resolver.LookupHost(ctx, host)
}

func (s *System) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	return s.Resolver.LookupAddr(ctx, addr)
}

// ForwardIPv4Set returns every IPv4 address of name, in resolver order.
func ForwardIPv4Set(ctx context.Context, r Resolver, name string) ([]string, error) {
	addrs, err := r.LookupHost(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, err)
	}

	v4 := lo.Uniq(lo.FilterMap(addrs, func(a string, _ int) (string, bool) {
		ip := net.ParseIP(a).To4()
		if ip == nil {
			return "", false
		}

		return ip.String(), true
	}))

	if len(v4) == 0 {
		return nil, fmt.Errorf("failed to resolve %s: %w", name, ErrNoIPv4)
	}

	return v4, nil
}

// ForwardIPv4 returns the first IPv4 address of name.
func ForwardIPv4(ctx context.Context, r Resolver, name string) (string, error) {
	addrs, err := ForwardIPv4Set(ctx, r, name)
	if err != nil {
		return "", err
	}

	return addrs[0], nil
}

// ReverseNames returns the names of addr without trailing dots, lower-cased.
func ReverseNames(ctx context.Context, r Resolver, addr string) ([]string, error) {
	names, err := r.LookupAddr(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to reverse resolve %s: %w", addr, err)
	}

	names = lo.Uniq(lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = canonical(n)

		return n, n != ""
	}))

	if len(names) == 0 {
		return nil, fmt.Errorf("failed to reverse resolve %s: %w", addr, ErrNoName)
	}

	return names, nil
}

// ReverseName returns the primary reverse name of addr.
func ReverseName(ctx context.Context, r Resolver, addr string) (string, error) {
	names, err := ReverseNames(ctx, r, addr)
	if err != nil {
		return "", err
	}

	return names[0], nil
}

// ExpandFQDN returns the fully qualified form of name. The name is resolved
// to its first IPv4 address which is resolved back; the first reverse name containing a
// dot wins, otherwise the primary reverse name is returned. On error name is returned
// together with the lookup failure.
func ExpandFQDN(ctx context.Context, r Resolver, name string) (string, error) {
	name = canonical(name)

	addr := name
	if net.ParseIP(name) == nil {
		v4, err := ForwardIPv4(ctx, r, name)
		if err != nil {
			return name, err
		}

		addr = v4
	}

	names, err := ReverseNames(ctx, r, addr)
	if err != nil {
		return name, err
	}

	if fqdn, ok := lo.Find(names, func(n string) bool { return strings.Contains(n, ".") }); ok {
		return fqdn, nil
	}

	return names[0], nil
}

func canonical(name string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(name), "."))
}
