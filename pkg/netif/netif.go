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

// Package netif enumerates local network interfaces and their bound addresses.
package netif

import (
	"fmt"
	"net"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Family is an address family tag.
type Family string

const (
	IPv4 Family = "IPv4"
	IPv6 Family = "IPv6"
)

// ErrEnumerate is returned when the OS interface list cannot be read.
var ErrEnumerate = errors.New("failed to enumerate network interfaces")

// NetworkInterface is a local interface with its addresses grouped by family.
type NetworkInterface struct {
	Name      string
	Index     int
	Addresses map[Family]sets.Set[string]
}

// NewNetworkInterface builds an interface from a flat address list. Addresses
// which do not parse as IP are ignored.
func NewNetworkInterface(name string, index int, addrs ...string) NetworkInterface {
	iface := NetworkInterface{
		Name:      name,
		Index:     index,
		Addresses: map[Family]sets.Set[string]{},
	}

	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}

		iface.add(ip)
	}

	return iface
}

func (n *NetworkInterface) add(ip net.IP) {
	family := IPv6
	if v4 := ip.To4(); v4 != nil {
		family = IPv4
		ip = v4
	}

	if _, ok := n.Addresses[family]; !ok {
		n.Addresses[family] = sets.New[string]()
	}

	n.Addresses[family].Insert(ip.String())
}

// Family returns the addresses of the given family, sorted.
func (n NetworkInterface) Family(family Family) []string {
	return sets.List(n.Addresses[family])
}

// AllAddresses returns every bound address of every family, sorted.
func (n NetworkInterface) AllAddresses() []string {
	all := sets.New[string]()
	for _, s := range n.Addresses {
		all = all.Union(s)
	}

	return sets.List(all)
}

// Match reports whether the interface name, or any bound address, matches the
// glob pattern. Names match case-sensitively; addresses are matched as their
// literal dotted or colon form.
func (n NetworkInterface) Match(pattern string) (bool, error) {
	pattern = shellPattern(pattern)

	ok, err := path.Match(pattern, n.Name)
	if err != nil {
		return false, fmt.Errorf("invalid interface pattern %q: %w", pattern, err)
	}

	if ok {
		return true, nil
	}

	for _, addr := range n.AllAddresses() {
		if ok, _ := path.Match(pattern, addr); ok {
			return true, nil
		}
	}

	return false, nil
}

// Lister returns the local network interfaces.
type Lister interface {
	Interfaces() ([]NetworkInterface, error)
}

// SystemLister queries the operating system.
type SystemLister struct{}

var _ Lister = SystemLister{}

// Interfaces returns every local interface annotated with its addresses.
func (SystemLister) Interfaces() ([]NetworkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumerate, err)
	}

	var errs error

	res := make([]NetworkInterface, 0, len(ifaces))

	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("interface %s: %w", iface.Name, err))

			continue
		}

		n := NewNetworkInterface(iface.Name, iface.Index)

		for _, addr := range addrs {
			switch v := addr.(type) {
			case *net.IPNet:
				n.add(v.IP)
			case *net.IPAddr:
				n.add(v.IP)
			}
		}

		res = append(res, n)
	}

	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrEnumerate, errs)
	}

	return res, nil
}

// Filter returns the interfaces whose name or address matches pattern.
func Filter(ifaces []NetworkInterface, pattern string) ([]NetworkInterface, error) {
	if _, err := path.Match(shellPattern(pattern), ""); err != nil {
		return nil, fmt.Errorf("invalid interface pattern %q: %w", pattern, err)
	}

	return lo.Filter(ifaces, func(n NetworkInterface, _ int) bool {
		ok, _ := n.Match(pattern)

		return ok
	}), nil
}

// shellPattern rewrites the shell class negation "[!...]" into the "[^...]"
// form path.Match understands.
func shellPattern(pattern string) string {
	var sb strings.Builder

	inClass := false

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]

		switch {
		case c == '\\' && i+1 < len(pattern):
			sb.WriteByte(c)
			i++
			c = pattern[i]
		case c == '[' && !inClass:
			inClass = true

			sb.WriteByte(c)

			if i+1 < len(pattern) && pattern[i+1] == '!' {
				sb.WriteByte('^')
				i++
			}

			continue
		case c == ']' && inClass:
			inClass = false
		}

		sb.WriteByte(c)
	}

	return sb.String()
}
