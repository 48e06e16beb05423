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

// Package addrselect predicts the IPv4 address the service daemon binds to.
package addrselect

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/sergelogvinov/ce-host-network-check/pkg/netif"
	"github.com/sergelogvinov/ce-host-network-check/pkg/utils/ip"

	"k8s.io/apimachinery/pkg/util/sets"
)

// ErrNoAddress is returned when no candidate IPv4 address was found.
var ErrNoAddress = errors.New("no IPv4 address found")

// Options selects which interfaces are considered.
type Options struct {
	// AllInterfaces considers every local interface and ignores Pattern.
	AllInterfaces bool
	// Pattern is a glob matched against interface names and addresses.
	Pattern string
}

func (o Options) String() string {
	if o.AllInterfaces {
		return "all interfaces"
	}

	return fmt.Sprintf("interface pattern %q", o.Pattern)
}

// Pool holds candidate addresses keyed by rank tier.
type Pool map[ip.Rank]sets.Set[string]

// NewPool ranks every IPv4 address bound to ifaces.
func NewPool(ifaces []netif.NetworkInterface) Pool {
	p := Pool{}

	for _, iface := range ifaces {
		for _, addr := range iface.Family(netif.IPv4) {
			v, err := ip.ParseIPv4(addr)
			if err != nil {
				continue
			}

			rank := ip.Classify(v)
			if _, ok := p[rank]; !ok {
				p[rank] = sets.New[string]()
			}

			p[rank].Insert(addr)
		}
	}

	return p
}

// Len returns the number of addresses in the pool.
func (p Pool) Len() int {
	return lo.SumBy(lo.Values(p), func(s sets.Set[string]) int { return s.Len() })
}

// Best returns an address of the highest populated tier. The member chosen
// inside a tier is arbitrary.
func (p Pool) Best() (string, ip.Rank, bool) {
	ranks := lo.Filter(lo.Keys(p), func(r ip.Rank, _ int) bool { return p[r].Len() > 0 })
	if len(ranks) == 0 {
		return "", 0, false
	}

	top := lo.Max(ranks)

	return lo.Sample(p[top].UnsortedList()), top, true
}

// Selection is the outcome of a primary address pick.
type Selection struct {
	Address string
	Rank    ip.Rank
	// Candidates are all ranked addresses the pick was made from.
	Candidates Pool
}

// PickPrimaryAddress resolves the interface set and returns the address of
// the best routability tier.
func PickPrimaryAddress(logger logr.Logger, lister netif.Lister, opts Options) (*Selection, error) {
	ifaces, err := lister.Interfaces()
	if err != nil {
		return nil, err
	}

	if !opts.AllInterfaces {
		ifaces, err = netif.Filter(ifaces, opts.Pattern)
		if err != nil {
			return nil, err
		}
	}

	logger.V(1).Info("Interfaces considered for the primary address", "selection", opts.String(),
		"interfaces", lo.Map(ifaces, func(n netif.NetworkInterface, _ int) string { return n.Name }))

	pool := NewPool(ifaces)
	for rank, addrs := range pool {
		logger.V(1).Info("Candidate addresses", "rank", rank.String(), "addresses", sets.List(addrs))
	}

	addr, rank, ok := pool.Best()
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoAddress, opts)
	}

	return &Selection{
		Address:    addr,
		Rank:       rank,
		Candidates: pool,
	}, nil
}
