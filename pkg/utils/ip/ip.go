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

// Package ip classifies IPv4 addresses by routability scope.
package ip

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"net"

	gocidr "github.com/apparentlymart/go-cidr/cidr"
)

// Rank is the routability tier of an address, higher is preferred.
type Rank int

const (
	RankLoopback Rank = 1
	RankPrivate  Rank = 2
	RankPublic   Rank = 3
)

func (r Rank) String() string {
	switch r {
	case RankLoopback:
		return "loopback"
	case RankPrivate:
		return "private"
	case RankPublic:
		return "public"
	}

	return fmt.Sprintf("rank(%d)", int(r))
}

// Subnet is an IPv4 network number with its netmask.
type Subnet struct {
	Name    string
	Network uint32
	Mask    uint32
}

var (
	// LoopbackSubnet is 127.0.0.0/8.
	LoopbackSubnet = MustParseSubnet("loopback", "127.0.0.0/8")

	// PrivateSubnets are the RFC 1918 ranges.
	PrivateSubnets = []Subnet{
		MustParseSubnet("private", "10.0.0.0/8"),
		MustParseSubnet("private", "172.16.0.0/12"),
		MustParseSubnet("private", "192.168.0.0/16"),
	}
)

// ParseSubnet parses an IPv4 CIDR into a Subnet.
func ParseSubnet(name, cidr string) (Subnet, error) {
	_, ipnet, err := net.ParseCIDR(cidr)
	if err != nil {
		return Subnet{}, err
	}

	network, ok := ToUint32(ipnet.IP)
	if !ok || len(ipnet.Mask) != net.IPv4len {
		return Subnet{}, fmt.Errorf("subnet %s is not an IPv4 network", cidr)
	}

	return Subnet{
		Name:    name,
		Network: network,
		Mask:    binary.BigEndian.Uint32(ipnet.Mask),
	}, nil
}

// MustParseSubnet is like ParseSubnet but panics on a malformed CIDR.
func MustParseSubnet(name, cidr string) Subnet {
	s, err := ParseSubnet(name, cidr)
	if err != nil {
		panic(err)
	}

	return s
}

// Contains reports whether addr belongs to the subnet.
func (s Subnet) Contains(addr uint32) bool {
	return AddrInNetwork(addr, s.Network, s.Mask)
}

// IPNet returns the subnet as a net.IPNet.
func (s Subnet) IPNet() *net.IPNet {
	mask := make(net.IPMask, net.IPv4len)
	binary.BigEndian.PutUint32(mask, s.Mask)

	return &net.IPNet{IP: ToIP(s.Network & s.Mask), Mask: mask}
}

// Range returns the first and the last address of the subnet.
func (s Subnet) Range() (net.IP, net.IP) {
	return gocidr.AddressRange(s.IPNet())
}

func (s Subnet) String() string {
	return fmt.Sprintf("%s/%d", ToIP(s.Network&s.Mask), bits.OnesCount32(s.Mask))
}

// AddrInNetwork reports whether addr and network are equal under mask.
func AddrInNetwork(addr, network, mask uint32) bool {
	return addr&mask == network&mask
}

// ToUint32 converts an IPv4 (or IPv4-mapped IPv6) address to its 32-bit value.
func ToUint32(ip net.IP) (uint32, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}

	return binary.BigEndian.Uint32(v4), true
}

// ToIP converts a 32-bit value to an IPv4 address.
func ToIP(v uint32) net.IP {
	ip := make(net.IP, net.IPv4len)
	binary.BigEndian.PutUint32(ip, v)

	return ip
}

// ParseIPv4 parses a dotted quad into its 32-bit value.
func ParseIPv4(s string) (uint32, error) {
	v, ok := ToUint32(net.ParseIP(s))
	if !ok {
		return 0, fmt.Errorf("%q is not an IPv4 address", s)
	}

	return v, nil
}

// IsLoopback reports whether addr is in 127.0.0.0/8.
func IsLoopback(addr uint32) bool {
	return LoopbackSubnet.Contains(addr)
}

// IsPrivate reports whether addr is in one of the RFC 1918 ranges.
func IsPrivate(addr uint32) bool {
	_, ok := privateSubnet(addr)

	return ok
}

// Classify returns the rank tier of addr. Loopback and private checks take
// precedence over the public default.
func Classify(addr uint32) Rank {
	switch {
	case IsLoopback(addr):
		return RankLoopback
	case IsPrivate(addr):
		return RankPrivate
	}

	return RankPublic
}

// SubnetOf returns the loopback or private subnet holding addr.
func SubnetOf(addr uint32) (Subnet, bool) {
	if IsLoopback(addr) {
		return LoopbackSubnet, true
	}

	return privateSubnet(addr)
}

func privateSubnet(addr uint32) (Subnet, bool) {
	for _, s := range PrivateSubnets {
		if s.Contains(addr) {
			return s, true
		}
	}

	return Subnet{}, false
}
