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

package netif_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/sergelogvinov/ce-host-network-check/pkg/netif"
)

func testInterfaces() []netif.NetworkInterface {
	return []netif.NetworkInterface{
		netif.NewNetworkInterface("lo", 1, "127.0.0.1", "::1"),
		netif.NewNetworkInterface("eth0", 2, "192.0.2.10", "192.0.2.11", "2001:db8::10"),
		netif.NewNetworkInterface("wlan0", 3, "10.0.0.5"),
		netif.NewNetworkInterface("Eth1", 4, "198.51.100.7"),
	}
}

func names(ifaces []netif.NetworkInterface) []string {
	res := make([]string, 0, len(ifaces))
	for _, i := range ifaces {
		res = append(res, i.Name)
	}

	return res
}

func TestNewNetworkInterface(t *testing.T) {
	iface := netif.NewNetworkInterface("eth0", 2, "192.0.2.10", "192.0.2.10", "::ffff:192.0.2.11", "2001:db8::10", "bogus")

	assert.Equal(t, []string{"192.0.2.10", "192.0.2.11"}, iface.Family(netif.IPv4))
	assert.Equal(t, []string{"2001:db8::10"}, iface.Family(netif.IPv6))
	assert.Equal(t, []string{"192.0.2.10", "192.0.2.11", "2001:db8::10"}, iface.AllAddresses())

	empty := netif.NewNetworkInterface("dummy0", 9)
	assert.Empty(t, empty.Family(netif.IPv4))
	assert.Empty(t, empty.AllAddresses())
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		expect  []string
	}{
		{name: "all", pattern: "*", expect: []string{"lo", "eth0", "wlan0", "Eth1"}},
		{name: "eth glob", pattern: "eth*", expect: []string{"eth0"}},
		{name: "single char", pattern: "eth?", expect: []string{"eth0"}},
		{name: "character class", pattern: "[Ee]th[0-9]", expect: []string{"eth0", "Eth1"}},
		{name: "literal IPv4 of an alias", pattern: "192.0.2.11", expect: []string{"eth0"}},
		{name: "IPv4 glob", pattern: "10.*", expect: []string{"wlan0"}},
		{name: "IPv6 literal", pattern: "::1", expect: []string{"lo"}},
		{name: "negated class", pattern: "*[!0-9]", expect: []string{"lo"}},
		{name: "negated leading class", pattern: "[!l]*", expect: []string{"lo", "eth0", "wlan0", "Eth1"}},
		{name: "caret negation", pattern: "*[^0-9]", expect: []string{"lo"}},
		{name: "nothing", pattern: "bond*", expect: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := netif.Filter(testInterfaces(), tt.pattern)
			assert.NoError(t, err)

			if diff := cmp.Diff(tt.expect, names(res)); diff != "" {
				t.Errorf("unexpected interfaces (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilterBadPattern(t *testing.T) {
	_, err := netif.Filter(testInterfaces(), "eth[")
	assert.Error(t, err)
}

func TestMatch(t *testing.T) {
	iface := netif.NewNetworkInterface("eth0", 2, "192.0.2.10")

	ok, err := iface.Match("eth*")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = iface.Match("wlan*")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = iface.Match("ETH0")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = iface.Match("192.0.2.*")
	assert.NoError(t, err)
	assert.True(t, ok)

	bare := netif.NewNetworkInterface("eth0", 2)

	ok, err = bare.Match("[!l]*")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = bare.Match("[!e]*")
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = bare.Match("eth[!!]")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestSystemLister(t *testing.T) {
	ifaces, err := netif.SystemLister{}.Interfaces()
	assert.NoError(t, err)

	for _, i := range ifaces {
		assert.NotEmpty(t, i.Name)
	}
}
