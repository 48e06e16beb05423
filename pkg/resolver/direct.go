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

package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const (
	// KindSystem resolves through the OS resolver.
	KindSystem = "system"
	// KindDirect queries the configured nameservers directly.
	KindDirect = "direct"
)

// Direct queries the nameservers of a resolv.conf, bypassing hosts files and
// name service switch modules.
type Direct struct {
	Client *dns.Client
	Config *dns.ClientConfig
}

var _ Resolver = &Direct{}

// NewDirect builds a direct resolver from a resolv.conf file.
func NewDirect(resolvConf string) (*Direct, error) {
	conf, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolver config %s: %w", resolvConf, err)
	}

	if len(conf.Servers) == 0 {
		return nil, fmt.Errorf("no nameservers in %s", resolvConf)
	}

	return &Direct{
		Client: &dns.Client{Timeout: time.Duration(conf.Timeout) * time.Second},
		Config: conf,
	}, nil
}

// New returns the resolver backend of the given kind.
func New(kind, resolvConf string) (Resolver, error) {
	switch kind {
	case "", KindSystem:
		return NewSystem(), nil
	case KindDirect:
		return NewDirect(resolvConf)
	}

	return nil, fmt.Errorf("unknown resolver %q", kind)
}

func (d *Direct) LookupHost(ctx context.Context, host string) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}

	var lastErr error

	for _, name := range d.Config.NameList(host) {
		var addrs []string

		for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
			answer, err := d.exchange(ctx, name, qtype)
			if err != nil {
				lastErr = err

				continue
			}

			for _, rr := range answer {
				switch v := rr.(type) {
				case *dns.A:
					addrs = append(addrs, v.A.String())
				case *dns.AAAA:
					addrs = append(addrs, v.AAAA.String())
				}
			}
		}

		if len(addrs) > 0 {
			return addrs, nil
		}
	}

	if lastErr == nil {
		lastErr = &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}

	return nil, lastErr
}

func (d *Direct) LookupAddr(ctx context.Context, addr string) ([]string, error) {
	arpa, err := dns.ReverseAddr(addr)
	if err != nil {
		return nil, &net.DNSError{Err: "unrecognized address", Name: addr}
	}

	answer, err := d.exchange(ctx, arpa, dns.TypePTR)
	if err != nil {
		return nil, err
	}

	var names []string

	for _, rr := range answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			names = append(names, ptr.Ptr)
		}
	}

	if len(names) == 0 {
		return nil, &net.DNSError{Err: "no such host", Name: addr, IsNotFound: true}
	}

	return names, nil
}

func (d *Direct) exchange(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), qtype)
	m.RecursionDesired = true

	var lastErr error

	for _, server := range d.Config.Servers {
		in, _, err := d.Client.ExchangeContext(ctx, m, net.JoinHostPort(server, d.Config.Port))
		if err != nil {
			lastErr = err

			continue
		}

		switch in.Rcode {
		case dns.RcodeSuccess:
			return in.Answer, nil
		case dns.RcodeNameError:
			return nil, &net.DNSError{Err: "no such host", Name: name, Server: server, IsNotFound: true}
		default:
			lastErr = &net.DNSError{Err: dns.RcodeToString[in.Rcode], Name: name, Server: server}
		}
	}

	return nil, lastErr
}
