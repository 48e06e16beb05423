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
	"context"
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/sergelogvinov/ce-host-network-check/pkg/addrselect"
	"github.com/sergelogvinov/ce-host-network-check/pkg/certificate"
	"github.com/sergelogvinov/ce-host-network-check/pkg/config"
	"github.com/sergelogvinov/ce-host-network-check/pkg/hostname"
	"github.com/sergelogvinov/ce-host-network-check/pkg/netif"
	"github.com/sergelogvinov/ce-host-network-check/pkg/resolver"
	"github.com/sergelogvinov/ce-host-network-check/pkg/utils/ip"

	utilexec "k8s.io/utils/exec"
)

// Checker validates the address and name the daemon will use.
type Checker struct {
	Logger      logr.Logger
	Options     Options
	DNS         resolver.Resolver
	Interfaces  netif.Lister
	Hostname    *hostname.Chain
	Certificate *certificate.Validator
	Reporter    *Reporter
}

// NewChecker wires a checker against the local host from the service configuration.
func NewChecker(logger logr.Logger, cfg config.Lookup, out io.Writer) (*Checker, error) {
	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	dns, err := resolver.New(config.GetString(cfg, config.DNSResolver), config.GetString(cfg, config.ResolvConf))
	if err != nil {
		return nil, err
	}

	return &Checker{
		Logger:     logger,
		Options:    opts,
		DNS:        dns,
		Interfaces: netif.SystemLister{},
		Hostname:   hostname.NewChain(logger, dns),
		Certificate: &certificate.Validator{
			Logger:    logger,
			Extractor: certificate.NewExtractor(utilexec.New()),
		},
		Reporter: &Reporter{Out: out},
	}, nil
}

// run carries the values threaded from stage to stage.
type run struct {
	*Checker

	host        *hostname.Result
	forwardAddr string
	primary     *addrselect.Selection
}

type stage struct {
	name Stage
	fn   func(ctx context.Context) Result
}

// Run executes every stage in order. It returns nil when the configuration is
// sound and an error wrapping ErrCheckFailed when a stage failed.
func (c *Checker) Run(ctx context.Context) error {
	r := &run{Checker: c}

	stages := []stage{
		{StageHostname, r.checkHostname},
		{StageCertificate, r.checkCertificate},
		{StageFQDN, r.checkFQDN},
		{StagePrimaryAddress, r.checkPrimaryAddress},
		{StagePrimaryReverse, r.checkPrimaryReverse},
		{StagePrimaryForward, r.checkPrimaryForward},
	}

	for _, s := range stages {
		res := s.fn(ctx)

		c.Logger.V(1).Info("Stage finished", "stage", s.name, "status", res.Status.String())

		action, ok := Policy[res.Status]
		if !ok {
			action = Abort
		}

		switch action {
		case Continue:
			if res.Status == Warn {
				c.Reporter.Report(res)
			} else if res.Detail != "" {
				c.Logger.Info(res.Detail)
			}
		case Stop:
			c.Logger.Info(res.Detail)
			c.Logger.Info("Host network configuration looks correct")

			return nil
		case Abort:
			c.Reporter.Report(res)

			return fmt.Errorf("%w: %s: %s", ErrCheckFailed, s.name, res.Detail)
		}
	}

	c.Logger.Info("Host network configuration looks correct")

	return nil
}

func (r *run) checkHostname(ctx context.Context) Result {
	host, err := r.Hostname.Resolve(ctx, r.Options.Hostname)
	if err != nil {
		return failed("Cannot determine the hostname: %v", err)
	}

	r.host = host

	return passed("Using hostname %s (from %s), FQDN %s", host.Base, host.Source, host.FQDN)
}

func (r *run) checkCertificate(ctx context.Context) Result {
	path := r.Options.CertificatePath

	cn, err := r.Certificate.Validate(ctx, path, r.host.FQDN)

	switch {
	case err == nil:
		return passed("Certificate %s subject matches %s", path, cn)
	case errors.Is(err, certificate.ErrMismatch):
		return failed("The host certificate %s is issued to %s, which does not match the FQDN %s", path, cn, r.host.FQDN)
	case errors.Is(err, certificate.ErrUnreadable):
		return warned("Unable to read the host certificate %s, skipping the subject check: %v", path, err)
	default:
		return warned("Unable to extract the subject of the host certificate %s, skipping the subject check: %v", path, err)
	}
}

func (r *run) checkFQDN(ctx context.Context) Result {
	fqdn := r.host.FQDN

	addr, err := resolver.ForwardIPv4(ctx, r.DNS, fqdn)
	if err != nil {
		return failed("Unable to resolve %s to an IPv4 address: %v", fqdn, err)
	}

	r.forwardAddr = addr
	r.Logger.Info("Forward resolution", "fqdn", fqdn, "address", addr)

	back, err := r.reverseFQDN(ctx, addr)
	if err != nil {
		return failed("Unable to resolve %s (the address of %s) back to a hostname: %v", addr, fqdn, err)
	}

	r.Logger.Info("Backward resolution", "address", addr, "fqdn", back)

	if back != fqdn {
		return failed("DNS is not self-consistent: %s resolves to %s, which resolves back to %s", fqdn, addr, back)
	}

	return passed("DNS forward and backward resolution of %s is consistent", fqdn)
}

func (r *run) checkPrimaryAddress(_ context.Context) Result {
	sel, err := addrselect.PickPrimaryAddress(r.Logger, r.Interfaces, r.Options.Interfaces)
	if err != nil {
		if errors.Is(err, addrselect.ErrNoAddress) {
			return failed("No IPv4 address is available for %s, the service cannot bind to the network", r.Options.Interfaces)
		}

		return failed("Unable to select the primary address: %v", err)
	}

	r.primary = sel
	r.Logger.Info("Primary address", "address", sel.Address, "rank", sel.Rank.String(), "selection", r.Options.Interfaces.String())

	if r.Options.InterfaceRestricted && sel.Rank != ip.RankPublic {
		v, _ := ip.ParseIPv4(sel.Address)
		if subnet, ok := ip.SubnetOf(v); ok {
			first, last := subnet.Range()

			return warned("The service will bind to the %s address %s (%s-%s) selected by %s",
				sel.Rank, sel.Address, first, last, r.Options.Interfaces)
		}
	}

	return passed("The service will bind to %s", sel.Address)
}

func (r *run) checkPrimaryReverse(ctx context.Context) Result {
	addr, fqdn := r.primary.Address, r.host.FQDN

	if addr == r.forwardAddr {
		return verified("The primary address %s is the address of %s", addr, fqdn)
	}

	back, err := r.reverseFQDN(ctx, addr)
	if err != nil {
		return failed("The service will bind to %s, which does not resolve back to a hostname (%v). "+
			"Either accept that %s is not reachable by name, or set %s = %s to force binding to the address of %s",
			addr, err, addr, config.NetworkInterface, r.forwardAddr, fqdn)
	}

	if back != fqdn {
		return failed("The service will bind to %s, which resolves back to %s instead of %s. "+
			"Either accept the discrepancy, or set %s = %s to force binding to the address of %s",
			addr, back, fqdn, config.NetworkInterface, r.forwardAddr, fqdn)
	}

	return passed("The primary address %s resolves back to %s", addr, fqdn)
}

func (r *run) checkPrimaryForward(ctx context.Context) Result {
	addr, fqdn := r.primary.Address, r.host.FQDN

	addrs, err := resolver.ForwardIPv4Set(ctx, r.DNS, fqdn)
	if err != nil {
		return failed("Unable to resolve the addresses of %s: %v", fqdn, err)
	}

	r.Logger.Info("Forward resolution set", "fqdn", fqdn, "addresses", addrs)

	if !lo.Contains(addrs, addr) {
		return failed("The service will bind to %s, but %s resolves to %v. Clients using %s cannot reach the service; "+
			"set %s = %s to force binding to the address of %s",
			addr, fqdn, addrs, fqdn, config.NetworkInterface, r.forwardAddr, fqdn)
	}

	return passed("The primary address %s is one of the addresses of %s", addr, fqdn)
}

// reverseFQDN resolves addr back to a name and expands it.
func (r *run) reverseFQDN(ctx context.Context, addr string) (string, error) {
	name, err := resolver.ReverseName(ctx, r.DNS, addr)
	if err != nil {
		return "", err
	}

	return resolver.ExpandFQDN(ctx, r.DNS, name)
}
