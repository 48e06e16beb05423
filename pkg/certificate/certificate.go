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

// Package certificate checks the host identity certificate against the FQDN.
package certificate

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

var (
	// ErrUnreadable is returned when the certificate file cannot be read.
	ErrUnreadable = errors.New("certificate is not readable")
	// ErrNoSubject is returned when no subject could be extracted.
	ErrNoSubject = errors.New("could not extract certificate subject")
	// ErrMismatch is returned when the subject CN differs from the FQDN.
	ErrMismatch = errors.New("certificate subject does not match the hostname")
)

// Validator compares the certificate subject common name with the FQDN.
type Validator struct {
	Logger    logr.Logger
	Extractor SubjectExtractor
}

// Validate returns the lower-cased subject common name of the certificate
// at path. It fails with ErrUnreadable or ErrNoSubject when the subject is
// unavailable, and ErrMismatch when it names another host.
func (v *Validator) Validate(ctx context.Context, path, fqdn string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUnreadable, path, err)
	}

	_ = f.Close()

	subject, err := v.Extractor.Subject(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%w from %s: %w", ErrNoSubject, path, err)
	}

	v.Logger.Info("Certificate subject", "path", path, "subject", subject)

	cn, ok := CommonName(subject)
	if !ok {
		return "", fmt.Errorf("%w from %s: no CN in %q", ErrNoSubject, path, subject)
	}

	cn = strings.ToLower(cn)
	if cn != fqdn {
		return cn, fmt.Errorf("%w: the certificate %s is issued to %s, but the hostname is %s", ErrMismatch, path, cn, fqdn)
	}

	return cn, nil
}

// CommonName returns the last CN component of a distinguished name. Slash
// separated (/DC=org/CN=host) and comma separated (CN = host, O = org) forms
// are accepted, with or without a leading "subject=".
func CommonName(dn string) (string, bool) {
	dn = strings.TrimSpace(dn)
	if rest, ok := cutPrefixFold(dn, "subject="); ok {
		dn = strings.TrimSpace(rest)
	}

	sep := ","
	if strings.HasPrefix(dn, "/") {
		sep = "/"
	}

	cn, found := "", false

	for part := range strings.SplitSeq(dn, sep) {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}

		if strings.EqualFold(strings.TrimSpace(key), "CN") {
			if value = strings.TrimSpace(value); value != "" {
				cn, found = value, true
			}
		}
	}

	return cn, found
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}

	return s, false
}
