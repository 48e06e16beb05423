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

package certificate_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergelogvinov/ce-host-network-check/pkg/certificate"

	utilexec "k8s.io/utils/exec"
	testingexec "k8s.io/utils/exec/testing"
)

type staticExtractor struct {
	subject string
	err     error
}

func (s staticExtractor) Subject(context.Context, string) (string, error) {
	return s.subject, s.err
}

func writeCert(t *testing.T, subject pkix.Name) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      subject,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "hostcert.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))

	return path
}

func TestCommonName(t *testing.T) {
	tests := []struct {
		name   string
		dn     string
		expect string
		found  bool
	}{
		{name: "slash form", dn: "/DC=org/DC=example/CN=ce.example.org", expect: "ce.example.org", found: true},
		{name: "subject prefix", dn: "subject= /DC=org/CN=ce.example.org", expect: "ce.example.org", found: true},
		{name: "last CN wins", dn: "/O=Grid/CN=host/CN=ce.example.org", expect: "ce.example.org", found: true},
		{name: "comma form", dn: "subject=C = US, O = Grid, CN = ce.example.org", expect: "ce.example.org", found: true},
		{name: "rfc2253", dn: "CN=ce.example.org,DC=example,DC=org", expect: "ce.example.org", found: true},
		{name: "no CN", dn: "/DC=org/O=Grid", found: false},
		{name: "empty", dn: "", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cn, found := certificate.CommonName(tt.dn)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.expect, cn)
		})
	}
}

func TestValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostcert.pem")
	require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o600))

	tests := []struct {
		name      string
		path      string
		extractor certificate.SubjectExtractor
		expectCN  string
		expectErr error
	}{
		{
			name:      "match",
			path:      path,
			extractor: staticExtractor{subject: "subject=/DC=org/DC=example/CN=CE.example.org"},
			expectCN:  "ce.example.org",
		},
		{
			name:      "mismatch",
			path:      path,
			extractor: staticExtractor{subject: "/DC=org/CN=ce-old.example.org"},
			expectCN:  "ce-old.example.org",
			expectErr: certificate.ErrMismatch,
		},
		{
			name:      "unreadable",
			path:      filepath.Join(t.TempDir(), "absent.pem"),
			extractor: staticExtractor{subject: "/CN=ce.example.org"},
			expectErr: certificate.ErrUnreadable,
		},
		{
			name:      "extraction failure",
			path:      path,
			extractor: staticExtractor{err: errors.New("unable to load certificate")},
			expectErr: certificate.ErrNoSubject,
		},
		{
			name:      "subject without CN",
			path:      path,
			extractor: staticExtractor{subject: "/O=Grid"},
			expectErr: certificate.ErrNoSubject,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &certificate.Validator{Logger: logr.Discard(), Extractor: tt.extractor}

			cn, err := v.Validate(context.Background(), tt.path, "ce.example.org")
			if tt.expectErr != nil {
				assert.ErrorIs(t, err, tt.expectErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.expectCN, cn)
		})
	}
}

func TestValidateMismatchMessage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hostcert.pem")
	require.NoError(t, os.WriteFile(path, []byte("placeholder"), 0o600))

	v := &certificate.Validator{Logger: logr.Discard(), Extractor: staticExtractor{subject: "/CN=ce-old.example.org"}}

	_, err := v.Validate(context.Background(), path, "ce.example.org")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ce-old.example.org")
	assert.Contains(t, err.Error(), "ce.example.org")
}

func TestNativeSubject(t *testing.T) {
	path := writeCert(t, pkix.Name{
		ExtraNames: []pkix.AttributeTypeAndValue{
			{Type: asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}, Value: "org"},
			{Type: asn1.ObjectIdentifier{0, 9, 2342, 19200300, 100, 1, 25}, Value: "example"},
			{Type: asn1.ObjectIdentifier{2, 5, 4, 3}, Value: "ce.example.org"},
		},
	})

	subject, err := certificate.Native{}.Subject(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/DC=org/DC=example/CN=ce.example.org", subject)

	cn, ok := certificate.CommonName(subject)
	assert.True(t, ok)
	assert.Equal(t, "ce.example.org", cn)
}

func TestNativeSubjectInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(path, []byte("not a certificate"), 0o600))

	_, err := certificate.Native{}.Subject(context.Background(), path)
	assert.Error(t, err)
}

func TestOpenSSLSubject(t *testing.T) {
	var gotArgs []string

	fcmd := &testingexec.FakeCmd{
		OutputScript: []testingexec.FakeAction{
			func() ([]byte, []byte, error) { return []byte("subject=/DC=org/CN=ce.example.org\n"), nil, nil },
			func() ([]byte, []byte, error) { return []byte("\n"), nil, nil },
		},
	}
	fexec := &testingexec.FakeExec{
		CommandScript: []testingexec.FakeCommandAction{
			func(cmd string, args ...string) utilexec.Cmd {
				gotArgs = append([]string{cmd}, args...)

				return testingexec.InitFakeCmd(fcmd, cmd, args...)
			},
			func(cmd string, args ...string) utilexec.Cmd { return testingexec.InitFakeCmd(fcmd, cmd, args...) },
		},
	}

	o := &certificate.OpenSSL{Exec: fexec}

	subject, err := o.Subject(context.Background(), "/etc/grid-security/hostcert.pem")
	assert.NoError(t, err)
	assert.Equal(t, "subject=/DC=org/CN=ce.example.org", subject)
	assert.Equal(t, []string{"openssl", "x509", "-in", "/etc/grid-security/hostcert.pem", "-noout", "-subject", "-nameopt", "compat"}, gotArgs)

	_, err = o.Subject(context.Background(), "/etc/grid-security/hostcert.pem")
	assert.Error(t, err)
}

func TestNewExtractor(t *testing.T) {
	missing := &testingexec.FakeExec{LookPathFunc: func(string) (string, error) { return "", errors.New("not found") }}
	assert.IsType(t, certificate.Native{}, certificate.NewExtractor(missing))

	present := &testingexec.FakeExec{LookPathFunc: func(string) (string, error) { return "/usr/bin/openssl", nil }}
	assert.IsType(t, &certificate.OpenSSL{}, certificate.NewExtractor(present))
}
