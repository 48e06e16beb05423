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

package certificate

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	utilsys "github.com/sergelogvinov/ce-host-network-check/pkg/utils/sys"

	utilexec "k8s.io/utils/exec"
)

const opensslBinary = "openssl"

// SubjectExtractor returns the subject distinguished name of a certificate file.
type SubjectExtractor interface {
	Subject(ctx context.Context, path string) (string, error)
}

// NewExtractor prefers the openssl command and falls back to parsing the
// certificate natively when it is not installed.
func NewExtractor(exec utilexec.Interface) SubjectExtractor {
	if _, err := exec.LookPath(opensslBinary); err != nil {
		return Native{}
	}

	return &OpenSSL{Exec: exec}
}

// OpenSSL extracts the subject with "openssl x509".
type OpenSSL struct {
	Exec   utilexec.Interface
	Binary string
}

var _ SubjectExtractor = &OpenSSL{}

func (o *OpenSSL) Subject(ctx context.Context, path string) (string, error) {
	binary := o.Binary
	if binary == "" {
		binary = opensslBinary
	}

	out, err := utilsys.Output(ctx, o.Exec, binary, "x509", "-in", path, "-noout", "-subject", "-nameopt", "compat")
	if err != nil {
		return "", err
	}

	if out == "" {
		return "", fmt.Errorf("%s returned an empty subject", binary)
	}

	return out, nil
}

// Native parses PEM or DER certificates with crypto/x509 and renders the
// subject in the slash separated form.
type Native struct{}

var _ SubjectExtractor = Native{}

var attributeNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "serialNumber",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"0.9.2342.19200300.100.1.1":  "UID",
	"0.9.2342.19200300.100.1.25": "DC",
	"1.2.840.113549.1.9.1":       "emailAddress",
}

func (Native) Subject(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	der := data
	if block, _ := pem.Decode(data); block != nil {
		der = block.Bytes
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "", fmt.Errorf("failed to parse certificate %s: %w", path, err)
	}

	var rdns pkix.RDNSequence
	if _, err := asn1.Unmarshal(cert.RawSubject, &rdns); err != nil {
		return "", fmt.Errorf("failed to parse certificate subject %s: %w", path, err)
	}

	var sb strings.Builder

	for _, rdn := range rdns {
		for _, atv := range rdn {
			name, ok := attributeNames[atv.Type.String()]
			if !ok {
				name = atv.Type.String()
			}

			fmt.Fprintf(&sb, "/%s=%v", name, atv.Value)
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("certificate %s has an empty subject", path)
	}

	return sb.String(), nil
}
