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

// Package diagnose runs the host network self check of the service.
package diagnose

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// ErrCheckFailed is returned when a stage hit a fatal diagnostic.
var ErrCheckFailed = errors.New("host network check failed")

// Status is the outcome of a stage.
type Status int

const (
	// Pass means the stage found nothing wrong.
	Pass Status = iota
	// Warn means the stage found a non-fatal problem.
	Warn
	// Fail means the configuration cannot work.
	Fail
	// Verified means the configuration is proven sound, later stages are moot.
	Verified
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	case Verified:
		return "verified"
	}

	return fmt.Sprintf("status(%d)", int(s))
}

// Action tells the run what to do after a stage.
type Action int

const (
	Continue Action = iota
	Stop
	Abort
)

// Policy maps stage outcomes to run continuation.
var Policy = map[Status]Action{
	Pass:     Continue,
	Warn:     Continue,
	Fail:     Abort,
	Verified: Stop,
}

// Stage names a step of the check.
type Stage string

const (
	StageHostname       Stage = "hostname"
	StageCertificate    Stage = "certificate"
	StageFQDN           Stage = "fqdn-consistency"
	StagePrimaryAddress Stage = "primary-address"
	StagePrimaryReverse Stage = "primary-reverse"
	StagePrimaryForward Stage = "primary-forward"
)

// Result is the outcome of one stage.
type Result struct {
	Status Status
	Detail string
}

func passed(format string, args ...any) Result {
	return Result{Status: Pass, Detail: fmt.Sprintf(format, args...)}
}

func warned(format string, args ...any) Result {
	return Result{Status: Warn, Detail: fmt.Sprintf(format, args...)}
}

func failed(format string, args ...any) Result {
	return Result{Status: Fail, Detail: fmt.Sprintf(format, args...)}
}

func verified(format string, args ...any) Result {
	return Result{Status: Verified, Detail: fmt.Sprintf(format, args...)}
}

// Reporter prints warnings and fatal diagnostics for the operator.
type Reporter struct {
	Out io.Writer
}

func (r *Reporter) Report(res Result) {
	if r == nil || r.Out == nil {
		return
	}

	switch res.Status {
	case Warn:
		fmt.Fprintf(r.Out, "WARNING: %s\n", res.Detail)
	case Fail:
		fmt.Fprintf(r.Out, "ERROR: %s\n", res.Detail)
	}
}
