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

package sys

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	utilexec "k8s.io/utils/exec"
)

var variableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Output runs the command and returns its trimmed standard output.
func Output(ctx context.Context, exec utilexec.Interface, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s: %w", name, err)
	}

	return strings.TrimSpace(string(out)), nil
}

// SourceVariable sources a shell environment file and returns the value of
// one variable. An empty result means the variable is unset.
func SourceVariable(ctx context.Context, exec utilexec.Interface, file, variable string) (string, error) {
	if !variableName.MatchString(variable) {
		return "", fmt.Errorf("invalid shell variable name %q", variable)
	}

	if _, err := os.Stat(file); err != nil {
		return "", err
	}

	// The file path is passed as a positional argument, never interpolated.
	script := fmt.Sprintf(`. "$1" >/dev/null 2>&1 && printf '%%s' "${%s}"`, variable)

	return Output(ctx, exec, "sh", "-c", script, "sh", file)
}
