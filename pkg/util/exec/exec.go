/*
Copyright 2016 The Rook Authors. All rights reserved.

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

// Package exec runs the ceph command line tools on behalf of the poolset controller.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
)

var (
	// CephCommandsTimeout is the timeout applied to every ceph command that does not carry its own
	CephCommandsTimeout = 15 * time.Second

	logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "exec")
)

// Executor is the main interface for all the exec commands
type Executor interface {
	ExecuteCommandWithOutput(command string, arg ...string) (string, error)
	ExecuteCommandWithTimeout(timeout time.Duration, command string, arg ...string) (string, error)
}

// CommandExecutor is the type of the Executor
type CommandExecutor struct{}

// ExecuteCommandWithOutput executes a command with output
func (c *CommandExecutor) ExecuteCommandWithOutput(command string, arg ...string) (string, error) {
	return c.ExecuteCommandWithTimeout(CephCommandsTimeout, command, arg...)
}

// ExecuteCommandWithTimeout starts a process and waits for its completion with timeout.
func (*CommandExecutor) ExecuteCommandWithTimeout(timeout time.Duration, command string, arg ...string) (string, error) {
	logCommand(command, arg...)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, arg...) //nolint:gosec // the ceph arguments are built by the controller
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := strings.TrimSpace(stdout.String())
	if ctx.Err() == context.DeadlineExceeded {
		return output, errors.Errorf("timeout waiting for process %s to return after %s", command, timeout)
	}
	if err != nil {
		return output, &CephCLIError{err: err, output: strings.TrimSpace(stderr.String())}
	}
	return output, nil
}

func logCommand(command string, arg ...string) {
	logger.Debugf("running command: %s %s", command, strings.Join(arg, " "))
}

// CephCLIError is returned when a ceph tool exits with an error. The output holds whatever the
// tool printed on stderr.
type CephCLIError struct {
	err    error
	output string
}

func (e *CephCLIError) Error() string {
	if e.output == "" {
		return e.err.Error()
	}
	return fmt.Sprintf("%v: %s", e.err, e.output)
}

// Unwrap returns the underlying process error
func (e *CephCLIError) Unwrap() error {
	return e.err
}
