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

package client

import (
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/rook/poolsets/pkg/clusterd"
	"github.com/rook/poolsets/pkg/util/exec"
)

// RunAllCephCommandsInToolboxPod is the name of a toolbox pod. When set, every ceph command is run
// in that pod through kubectl instead of in the local container.
var RunAllCephCommandsInToolboxPod string

const (
	// AdminUsername is the name of the admin user
	AdminUsername = "client.admin"
	// CephTool is the name of the CLI tool for 'ceph'
	CephTool = "ceph"
	// Kubectl is the name of the CLI tool for 'kubectl'
	Kubectl = "kubectl"
)

// CephConfFilePath returns the location to the cluster's config file in the controller container.
func CephConfFilePath(configDir, clusterName string) string {
	confFile := fmt.Sprintf("%s.config", clusterName)
	return path.Join(configDir, clusterName, confFile)
}

// FinalizeCephCommandArgs builds the command line to be called
func FinalizeCephCommandArgs(command string, clusterInfo *ClusterInfo, args []string, configDir string) (string, []string) {
	timeout := strconv.Itoa(int(exec.CephCommandsTimeout.Seconds()))
	args = append(args, "--connect-timeout="+timeout)

	// If the command should be run inside the toolbox pod, include the kubectl args to call the toolbox
	if RunAllCephCommandsInToolboxPod != "" {
		toolArgs := []string{
			"exec", "-i", RunAllCephCommandsInToolboxPod, "-n", clusterInfo.Namespace,
			"--", "timeout", timeout, command,
		}
		return Kubectl, append(toolArgs, args...)
	}

	keyringFile := fmt.Sprintf("%s.keyring", clusterInfo.CephCred.Username)
	configArgs := []string{
		fmt.Sprintf("--cluster=%s", clusterInfo.Namespace),
		fmt.Sprintf("--conf=%s", CephConfFilePath(configDir, clusterInfo.Namespace)),
		fmt.Sprintf("--name=%s", clusterInfo.CephCred.Username),
		fmt.Sprintf("--keyring=%s", path.Join(configDir, clusterInfo.Namespace, keyringFile)),
	}

	return command, append(args, configArgs...)
}

// CephToolCommand is a single invocation of the ceph CLI
type CephToolCommand struct {
	context     *clusterd.Context
	clusterInfo *ClusterInfo
	tool        string
	args        []string
	timeout     time.Duration
	JsonOutput  bool
}

// NewCephCommand returns a ceph command that will request json output
func NewCephCommand(context *clusterd.Context, clusterInfo *ClusterInfo, args []string) *CephToolCommand {
	return &CephToolCommand{
		context:     context,
		tool:        CephTool,
		clusterInfo: clusterInfo,
		args:        args,
		JsonOutput:  true,
	}
}

func (c *CephToolCommand) run() ([]byte, error) {
	// Return if the context has been canceled
	if c.clusterInfo.Context != nil && c.clusterInfo.Context.Err() != nil {
		return nil, c.clusterInfo.Context.Err()
	}

	command, args := FinalizeCephCommandArgs(c.tool, c.clusterInfo, c.args, c.context.ConfigDir)
	if c.JsonOutput {
		args = append(args, "--format", "json")
	} else {
		args = append(args, "--format", "plain")
	}

	var output string
	var err error
	if c.timeout == 0 {
		output, err = c.context.Executor.ExecuteCommandWithOutput(command, args...)
	} else {
		output, err = c.context.Executor.ExecuteCommandWithTimeout(c.timeout, command, args...)
	}

	return []byte(output), err
}

// Run executes the command with the executor's default timeout
func (c *CephToolCommand) Run() ([]byte, error) {
	c.timeout = 0
	return c.run()
}

// RunWithTimeout executes the command, killing it after the given timeout
func (c *CephToolCommand) RunWithTimeout(timeout time.Duration) ([]byte, error) {
	c.timeout = timeout
	return c.run()
}
