/*
Copyright 2019 The Rook Authors. All rights reserved.

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

package poolset

// Command is a request handled by the controller's loop
type Command interface {
	commandName() string
}

// CreateCommand creates a poolset for an application
type CreateCommand struct {
	Application string
	PoolSet     string
	// Size is a percentage of the crush root ("50%") or a byte count ("100GB")
	Size string
}

// ListCommand dumps the poolsets
type ListCommand struct{}

// SetCommand changes a property of a poolset. Only "policy" is supported.
type SetCommand struct {
	PoolSet string
	Key     string
	Value   string
}

// DeleteCommand deletes a poolset and its pools
type DeleteCommand struct {
	PoolSet string
}

// StatusCommand reports the resources of the crush subtrees and the pending adjustments
type StatusCommand struct{}

func NewCreateCommand(application, poolSet, size string) *CreateCommand {
	return &CreateCommand{Application: application, PoolSet: poolSet, Size: size}
}

func NewListCommand() *ListCommand {
	return &ListCommand{}
}

// NewSetPolicyCommand sets the policy of a poolset
func NewSetPolicyCommand(poolSet, policy string) *SetCommand {
	return &SetCommand{PoolSet: poolSet, Key: PolicyKey, Value: policy}
}

func NewDeleteCommand(poolSet string) *DeleteCommand {
	return &DeleteCommand{PoolSet: poolSet}
}

func NewStatusCommand() *StatusCommand {
	return &StatusCommand{}
}

// PolicyKey is the poolset property holding the policy
const PolicyKey = "policy"

func (c *CreateCommand) commandName() string { return "poolset create" }
func (c *ListCommand) commandName() string   { return "poolset ls" }
func (c *SetCommand) commandName() string    { return "poolset set" }
func (c *DeleteCommand) commandName() string { return "poolset delete" }
func (c *StatusCommand) commandName() string { return "poolset resource status" }

// Result is the output of a command
type Result struct {
	Message  string        `json:"message,omitempty"`
	PoolSets []*PoolSet    `json:"poolsets,omitempty"`
	Status   *StatusReport `json:"status,omitempty"`
}
