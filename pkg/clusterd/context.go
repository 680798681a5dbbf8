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

package clusterd

import (
	"github.com/coreos/pkg/capnslog"
	"github.com/rook/poolsets/pkg/util/exec"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// Context for loading or applying the configuration state of the poolset controller.
type Context struct {
	// Clientset is a connection to the core kubernetes API. It backs the durable poolset state.
	Clientset kubernetes.Interface

	// KubeConfig is the rest config the Clientset was built from
	KubeConfig *rest.Config

	// The implementation of executing a console command
	Executor exec.Executor

	// The root configuration directory holding the ceph config and keyring
	ConfigDir string

	// A value indicating the desired logging/tracing level
	LogLevel capnslog.LogLevel
}
