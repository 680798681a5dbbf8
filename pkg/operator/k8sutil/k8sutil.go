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

// Package k8sutil for Kubernetes helpers.
package k8sutil

import (
	"os"

	"github.com/coreos/pkg/capnslog"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "op-k8sutil")

const (
	// DefaultNamespace for the cluster
	DefaultNamespace = "rook-ceph"
	// DataDir folder
	DataDir = "/var/lib/rook"
	// PodNamespaceEnvVar is the env variable for getting the pod namespace via downward api
	PodNamespaceEnvVar = "POD_NAMESPACE"
	// AppAttr is the label key of the application owning a resource
	AppAttr = "app"
)

// GetNamespace returns the namespace from the downward api, or the default when not running in a pod
func GetNamespace() string {
	if ns := os.Getenv(PodNamespaceEnvVar); ns != "" {
		return ns
	}
	return DefaultNamespace
}
