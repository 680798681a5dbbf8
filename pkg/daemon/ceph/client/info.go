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

// Package client wraps the ceph CLI commands read and issued by the poolset controller.
package client

import (
	"context"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
)

var logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "cephclient")

// ClusterInfo is the information needed to reach a particular Ceph cluster with the CLI.
type ClusterInfo struct {
	FSID      string
	CephCred  CephCred
	Namespace string
	// MonEndpoints are "ip:port" mon addresses, only needed to generate the connection config
	MonEndpoints []string
	// Context is checked before every command so a cancelled controller stops issuing them
	Context context.Context
}

// CephCred represents the Ceph cluster username and key used by the controller.
type CephCred struct {
	Username string `json:"name"`
	Secret   string `json:"secret"`
}

// AdminClusterInfo creates a ClusterInfo with the basic info to access the cluster as an admin.
func AdminClusterInfo(ctx context.Context, namespace string) *ClusterInfo {
	return &ClusterInfo{
		Namespace: namespace,
		CephCred: CephCred{
			Username: AdminUsername,
		},
		Context: ctx,
	}
}

// AdminTestClusterInfo creates a ClusterInfo with the basic info to access the cluster
// as an admin. This cluster info should only be used by unit tests.
func AdminTestClusterInfo(namespace string) *ClusterInfo {
	return AdminClusterInfo(context.TODO(), namespace)
}

// IsInitialized returns an error if the cluster info cannot be used to run commands
func (c *ClusterInfo) IsInitialized() error {
	if c == nil {
		return errors.New("clusterInfo is nil")
	}
	if c.Namespace == "" {
		return errors.New("cluster namespace is empty")
	}
	if c.CephCred.Username == "" {
		return errors.New("ceph username is empty")
	}
	if c.Context == nil {
		return errors.New("context is nil")
	}
	return c.Context.Err()
}
