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
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/go-ini/ini"
	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/clusterd"
)

const (
	// Msgr2port is the listening port of the messenger v2 protocol
	Msgr2port = 3300
	// Msgr1port is the listening port of the messenger v1 protocol
	Msgr1port = 6789

	adminKeyringTemplate = `
[%s]
	key = %s
	caps mds = "allow *"
	caps mon = "allow *"
	caps osd = "allow *"
	caps mgr = "allow *"
`
)

// GlobalConfig represents the [global] sections of Ceph's config file.
type GlobalConfig struct {
	FSID    string `ini:"fsid,omitempty"`
	MonHost string `ini:"mon host"`
}

// CephConfig represents an entire Ceph config including all sections.
type CephConfig struct {
	*GlobalConfig `ini:"global,omitempty"`
}

// GenerateConnectionConfig writes a ceph config and keyring under the config dir so the ceph CLI
// can reach the cluster described by the cluster info. It returns the path of the config file.
func GenerateConnectionConfig(context *clusterd.Context, clusterInfo *ClusterInfo) (string, error) {
	if len(clusterInfo.MonEndpoints) == 0 {
		return "", errors.New("no mon endpoints to generate the connection config")
	}
	root := path.Join(context.ConfigDir, clusterInfo.Namespace)
	if err := os.MkdirAll(root, 0o744); err != nil {
		return "", errors.Wrapf(err, "failed to create config directory at %q", root)
	}

	keyringPath := path.Join(root, fmt.Sprintf("%s.keyring", clusterInfo.CephCred.Username))
	keyring := fmt.Sprintf(adminKeyringTemplate, clusterInfo.CephCred.Username, clusterInfo.CephCred.Secret)
	if err := os.WriteFile(keyringPath, []byte(keyring), 0o600); err != nil {
		return "", errors.Wrapf(err, "failed to write keyring %q to %s", clusterInfo.CephCred.Username, root)
	}

	conf := &CephConfig{
		GlobalConfig: &GlobalConfig{
			FSID:    clusterInfo.FSID,
			MonHost: strings.Join(monHosts(clusterInfo.MonEndpoints), ","),
		},
	}
	configFile := ini.Empty()
	if err := ini.ReflectFrom(configFile, conf); err != nil {
		return "", errors.Wrap(err, "failed to create global config section")
	}
	s, err := configFile.NewSection(clusterInfo.CephCred.Username)
	if err != nil {
		return "", errors.Wrap(err, "failed to add client config section")
	}
	if _, err := s.NewKey("keyring", keyringPath); err != nil {
		return "", errors.Wrap(err, "failed to add keyring to client config section")
	}

	filePath := CephConfFilePath(context.ConfigDir, clusterInfo.Namespace)
	logger.Infof("writing config file %s", filePath)
	if err := configFile.SaveTo(filePath); err != nil {
		return "", errors.Wrapf(err, "failed to save config file %s", filePath)
	}
	return filePath, nil
}

// monHosts converts "ip:port" endpoints to the msgr2/msgr1 address vectors of the mon host setting
func monHosts(endpoints []string) []string {
	var hosts []string
	for _, endpoint := range endpoints {
		ip, port, err := net.SplitHostPort(endpoint)
		if err != nil {
			ip = endpoint
			port = strconv.Itoa(Msgr1port)
		}
		msgr2Endpoint := net.JoinHostPort(ip, strconv.Itoa(Msgr2port))
		if port == strconv.Itoa(Msgr2port) {
			hosts = append(hosts, "[v2:"+msgr2Endpoint+"]")
			continue
		}
		hosts = append(hosts, "[v2:"+msgr2Endpoint+",v1:"+net.JoinHostPort(ip, port)+"]")
	}
	return hosts
}

// GetMonConfigInt reads an integer option from the mon section of the central config database
func GetMonConfigInt(context *clusterd.Context, clusterInfo *ClusterInfo, key string) (int, error) {
	args := []string{"config", "get", "mon", key}
	buf, err := NewCephCommand(context, clusterInfo, args).Run()
	if err != nil {
		return 0, errors.Wrapf(err, "failed to get config %q", key)
	}

	// the json output of a single config value is the bare value, possibly quoted
	raw := strings.TrimSpace(string(buf))
	value := raw
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to parse config %q value %q", key, raw)
	}
	return n, nil
}
