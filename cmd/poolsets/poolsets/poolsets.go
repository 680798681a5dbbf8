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

// Package poolsets holds the flags and the bootstrap shared by the poolsets commands.
package poolsets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/coreos/pkg/capnslog"
	"github.com/pkg/errors"
	"github.com/rook/poolsets/pkg/client"
	"github.com/rook/poolsets/pkg/clusterd"
	cephclient "github.com/rook/poolsets/pkg/daemon/ceph/client"
	"github.com/rook/poolsets/pkg/operator/ceph/poolset"
	"github.com/rook/poolsets/pkg/operator/ceph/progress"
	"github.com/rook/poolsets/pkg/operator/k8sutil"
	"github.com/rook/poolsets/pkg/util"
	"github.com/rook/poolsets/pkg/util/exec"
	"github.com/rook/poolsets/pkg/util/flags"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	EnvVarPrefix   = "POOLSETS"
	AppName        = "rook-ceph-poolsets"
	terminationLog = "/dev/termination-log"

	outputPadding  = 3
	outputMinWidth = 10
	outputTabWidth = 0
	outputPadChar  = ' '
)

var RootCmd = &cobra.Command{
	Use:   "poolsets",
	Short: "Manages groups of ceph pools and their placement group counts",
}

var (
	// Config holds the autoscaler tunables, set from the flags
	Config = poolset.DefaultConfig()

	logLevelRaw    string
	configFile     string
	namespace      string
	kubeconfig     string
	configDir      string
	toolboxPod     string
	monEndpoints   []string
	fsid           string
	adminSecret    string
	serverEndpoint string

	logger = capnslog.NewPackageLogger("github.com/rook/poolsets", "poolsetscmd")
)

// Initialize the configuration parameters. The precedence from lowest to highest is:
//  1. default value (at compilation)
//  2. the --config file
//  3. environment variables (upper case, replace - with _, and poolsets prefix. For example, log-level is POOLSETS_LOG_LEVEL)
//  4. command line parameter
func init() {
	f := RootCmd.PersistentFlags()
	f.StringVar(&logLevelRaw, "log-level", "INFO", "logging level for logging/tracing output (valid values: ERROR,WARNING,INFO,DEBUG)")
	f.StringVar(&configFile, "config", "", "path of a yaml file of flag values")
	f.StringVar(&namespace, "namespace", k8sutil.GetNamespace(), "namespace of the ceph cluster and of the poolset registry")
	f.StringVar(&kubeconfig, "kubeconfig", "", "path to a kubeconfig, the in-cluster config is used when empty")
	f.StringVar(&configDir, "config-dir", k8sutil.DataDir, "directory holding the ceph config and keyring")
	f.StringVar(&toolboxPod, "toolbox-pod", "", "run the ceph commands in this pod with kubectl")
	f.StringSliceVar(&monEndpoints, "mon-endpoints", nil, "comma separated ip:port mon addresses. when set, a ceph config is generated in the config dir")
	f.StringVar(&fsid, "fsid", "", "fsid of the ceph cluster for the generated config")
	f.StringVar(&adminSecret, "admin-secret", "", "key of the admin user for the generated keyring")
	f.StringVar(&serverEndpoint, "server", "", "ip:port of a running 'poolsets serve'. commands run locally when empty")

	f.IntVar(&Config.TargetPGsPerOSD, "target-pgs-per-osd", Config.TargetPGsPerOSD, "ideal placement groups per osd, read from mon_target_pg_per_osd when 0")
	f.IntVar(&Config.MaxPGsPerOSD, "max-pgs-per-osd", Config.MaxPGsPerOSD, "placement groups per osd above which pool creation fails, read from mon_max_pg_per_osd when 0")
	f.IntVar(&Config.ReplicationSize, "replication-size", Config.ReplicationSize, "replica count of new pools")
	f.Float64Var(&Config.Threshold, "threshold", Config.Threshold, "factor between the current and ideal pg count before a pool is resized")
	f.DurationVar(&Config.Interval, "interval", Config.Interval, "interval between adjustment cycles")
	f.StringVar(&Config.DefaultRule, "default-rule", Config.DefaultRule, "crush rule of data pools")
	f.StringVar(&Config.SSDRule, "ssd-rule", Config.SSDRule, "crush rule created for metadata pools on ssds")
	f.StringVar(&Config.DefaultRoot, "default-root", Config.DefaultRoot, "crush root of new pools")
	f.StringVar(&Config.StoreName, "store-name", Config.StoreName, "config map holding the poolset registry")

	RootCmd.InitDefaultHelpCmd()
	RootCmd.InitDefaultHelpFlag()

	// load the environment variables
	flags.SetFlagsFromEnv(RootCmd.PersistentFlags(), EnvVarPrefix)

	RootCmd.PersistentPreRunE = loadConfigFile
}

// loadConfigFile fills the flags not set from the environment or the command line
func loadConfigFile(cmd *cobra.Command, args []string) error {
	if configFile == "" {
		return nil
	}
	return flags.SetFlagsFromFile(cmd.Flags(), configFile)
}

// SetLogLevel set log level based on provided log option.
func SetLogLevel() capnslog.LogLevel {
	return util.SetGlobalLogLevel(logLevelRaw, logger)
}

// LogStartupInfo log the arguments and all final flag values (environment variable overrides have already been taken into account)
func LogStartupInfo(cmdFlags *pflag.FlagSet) {
	flagValues := flags.GetFlagsAndValues(cmdFlags, "secret|keyring")
	logger.Infof("starting poolsets with arguments '%s'", strings.Join(os.Args, " "))
	logger.Infof("flag values: %s", strings.Join(flagValues, ", "))
}

// NewContext creates and initializes a cluster context
func NewContext() *clusterd.Context {
	var err error

	context := &clusterd.Context{
		Executor:  &exec.CommandExecutor{},
		ConfigDir: configDir,
		LogLevel:  SetLogLevel(),
	}

	// an empty kubeconfig path falls back to the in-cluster config
	context.KubeConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	TerminateOnError(err, "failed to get k8s cluster config")

	context.Clientset, err = kubernetes.NewForConfig(context.KubeConfig)
	TerminateOnError(err, "failed to create k8s clientset")

	return context
}

// NewClusterInfo returns the admin connection to the ceph cluster, writing its config first when
// the mon endpoints are given
func NewClusterInfo(ctx context.Context, context *clusterd.Context) (*cephclient.ClusterInfo, error) {
	clusterInfo := cephclient.AdminClusterInfo(ctx, namespace)
	clusterInfo.FSID = fsid
	clusterInfo.CephCred.Secret = adminSecret

	if toolboxPod != "" {
		cephclient.RunAllCephCommandsInToolboxPod = toolboxPod
		return clusterInfo, nil
	}
	if len(monEndpoints) > 0 {
		if adminSecret == "" {
			return nil, errors.New("admin-secret is required with mon-endpoints")
		}
		clusterInfo.MonEndpoints = monEndpoints
		if _, err := cephclient.GenerateConnectionConfig(context, clusterInfo); err != nil {
			return nil, errors.Wrap(err, "failed to generate ceph connection config")
		}
	}
	return clusterInfo, nil
}

// NewController builds a controller against the ceph cluster, keeping the registry in a config
// map and reporting progress as kubernetes events on it
func NewController(ctx context.Context, context *clusterd.Context) (*poolset.Controller, error) {
	clusterInfo, err := NewClusterInfo(ctx, context)
	if err != nil {
		return nil, err
	}

	store := k8sutil.NewConfigMapKVStore(namespace, context.Clientset, map[string]string{k8sutil.AppAttr: AppName})
	recorder := k8sutil.NewEventRecorder(context.Clientset, namespace, AppName)
	tracker := progress.NewTracker(k8sutil.NewEventReporter(recorder, namespace, Config.StoreName))
	return poolset.NewController(poolset.NewCephCluster(context, clusterInfo), store, tracker, Config), nil
}

// CommandRunner executes a poolset command and returns its result
type CommandRunner interface {
	Exec(ctx context.Context, cmd poolset.Command) (*poolset.Result, error)
}

// NewServerClient returns a client of the server given with --server
func NewServerClient() (*client.PoolSetRestClient, error) {
	if serverEndpoint == "" {
		return nil, errors.New("--server is required")
	}
	SetLogLevel()
	return client.NewPoolSetRestClient(client.GetRestURL(serverEndpoint), http.DefaultClient), nil
}

// NewCommandRunner returns a client of the running server if one is configured, or else a
// controller started against the cluster
func NewCommandRunner(ctx context.Context) (CommandRunner, error) {
	if serverEndpoint != "" {
		return NewServerClient()
	}

	controller, err := NewController(ctx, NewContext())
	if err != nil {
		return nil, err
	}
	if err := controller.Start(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to start poolset controller")
	}
	return controller, nil
}

func NewTableWriter(buffer io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(buffer, outputMinWidth, outputTabWidth, outputPadding, outputPadChar, 0)
}

// TerminateOnError terminates if err is not nil
func TerminateOnError(err error, msg string) {
	if err != nil {
		TerminateFatal(fmt.Errorf("%s: %+v", msg, err))
	}
}

// TerminateFatal terminates the process with an exit code of 1
// and writes the given reason to stderr and the termination log file.
func TerminateFatal(reason error) {
	fmt.Fprintln(os.Stderr, reason)

	file, err := os.OpenFile(terminationLog, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		logger.Debugf("failed to open termination log. %v", err)
	} else {
		if _, err = file.WriteString(reason.Error()); err != nil {
			fmt.Fprintln(os.Stderr, fmt.Errorf("failed to write message to termination log: %v", err))
		}
		file.Close()
	}

	os.Exit(1)
}
