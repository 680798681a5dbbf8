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

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rook/poolsets/cmd/poolsets/poolsets"
	"github.com/rook/poolsets/pkg/api"
	"github.com/rook/poolsets/pkg/ceph/collectors"
	"github.com/rook/poolsets/pkg/util"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout = 10 * time.Second
	startRetries    = 10
	startRetryDelay = 15 * time.Second
)

var listenAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the poolset control loop, serving the poolset commands and metrics over http",
	Args:  cobra.NoArgs,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddress, "listen", ":8124", "address of the command and metrics server")
	serveCmd.RunE = startServe
}

func startServe(cmd *cobra.Command, args []string) error {
	poolsets.SetLogLevel()
	poolsets.LogStartupInfo(cmd.Flags())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolsets.TerminateOnError(poolsets.Config.Validate(), "invalid poolset configuration")
	controller, err := poolsets.NewController(ctx, poolsets.NewContext())
	poolsets.TerminateOnError(err, "failed to create poolset controller")

	// the mons may not be reachable yet when the server starts with the cluster
	err = util.RetryWithContext(ctx, startRetries, startRetryDelay, func() error {
		return controller.Start(ctx)
	})
	poolsets.TerminateOnError(err, "failed to start poolset controller")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewPoolSetCollector(controller))
	server := &http.Server{
		Addr:              listenAddress,
		Handler:           api.NewRouter(api.NewHandler(controller).GetRoutes(), registry),
		ReadHeaderTimeout: shutdownTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return controller.Run(ctx)
	})
	group.Go(func() error {
		logger.Infof("serving poolset commands and metrics on %s", listenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrapf(err, "failed to serve on %s", listenAddress)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		return errors.Wrap(err, "poolset server failed")
	}
	logger.Infof("poolset server stopped")
	return nil
}
