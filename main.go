/*
Copyright 2021.

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
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/availability"
	"github.com/redhat-appstudio/autoconfig/pkg/cmd"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"github.com/redhat-appstudio/autoconfig/pkg/metrics"
	"github.com/redhat-appstudio/autoconfig/pkg/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cmd.LoadEnvFile(os.Args[1:], os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	args := cmd.ServerCliArgs{}
	arg.MustParse(&args)

	if err := logs.InitLoggers(args.LoggingOptions()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	setupLog := logs.Logger().WithName("setup")

	if err := config.SetupCustomValidations(config.CustomValidationOptions{AllowInsecureURLs: args.AllowInsecureURLs}); err != nil {
		setupLog.Error(err, "failed to initialize the validators")
		return 1
	}

	setupLog.Info("Starting the auto-configuration server",
		"instanceId", args.InstanceId,
		"storage", args.CredentialStorage,
		"configFile", args.ConfigFile,
		"apiAddr", args.ApiAddr)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = logs.IntoContext(ctx, logs.Logger().WithValues("instanceId", args.InstanceId))

	if err := metrics.RegisterCommonMetrics(prometheus.DefaultRegisterer); err != nil {
		setupLog.Error(err, "failed to register the metrics")
		return 1
	}

	cfg, err := cmd.LoadConfiguration(&args.CommonCliArgs)
	if err != nil {
		setupLog.Error(err, "failed to load the configuration")
		return 1
	}

	storage, err := cmd.CreateInitializedCredentialStorage(ctx, prometheus.DefaultRegisterer, &args.CommonCliArgs)
	if err != nil {
		setupLog.Error(err, "failed to initialize the credential storage")
		return 1
	}

	asm, err := cmd.CreateAssembler(ctx, &args.CommonCliArgs, &cfg, storage)
	if err != nil {
		setupLog.Error(err, "failed to create the resources")
		return 1
	}
	defer func() {
		if err := asm.Close(context.Background()); err != nil {
			setupLog.Error(err, "failed to close the data sources")
		}
	}()

	if args.Deploy != "" {
		if err := cmd.DeployOnce(ctx, asm, args.Deploy, os.Stdout); err != nil {
			setupLog.Error(err, "deployment failed")
			return 1
		}
		return 0
	}

	watchdog := &availability.SystemsWatchdog{
		Interval: args.WatchdogInterval,
		Checkers: []availability.Checker{
			&availability.StorageWatchdog{Storage: storage},
			&availability.DataSourceWatchdog{DataSources: asm.DataSources},
		},
	}
	if err := watchdog.Start(ctx); err != nil {
		setupLog.Error(err, "failed to start the availability watchdog")
		return 1
	}

	srv := &server.Server{Assembler: asm, Ready: watchdog.Ready}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, args.ApiAddr)
	})
	if args.MetricsAddr != "" {
		g.Go(func() error {
			return srv.ListenAndServeMetrics(gctx, args.MetricsAddr)
		})
	}

	if err := g.Wait(); err != nil {
		setupLog.Error(err, "problem running the server")
		return 1
	}
	return 0
}
