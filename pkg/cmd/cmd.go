//
// Copyright (c) 2021 Red Hat, Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/assembler"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/awsstorage/awscli"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/memorystorage"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/metrics"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/mongostorage/mongocli"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/vaultstorage/vaultcli"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"gopkg.in/yaml.v3"
)

var (
	errUnsupportedCredentialStorage = errors.New("unsupported credential storage type")
	errNilCredentialStorage         = errors.New("nil credential storage")
)

const envFileArg = "--env-file"

// LoadEnvFile loads the environment variables from the file passed by the --env-file argument (or named by
// the AUTOCONFIG_ENV_FILE variable) so that they are visible to the argument parser. The variables already
// present in the environment are not overridden.
func LoadEnvFile(argv []string, getenv func(string) string) error {
	path := getenv("AUTOCONFIG_ENV_FILE")
	for i, a := range argv {
		if a == envFileArg && i+1 < len(argv) {
			path = argv[i+1]
		} else if strings.HasPrefix(a, envFileArg+"=") {
			path = strings.TrimPrefix(a, envFileArg+"=")
		}
	}

	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load the environment file %s: %w", path, err)
	}
	return nil
}

// CreateInitializedCredentialStorage creates the credential storage of the configured type, wraps it in the metrics
// collecting decorator and initializes it.
func CreateInitializedCredentialStorage(ctx context.Context, registerer prometheus.Registerer, args *CommonCliArgs) (credentialstorage.CredentialStorage, error) {
	var storage credentialstorage.CredentialStorage
	var err error

	switch args.CredentialStorage {
	case VaultCredentialStorage:
		storage, err = vaultcli.CreateVaultStorage(&args.VaultCliArgs, registerer)
	case AWSCredentialStorage:
		storage, err = awscli.NewAwsCredentialStorage(ctx, args.InstanceId, &args.AWSCliArgs, registerer)
	case MongoCredentialStorage:
		storage = mongocli.CreateMongoStorage(&args.MongoCliArgs)
	case InMemoryCredentialStorage:
		storage = &memorystorage.MemoryStorage{}
	default:
		return nil, fmt.Errorf("%w '%s'", errUnsupportedCredentialStorage, args.CredentialStorage)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create the credential storage '%s': %w", args.CredentialStorage, err)
	}

	if storage == nil {
		return nil, fmt.Errorf("%w: '%s'", errNilCredentialStorage, args.CredentialStorage)
	}

	if registerer != nil {
		storage = &metrics.MeteredCredentialStorage{
			CredentialStorage: storage,
			StorageType:       string(args.CredentialStorage),
			MetricsRegisterer: registerer,
		}
	}

	if err = storage.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize the credential storage '%s': %w", args.CredentialStorage, err)
	}

	return storage, nil
}

// LoadConfiguration reads the server configuration file, if any.
func LoadConfiguration(args *CommonCliArgs) (config.ServerConfiguration, error) {
	if args.ConfigFile == "" {
		return config.ServerConfiguration{}, nil
	}
	//nolint:wrapcheck // the config errors are descriptive enough
	return config.LoadFrom(args.ConfigFile)
}

// CreateAssembler creates the assembler over the credential storage and creates the configured resources.
func CreateAssembler(ctx context.Context, args *CommonCliArgs, cfg *config.ServerConfiguration, storage credentialstorage.CredentialStorage) (*assembler.Assembler, error) {
	opts := assembler.Options{
		AutoCreate:        args.AutoCreate || cfg.AutoCreateResources,
		VerifyConnections: args.VerifyConnections || cfg.VerifyConnections,
	}
	if storage != nil {
		opts.Credentials = credentialstorage.NewJSONSerializingCredentialStorage(storage)
	}

	asm, err := assembler.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create the assembler: %w", err)
	}

	if err := asm.Sync(ctx, cfg.Resources); err != nil {
		_ = asm.Close(ctx)
		return nil, fmt.Errorf("failed to create the configured resources: %w", err)
	}

	logs.FromContext(ctx).Info("resources created", "count", asm.Registry().Len())
	return asm, nil
}

// DeployOnce auto-configures the application described in the file and writes the result to the writer as YAML.
func DeployOnce(ctx context.Context, asm *assembler.Assembler, path string, out io.Writer) error {
	app, err := config.LoadApplication(path)
	if err != nil {
		return fmt.Errorf("failed to load the application: %w", err)
	}

	info, err := asm.Deploy(ctx, app)
	if err != nil {
		return fmt.Errorf("failed to deploy the application: %w", err)
	}

	enc := yaml.NewEncoder(out)
	defer enc.Close()
	if err := enc.Encode(info); err != nil {
		return fmt.Errorf("failed to write the deployment result: %w", err)
	}
	return nil
}
