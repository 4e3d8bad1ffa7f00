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
	"time"

	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/awsstorage/awscli"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/mongostorage/mongocli"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/vaultstorage/vaultcli"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

// LoggingCliArgs define the command line arguments for configuring the logging using Zap.
type LoggingCliArgs struct {
	ZapDevel           bool   `arg:"--zap-devel, env" default:"false" help:"Development Mode defaults(encoder=consoleEncoder,logLevel=Debug,stackTraceLevel=Warn) Production Mode defaults(encoder=jsonEncoder,logLevel=Info,stackTraceLevel=Error)"`
	ZapEncoder         string `arg:"--zap-encoder, env" default:"" help:"Zap log encoding (‘json’ or ‘console’)"`
	ZapLogLevel        string `arg:"--zap-log-level, env" default:"" help:"Zap Level to configure the verbosity of logging"`
	ZapStackTraceLevel string `arg:"--zap-stacktrace-level, env" default:"" help:"Zap Level at and above which stacktraces are captured"`
	ZapTimeEncoding    string `arg:"--zap-time-encoding, env" default:"iso8601" help:"one of 'epoch', 'millis', 'nano', 'iso8601', 'rfc3339' or 'rfc3339nano'"`
}

// LoggingOptions converts the arguments to the options of the logging infrastructure.
func (a *LoggingCliArgs) LoggingOptions() logs.Options {
	return logs.Options{
		Development:     a.ZapDevel,
		Encoder:         a.ZapEncoder,
		LogLevel:        a.ZapLogLevel,
		StackTraceLevel: a.ZapStackTraceLevel,
		TimeEncoding:    a.ZapTimeEncoding,
	}
}

// CommonCliArgs are the command line arguments and environment variable definitions understood by the server.
type CommonCliArgs struct {
	InstanceId        string                `arg:"--instance-id, env" default:"autoconfig-1" help:"ID of this instance. Used to avoid conflicts when multiple instances use shared resources (e.g. the credential storage)."`
	EnvFile           string                `arg:"--env-file, env: AUTOCONFIG_ENV_FILE" help:"File with the environment variables to load before the arguments are parsed."`
	ConfigFile        string                `arg:"--config-file, env" help:"The location of the YAML server configuration with the resources to create on startup."`
	ApiAddr           string                `arg:"--api-bind-address, env" default:":8080" help:"The address the API binds to."`
	MetricsAddr       string                `arg:"--metrics-bind-address, env" help:"The address the metric endpoint binds to. The metrics are served by the API if empty."`
	AllowInsecureURLs bool                  `arg:"--allow-insecure-urls, env" default:"false" help:"Whether is allowed or not to use insecure http URLs in the vault configuration."`
	CredentialStorage CredentialStorageType `arg:"--storage, env: CREDENTIAL_STORAGE" default:"memory" help:"The type of the credential storage. Supported types: 'memory', 'vault', 'aws', 'mongo'."`
	AutoCreate        bool                  `arg:"--auto-create, env" default:"false" help:"Create managed copies of the non-transactional data sources. Also enabled by the server configuration."`
	VerifyConnections bool                  `arg:"--verify-connections, env" default:"false" help:"Ping every data source when it is created. Also enabled by the server configuration."`
	WatchdogInterval  time.Duration         `arg:"--watchdog-interval, env" default:"60s" help:"How often the availability of the credential storage and the data sources is checked."`
	vaultcli.VaultCliArgs
	awscli.AWSCliArgs
	mongocli.MongoCliArgs
}

type ServerCliArgs struct {
	CommonCliArgs
	LoggingCliArgs
	Deploy string `arg:"--deploy" help:"Auto-configure the application described by the YAML file, print the result and exit."`
}

type CredentialStorageType string

const (
	VaultCredentialStorage    CredentialStorageType = "vault"
	AWSCredentialStorage      CredentialStorageType = "aws"
	MongoCredentialStorage    CredentialStorageType = "mongo"
	InMemoryCredentialStorage CredentialStorageType = "memory"
)
