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

package config

import (
	"fmt"
	"io"
	"os"

	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"gopkg.in/yaml.v3"
)

const (
	MetricsNamespace = "redhat_appstudio"
	MetricsSubsystem = "autoconfig"
)

// ServerConfiguration is the configuration of the server as read from the configuration file.
type ServerConfiguration struct {
	// AutoCreateResources enables the creation of managed copies of the non-transactional data sources when no
	// transactional data source can be found for a persistence unit.
	AutoCreateResources bool `yaml:"autoCreateResources"`
	// VerifyConnections makes the assembler ping every data source it creates.
	VerifyConnections bool `yaml:"verifyConnections"`
	// Resources are created in the server on startup, in the order of declaration.
	Resources []api.Resource `yaml:"resources" validate:"dive"`
}

// LoadFrom reads the server configuration from the provided file.
func LoadFrom(path string) (ServerConfiguration, error) {
	f, err := os.Open(path)
	if err != nil {
		return ServerConfiguration{}, fmt.Errorf("failed to open the configuration file %s: %w", path, err)
	}
	defer f.Close()

	return ReadFrom(f)
}

// ReadFrom reads and validates the server configuration.
func ReadFrom(r io.Reader) (ServerConfiguration, error) {
	cfg := ServerConfiguration{}
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("failed to parse the configuration: %w", err)
	}

	if err := ValidateStruct(&cfg); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadApplication reads the application descriptor from the provided file.
func LoadApplication(path string) (*api.AppModule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open the application descriptor %s: %w", path, err)
	}
	defer f.Close()

	return ReadApplication(f)
}

// ReadApplication reads and validates an application descriptor.
func ReadApplication(r io.Reader) (*api.AppModule, error) {
	app := &api.AppModule{}
	if err := yaml.NewDecoder(r).Decode(app); err != nil {
		return nil, fmt.Errorf("failed to parse the application descriptor: %w", err)
	}

	if err := ValidateStruct(app); err != nil {
		return nil, fmt.Errorf("invalid application descriptor: %w", err)
	}

	return app, nil
}
