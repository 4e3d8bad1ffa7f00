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

package vaultstorage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	vault "github.com/hashicorp/vault/api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/httptransport"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

type VaultCredentialStorage struct {
	client       *vault.Client
	loginHandler *loginHandler
	// Config holds the configuration of the storage. After the Initialize method is called, no changes
	// to this configuration object are reflected even if Initialize is called again.
	Config *VaultStorageConfig
}

const (
	vaultDataPathFormat = "%s/data/%s"
	// credentialsField is the field of the KV secret holding the base64 encoded credentials
	credentialsField = "credentials"
	resourceField    = "resource"
)

var (
	VaultError             = errors.New("error in Vault")
	noAuthInfoInVaultError = errors.New("no auth info returned from Vault")
	UnexpectedDataError    = errors.New("unexpected data")
	unspecifiedStoreError  = errors.New("failed to store the credentials, no error but returned nil")

	vaultRequestCountMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "vault_request_count_total",
		Help:      "The request counts to Vault categorized by HTTP method status code",
	}, []string{"method", "status"})

	vaultResponseTimeMetric = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "vault_response_time_seconds",
		Help:      "The response time of Vault requests categorized by HTTP method and status code",
	}, []string{"method", "status"})

	requestInstruments = httptransport.MethodAndStatusInstruments(vaultRequestCountMetric, vaultResponseTimeMetric)
)

type VaultAuthMethod string

const (
	VaultAuthMethodKubernetes VaultAuthMethod = "kubernetes"
	VaultAuthMethodApprole    VaultAuthMethod = "approle"
	// VaultAuthMethodToken uses a static token and switches off the token renewal.
	VaultAuthMethodToken VaultAuthMethod = "token"
)

type VaultStorageConfig struct {
	Host     string `validate:"required,https_only"`
	AuthType VaultAuthMethod
	Insecure bool

	Role                        string
	ServiceAccountTokenFilePath string

	RoleIdFilePath   string
	SecretIdFilePath string

	// Token is only used with the token auth method.
	Token string

	// LoginRetries is the number of additional attempts made to log in during the initialization.
	LoginRetries uint64

	MetricsRegisterer prometheus.Registerer

	DataPathPrefix string `validate:"required"`
}

var _ credentialstorage.CredentialStorage = (*VaultCredentialStorage)(nil)

func (v *VaultCredentialStorage) Initialize(ctx context.Context) error {
	if err := v.initFields(); err != nil {
		return err
	}

	if err := v.login(ctx); err != nil {
		return err
	}

	if err := v.initMetrics(ctx); err != nil {
		return err
	}

	return nil
}

// Examine checks that Vault is initialized and unsealed.
func (v *VaultCredentialStorage) Examine(ctx context.Context) error {
	ctx = httptransport.ContextWithInstruments(ctx, requestInstruments)
	health, err := v.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to check the Vault health: %w", err)
	}
	if !health.Initialized || health.Sealed {
		return fmt.Errorf("%w: initialized=%t, sealed=%t", VaultError, health.Initialized, health.Sealed)
	}
	return nil
}

func (v *VaultCredentialStorage) Store(ctx context.Context, id credentialstorage.CredentialID, bytes []byte) error {
	data := map[string]interface{}{
		"data": map[string]interface{}{
			credentialsField: base64.StdEncoding.EncodeToString(bytes),
			resourceField:    id.ResourceID,
		},
	}
	lg := logs.FromContext(ctx)
	path := v.dataPath(id)

	ctx = httptransport.ContextWithInstruments(ctx, requestInstruments)
	s, err := v.client.Logical().WriteWithContext(ctx, path, data)
	if err != nil {
		return fmt.Errorf("error writing the data to Vault: %w", err)
	}
	if s == nil {
		return unspecifiedStoreError
	}
	for _, w := range s.Warnings {
		lg.Info(w)
	}

	return nil
}

func (v *VaultCredentialStorage) Get(ctx context.Context, id credentialstorage.CredentialID) ([]byte, error) {
	lg := logs.FromContext(ctx)

	ctx = httptransport.ContextWithInstruments(ctx, requestInstruments)

	path := v.dataPath(id)
	secret, err := v.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("error reading the data: %w", err)
	}
	if secret == nil || len(secret.Data) == 0 || secret.Data["data"] == nil {
		lg.V(logs.DebugLevel).Info("no data found in vault at", "path", path)
		return nil, fmt.Errorf("%w: %s", credentialstorage.NotFoundError, id)
	}
	for _, w := range secret.Warnings {
		lg.Info(w)
	}

	bytes, err := extractCredentials(secret.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract the data from Vault response: %w", err)
	}

	return bytes, nil
}

func (v *VaultCredentialStorage) Delete(ctx context.Context, id credentialstorage.CredentialID) error {
	ctx = httptransport.ContextWithInstruments(ctx, requestInstruments)

	path := v.dataPath(id)
	s, err := v.client.Logical().DeleteWithContext(ctx, path)
	if err != nil {
		return fmt.Errorf("error deleting the data: %w", err)
	}
	logs.FromContext(ctx).V(logs.DebugLevel).Info("deleted", "path", path, "response", s)
	return nil
}

func (v *VaultCredentialStorage) initFields() error {
	if v.client != nil {
		return nil
	}

	if err := config.ValidateStruct(v.Config); err != nil {
		return fmt.Errorf("error validating storage config: %w", err)
	}

	cfg := vault.DefaultConfig()
	cfg.Address = v.Config.Host
	cfg.Logger = hclog.Default()
	if v.Config.Insecure {
		if err := cfg.ConfigureTLS(&vault.TLSConfig{
			Insecure: true,
		}); err != nil {
			return fmt.Errorf("error configuring insecure TLS: %w", err)
		}
	}

	// This needs to be done AFTER configuring the TLS, because ConfigureTLS assumes that the transport is http.Transport
	// and not our round tripper.
	cfg.HttpClient.Transport = httptransport.InstrumentedRoundTripper{RoundTripper: cfg.HttpClient.Transport}

	vaultClient, err := vault.NewClient(cfg)
	if err != nil {
		return fmt.Errorf("error creating the client: %w", err)
	}
	v.client = vaultClient

	authMethod, authErr := prepareAuth(v.Config)
	if authErr != nil {
		return fmt.Errorf("error preparing vault authentication: %w", authErr)
	}
	if authMethod == nil {
		v.client.SetToken(strings.TrimSpace(v.Config.Token))
		return nil
	}

	v.loginHandler = &loginHandler{
		client:     v.client,
		authMethod: authMethod,
		retries:    v.Config.LoginRetries,
	}

	return nil
}

func (v *VaultCredentialStorage) login(ctx context.Context) error {
	if v.loginHandler != nil {
		if err := v.loginHandler.Login(ctx); err != nil {
			return fmt.Errorf("failed to login to Vault: %w", err)
		}
	} else {
		logs.FromContext(ctx).Info("no login handler configured for Vault - token refresh disabled")
	}

	return nil
}

func (v *VaultCredentialStorage) initMetrics(ctx context.Context) error {
	if v.Config.MetricsRegisterer == nil {
		logs.FromContext(ctx).Info("no metrics registry configured - metrics collection for Vault access is disabled")
		return nil
	}

	if err := v.Config.MetricsRegisterer.Register(vaultRequestCountMetric); err != nil {
		if !errors.As(err, &prometheus.AlreadyRegisteredError{}) {
			return fmt.Errorf("failed to register request count metric: %w", err)
		}
	}

	if err := v.Config.MetricsRegisterer.Register(vaultResponseTimeMetric); err != nil {
		if !errors.As(err, &prometheus.AlreadyRegisteredError{}) {
			return fmt.Errorf("failed to register response time metric: %w", err)
		}
	}

	return nil
}

func (v *VaultCredentialStorage) dataPath(id credentialstorage.CredentialID) string {
	return fmt.Sprintf(vaultDataPathFormat, v.Config.DataPathPrefix, id.Key())
}

func extractCredentials(responseData map[string]interface{}) ([]byte, error) {
	dataMap, ok := responseData["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: data field not a map", UnexpectedDataError)
	}

	field, ok := dataMap[credentialsField]
	if !ok {
		return nil, fmt.Errorf("%w: %s field not present", UnexpectedDataError, credentialsField)
	}
	str, ok := field.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s field is not string", UnexpectedDataError, credentialsField)
	}
	bytes, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return nil, fmt.Errorf("%s field not base64 encoded: %w", credentialsField, err)
	}
	return bytes, nil
}
