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

package vaultcli

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/vaultstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultStorageConfigFromCliArgs(t *testing.T) {
	args := &VaultCliArgs{
		VaultHost:                    "https://vault",
		VaultInsecureTLS:             true,
		VaultAuthMethod:              vaultstorage.VaultAuthMethodApprole,
		VaultApproleRoleIdFilePath:   "/role_id",
		VaultApproleSecretIdFilePath: "/secret_id",
		VaultLoginRetries:            2,
		VaultDataPathPrefix:          "/autoconfig/",
	}

	cfg := VaultStorageConfigFromCliArgs(args)

	assert.Equal(t, "https://vault", cfg.Host)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, vaultstorage.VaultAuthMethodApprole, cfg.AuthType)
	assert.Equal(t, "/role_id", cfg.RoleIdFilePath)
	assert.Equal(t, "/secret_id", cfg.SecretIdFilePath)
	assert.Equal(t, uint64(2), cfg.LoginRetries)
	assert.Equal(t, "autoconfig", cfg.DataPathPrefix)
	assert.Nil(t, cfg.MetricsRegisterer)
}

func TestCreateVaultStorage(t *testing.T) {
	registry := prometheus.NewPedanticRegistry()
	storage, err := CreateVaultStorage(&VaultCliArgs{VaultHost: "https://vault", VaultAuthMethod: vaultstorage.VaultAuthMethodToken}, registry)
	require.NoError(t, err)

	vs, ok := storage.(*vaultstorage.VaultCredentialStorage)
	require.True(t, ok)
	assert.Equal(t, registry, vs.Config.MetricsRegisterer)
}
