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
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/approle"
	"github.com/hashicorp/vault/api/auth/kubernetes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareKubernetesAuth(t *testing.T) {
	saTokenFile := createFile(t, "satoken", "anything")

	authMethod, err := prepareAuth(
		&VaultStorageConfig{
			AuthType:                    VaultAuthMethodKubernetes,
			Role:                        "test-role",
			ServiceAccountTokenFilePath: saTokenFile,
		})

	assert.NoError(t, err)
	assert.IsType(t, &kubernetes.KubernetesAuth{}, authMethod)
}

func TestPrepareApproleAuth(t *testing.T) {
	roleIdFile := createFile(t, "role_id", "anything\n")
	secretIdFile := createFile(t, "secret_id", "anything")

	authMethod, err := prepareAuth(
		&VaultStorageConfig{
			AuthType:         VaultAuthMethodApprole,
			RoleIdFilePath:   roleIdFile,
			SecretIdFilePath: secretIdFile,
		})

	assert.NoError(t, err)
	assert.IsType(t, &approle.AppRoleAuth{}, authMethod)
}

func TestPrepareTokenAuth(t *testing.T) {
	authMethod, err := prepareAuth(&VaultStorageConfig{AuthType: VaultAuthMethodToken, Token: "s.token"})

	assert.NoError(t, err)
	assert.Nil(t, authMethod, "the static token needs no login")
}

func TestAuthPreparers(t *testing.T) {
	for _, method := range []VaultAuthMethod{VaultAuthMethodKubernetes, VaultAuthMethodApprole, VaultAuthMethodToken} {
		assert.Contains(t, authPreparers, method)
	}
	assert.Len(t, authPreparers, 3)
}

func TestFail(t *testing.T) {
	checkFailed := func(t *testing.T, authMethod api.AuthMethod, err error) {
		assert.Error(t, err)
		assert.Nil(t, authMethod)
	}

	t.Run("unknown auth method", func(t *testing.T) {
		authMethod, err := prepareAuth(
			&VaultStorageConfig{
				AuthType: "blabol",
			})
		checkFailed(t, authMethod, err)
		assert.ErrorIs(t, err, VaultUnknownAuthMethodError)
	})

	t.Run("empty auth method", func(t *testing.T) {
		authMethod, err := prepareAuth(&VaultStorageConfig{})
		checkFailed(t, authMethod, err)
		assert.ErrorIs(t, err, VaultUnknownAuthMethodError)
	})

	t.Run("token empty", func(t *testing.T) {
		authMethod, err := prepareAuth(
			&VaultStorageConfig{
				AuthType: VaultAuthMethodToken,
				Token:    " \n",
			})
		checkFailed(t, authMethod, err)
		assert.ErrorIs(t, err, emptyTokenError)
	})

	t.Run("approle no roleid file", func(t *testing.T) {
		authMethod, err := prepareAuth(
			&VaultStorageConfig{
				AuthType: VaultAuthMethodApprole,
			})
		checkFailed(t, authMethod, err)
	})

	t.Run("approle empty roleid file", func(t *testing.T) {
		roleIdFile := createFile(t, "role_id", " ")

		authMethod, err := prepareAuth(
			&VaultStorageConfig{
				AuthType:       VaultAuthMethodApprole,
				RoleIdFilePath: roleIdFile,
			})
		checkFailed(t, authMethod, err)
		assert.ErrorIs(t, err, emptyRoleIdError)
	})

	t.Run("kubernetes no token sa file", func(t *testing.T) {
		authMethod, err := prepareAuth(
			&VaultStorageConfig{
				AuthType:                    VaultAuthMethodKubernetes,
				ServiceAccountTokenFilePath: "blabol",
			})
		checkFailed(t, authMethod, err)
	})
}

func TestTokenAuthSkipsLogin(t *testing.T) {
	fv := NewFakeVault(t)
	storage := &VaultCredentialStorage{Config: fv.TokenStorageConfig(nil)}
	storage.Config.Token = " " + fv.Token + "\n"

	require.NoError(t, storage.initFields())
	assert.Nil(t, storage.loginHandler)
	assert.Equal(t, fv.Token, storage.client.Token())
}

func createFile(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
