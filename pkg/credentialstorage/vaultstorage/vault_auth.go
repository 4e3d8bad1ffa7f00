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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/hashicorp/vault/api/auth/approle"
	"github.com/hashicorp/vault/api/auth/kubernetes"
)

var (
	VaultUnknownAuthMethodError = errors.New("unknown Vault authentication method")
	emptyRoleIdError            = errors.New("the vault role id is empty")
	emptyTokenError             = errors.New("the vault token is empty")
)

// authPreparer returns the method used to log in to Vault. A nil method means that the client uses a static token
// and doesn't log in at all.
type authPreparer func(config *VaultStorageConfig) (api.AuthMethod, error)

var authPreparers = map[VaultAuthMethod]authPreparer{
	VaultAuthMethodKubernetes: prepareKubernetesAuth,
	VaultAuthMethodApprole:    prepareApproleAuth,
	VaultAuthMethodToken:      prepareTokenAuth,
}

func prepareAuth(cfg *VaultStorageConfig) (api.AuthMethod, error) {
	prepare, ok := authPreparers[cfg.AuthType]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", VaultUnknownAuthMethodError, cfg.AuthType)
	}

	vaultAuth, err := prepare(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare auth method '%s': %w", cfg.AuthType, err)
	}
	return vaultAuth, nil
}

func prepareKubernetesAuth(config *VaultStorageConfig) (api.AuthMethod, error) {
	var opts []kubernetes.LoginOption
	if config.ServiceAccountTokenFilePath != "" {
		opts = append(opts, kubernetes.WithServiceAccountTokenPath(config.ServiceAccountTokenFilePath))
	}

	auth, err := kubernetes.NewKubernetesAuth(config.Role, opts...)
	if err != nil {
		return nil, fmt.Errorf("error creating kubernetes authenticator: %w", err)
	}

	return auth, nil
}

func prepareApproleAuth(config *VaultStorageConfig) (api.AuthMethod, error) {
	roleId, err := os.ReadFile(config.RoleIdFilePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read vault role id: %w", err)
	}
	if strings.TrimSpace(string(roleId)) == "" {
		return nil, emptyRoleIdError
	}
	secretId := &approle.SecretID{FromFile: config.SecretIdFilePath}

	auth, err := approle.NewAppRoleAuth(strings.TrimSpace(string(roleId)), secretId)
	if err != nil {
		return nil, fmt.Errorf("error creating approle authenticator: %w", err)
	}
	return auth, nil
}

func prepareTokenAuth(config *VaultStorageConfig) (api.AuthMethod, error) {
	if strings.TrimSpace(config.Token) == "" {
		return nil, emptyTokenError
	}
	return nil, nil
}
