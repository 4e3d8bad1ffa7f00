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
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/vaultstorage"
)

type VaultCliArgs struct {
	VaultHost                      string                       `arg:"--vault-host, env" help:"Mandatory Vault host URL."`
	VaultInsecureTLS               bool                         `arg:"--vault-insecure-tls, env" default:"false" help:"Whether it allows 'insecure' TLS connection to Vault, 'true' is allowing untrusted certificate."`
	VaultAuthMethod                vaultstorage.VaultAuthMethod `arg:"--vault-auth-method, env" default:"approle" help:"Authentication method to Vault credential storage. Options: 'kubernetes', 'approle', 'token'."`
	VaultKubernetesSATokenFilePath string                       `arg:"--vault-k8s-sa-token-filepath, env" help:"Used with Vault kubernetes authentication. Filepath to kubernetes ServiceAccount token. When empty, Vault configuration uses default k8s path."`
	VaultKubernetesRole            string                       `arg:"--vault-k8s-role, env" help:"Used with Vault kubernetes authentication. Vault authentication role set for k8s ServiceAccount."`
	VaultApproleRoleIdFilePath     string                       `arg:"--vault-approle-role-id-filepath, env" default:"/etc/autoconfig/approle/role_id" help:"Used with Vault approle authentication. Filepath with role_id."`
	VaultApproleSecretIdFilePath   string                       `arg:"--vault-approle-secret-id-filepath, env" default:"/etc/autoconfig/approle/secret_id" help:"Used with Vault approle authentication. Filepath with secret_id."`
	VaultToken                     string                       `arg:"--vault-token, env" help:"Used with Vault token authentication. The token is never renewed."`
	VaultLoginRetries              uint64                       `arg:"--vault-login-retries, env" default:"5" help:"The number of additional attempts to log in to Vault on startup."`
	VaultDataPathPrefix            string                       `arg:"--vault-data-path-prefix, env" default:"autoconfig" help:"Path prefix in Vault under which all the credentials will be stored. No leading or trailing '/' should be used, it will be trimmed."`
}

// VaultStorageConfigFromCliArgs returns an instance of the VaultStorageConfig with the fields initialized from
// the corresponding CLI arguments. The VaultStorageConfig.MetricsRegisterer is NOT configured, because this
// cannot be done using just the CLI arguments.
func VaultStorageConfigFromCliArgs(args *VaultCliArgs) *vaultstorage.VaultStorageConfig {
	return &vaultstorage.VaultStorageConfig{
		Host:                        args.VaultHost,
		AuthType:                    args.VaultAuthMethod,
		Insecure:                    args.VaultInsecureTLS,
		Role:                        args.VaultKubernetesRole,
		ServiceAccountTokenFilePath: args.VaultKubernetesSATokenFilePath,
		RoleIdFilePath:              args.VaultApproleRoleIdFilePath,
		SecretIdFilePath:            args.VaultApproleSecretIdFilePath,
		Token:                       args.VaultToken,
		LoginRetries:                args.VaultLoginRetries,
		DataPathPrefix:              strings.Trim(args.VaultDataPathPrefix, "/"),
	}
}

func CreateVaultStorage(args *VaultCliArgs, registerer prometheus.Registerer) (credentialstorage.CredentialStorage, error) {
	vaultConfig := VaultStorageConfigFromCliArgs(args)
	vaultConfig.MetricsRegisterer = registerer

	return &vaultstorage.VaultCredentialStorage{
		Config: vaultConfig,
	}, nil
}
