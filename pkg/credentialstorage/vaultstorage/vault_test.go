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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	prometheusTest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = config.SetupCustomValidations(config.CustomValidationOptions{AllowInsecureURLs: true})
}

var testCredentialID = credentialstorage.CredentialID{ResourceID: "orange-id"}

func TestStoreGetDelete(t *testing.T) {
	ctx := context.TODO()
	fv, storage := CreateTestVaultCredentialStorage(t, nil)
	require.NoError(t, storage.Initialize(ctx))

	require.NoError(t, storage.Store(ctx, testCredentialID, []byte("secret")))
	stored := fv.Data["autoconfig/data/orange-id"]
	require.NotNil(t, stored)
	assert.Equal(t, "orange-id", stored[resourceField])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("secret")), stored[credentialsField])

	data, err := storage.Get(ctx, testCredentialID)
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), data)

	require.NoError(t, storage.Delete(ctx, testCredentialID))
	_, err = storage.Get(ctx, testCredentialID)
	assert.ErrorIs(t, err, credentialstorage.NotFoundError)
}

func TestGetNotFound(t *testing.T) {
	_, storage := CreateTestVaultCredentialStorage(t, nil)
	require.NoError(t, storage.Initialize(context.TODO()))

	_, err := storage.Get(context.TODO(), credentialstorage.CredentialID{ResourceID: "lime-id"})
	assert.ErrorIs(t, err, credentialstorage.NotFoundError)
}

func TestWrongToken(t *testing.T) {
	_, storage := CreateTestVaultCredentialStorage(t, nil)
	storage.Config.Token = "wrong"
	require.NoError(t, storage.Initialize(context.TODO()))

	assert.Error(t, storage.Store(context.TODO(), testCredentialID, []byte("secret")))
}

func TestExamine(t *testing.T) {
	fv, storage := CreateTestVaultCredentialStorage(t, nil)
	require.NoError(t, storage.Initialize(context.TODO()))

	assert.NoError(t, storage.Examine(context.TODO()))

	fv.Sealed = true
	assert.ErrorIs(t, storage.Examine(context.TODO()), VaultError)
}

func TestMetricCollection(t *testing.T) {
	ctx := context.Background()
	_, storage := CreateTestVaultCredentialStorage(t, prometheus.NewPedanticRegistry())
	require.NoError(t, storage.Initialize(ctx))

	_, err := storage.Get(ctx, testCredentialID)
	assert.ErrorIs(t, err, credentialstorage.NotFoundError)

	assert.Greater(t, prometheusTest.CollectAndCount(vaultRequestCountMetric), 0)
	assert.Greater(t, prometheusTest.CollectAndCount(vaultResponseTimeMetric), 0)
}

func TestInvalidConfig(t *testing.T) {
	storage := &VaultCredentialStorage{Config: &VaultStorageConfig{AuthType: VaultAuthMethodToken}}
	assert.Error(t, storage.Initialize(context.TODO()))
}

func TestExtractCredentials(t *testing.T) {
	t.Run("extracts the data", func(t *testing.T) {
		origBytes := []byte("bytes")
		data := map[string]any{
			"data": map[string]any{
				credentialsField: base64.StdEncoding.EncodeToString(origBytes),
			},
		}

		bytes, err := extractCredentials(data)
		assert.NoError(t, err)
		assert.Equal(t, origBytes, bytes)
	})

	t.Run("fails on missing field", func(t *testing.T) {
		_, err := extractCredentials(map[string]any{"data": map[string]any{}})
		assert.ErrorIs(t, err, UnexpectedDataError)
	})

	t.Run("fails on unexpected shape", func(t *testing.T) {
		_, err := extractCredentials(map[string]any{"data": "nope"})
		assert.ErrorIs(t, err, UnexpectedDataError)
	})

	t.Run("fails on invalid base64", func(t *testing.T) {
		_, err := extractCredentials(map[string]any{"data": map[string]any{credentialsField: "%%%"}})
		assert.Error(t, err)
	})
}
