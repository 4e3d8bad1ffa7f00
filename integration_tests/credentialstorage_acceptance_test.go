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

package integrationtests

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/awsstorage/awscli"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/memorystorage"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/mongostorage/mongocli"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/vaultstorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Testsuite that runs the same tests against multiple credential storage implementations.
// The tests care just about the CredentialStorage interface and make sure that the implementations behave the same.

// TestInMemoryStorage runs against our testing in-memory implementation of the CredentialStorage.
func TestInMemoryStorage(t *testing.T) {
	storage := &memorystorage.MemoryStorage{}

	ctx := context.TODO()
	assert.NoError(t, storage.Initialize(ctx))

	StorageTCK(t, ctx, storage)
}

// TestVault runs against the fake Vault server speaking the KV v2 protocol.
func TestVault(t *testing.T) {
	_, storage := vaultstorage.CreateTestVaultCredentialStorage(t, prometheus.NewRegistry())

	ctx := context.TODO()
	require.NoError(t, storage.Initialize(ctx))

	StorageTCK(t, ctx, storage)
}

// TestAws runs against real AWS secret manager.
// AWS_CONFIG_FILE and AWS_CREDENTIALS_FILE must be set and point to real files with real credentials for testsuite to properly run. Otherwise test is skipped.
func TestAws(t *testing.T) {
	ctx := context.TODO()

	awsConfig, hasAwsConfig := os.LookupEnv("AWS_CONFIG_FILE")
	awsCreds, hasAwsCreds := os.LookupEnv("AWS_CREDENTIALS_FILE")

	if !hasAwsConfig || !hasAwsCreds {
		t.Skip("to test AWS storage, set AWS_CONFIG_FILE and AWS_CREDENTIALS_FILE env vars")
	}

	if _, err := os.Stat(awsConfig); errors.Is(err, os.ErrNotExist) {
		t.Skipf("AWS_CONFIG_FILE is set, but file does not exist '%s'", awsConfig)
	}

	if _, err := os.Stat(awsCreds); errors.Is(err, os.ErrNotExist) {
		t.Skipf("AWS_CREDENTIALS_FILE is set, but file does not exist '%s'", awsCreds)
	}

	storage, err := awscli.NewAwsCredentialStorage(ctx, "autoconfig-test", &awscli.AWSCliArgs{
		ConfigFile:      awsConfig,
		CredentialsFile: awsCreds,
	}, prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotNil(t, storage)

	require.NoError(t, storage.Initialize(ctx))

	StorageTCK(t, ctx, storage)
}

// TestMongo runs against a real MongoDB. MONGO_URI must be set, otherwise the test is skipped.
func TestMongo(t *testing.T) {
	uri, ok := os.LookupEnv("MONGO_URI")
	if !ok {
		t.Skip("to test MongoDB storage, set the MONGO_URI env var")
	}

	ctx := context.TODO()
	storage := mongocli.CreateMongoStorage(&mongocli.MongoCliArgs{
		MongoURI:            uri,
		MongoDatabase:       "autoconfig-test",
		MongoCollection:     "credentials",
		MongoConnectTimeout: 10 * time.Second,
	})
	require.NoError(t, storage.Initialize(ctx))

	StorageTCK(t, ctx, storage)
}

func StorageTCK(t *testing.T, ctx context.Context, storage credentialstorage.CredentialStorage) {
	refreshTestData(t)

	t.Run("examine", func(t *testing.T) {
		assert.NoError(t, storage.Examine(ctx))
	})

	t.Run("get non-existing", func(t *testing.T) {
		data, err := storage.Get(ctx, credentialID)
		assert.ErrorIs(t, err, credentialstorage.NotFoundError)
		assert.Nil(t, data)
	})

	t.Run("delete non-existing", func(t *testing.T) {
		err := storage.Delete(ctx, credentialID)
		if err != nil {
			assert.ErrorIs(t, err, credentialstorage.NotFoundError)
		}
	})

	t.Run("create", func(t *testing.T) {
		assert.NoError(t, storage.Store(ctx, credentialID, testCredentialData))
	})

	t.Run("get", func(t *testing.T) {
		data, err := storage.Get(ctx, credentialID)
		assert.NoError(t, err)
		assert.EqualValues(t, testCredentialData, data)
	})

	t.Run("update", func(t *testing.T) {
		assert.NoError(t, storage.Store(ctx, credentialID, updatedCredentialData))
	})

	t.Run("get updated", func(t *testing.T) {
		data, err := storage.Get(ctx, credentialID)
		assert.NoError(t, err)
		assert.EqualValues(t, updatedCredentialData, data)
	})

	t.Run("delete", func(t *testing.T) {
		assert.NoError(t, storage.Delete(ctx, credentialID))
	})

	t.Run("get deleted", func(t *testing.T) {
		data, err := storage.Get(ctx, credentialID)
		assert.ErrorIs(t, err, credentialstorage.NotFoundError)
		assert.Nil(t, data)
	})
}

var (
	credentialID          credentialstorage.CredentialID
	testCredentialData    []byte
	updatedCredentialData []byte
)

func refreshTestData(t *testing.T) {
	random, _, _ := strings.Cut(uuid.NewString(), "-")
	credentialID = credentialstorage.CredentialID{ResourceID: "jdbc/orange-" + random}

	creds := credentialstorage.Credentials{
		UserName: "scott-" + random,
		//#nosec G404 -- only test data
		Password: "tiger-" + random + "-" + strings.Repeat("x", rand.Intn(10)),
	}
	data, err := credentialstorage.SerializeJSON(&creds)
	require.NoError(t, err)
	testCredentialData = data

	creds.Password += "-update"
	data, err = credentialstorage.SerializeJSON(&creds)
	require.NoError(t, err)
	updatedCredentialData = data
}
