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

//go:build !release

package vaultstorage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// FakeVault is a minimal stand-in of the Vault HTTP API. It supports a single KV v2 engine, the approle login
// and the health endpoint.
type FakeVault struct {
	Server *httptest.Server
	// Data maps the KV paths (without the /v1/ prefix) to the stored data.
	Data map[string]map[string]interface{}
	// RoleId and SecretId are the valid approle credentials.
	RoleId, SecretId string
	// Token is the token handed out by the login and required by the other endpoints.
	Token string
	// Sealed makes the health endpoint report a sealed Vault.
	Sealed bool
	// Logins counts the successful logins.
	Logins int

	lock sync.Mutex
}

// NewFakeVault starts the fake Vault. The server is closed when the test finishes.
func NewFakeVault(t testing.TB) *FakeVault {
	t.Helper()

	fv := StartFakeVault()
	t.Cleanup(fv.Close)
	return fv
}

// StartFakeVault starts the fake Vault. The caller is responsible for closing it.
func StartFakeVault() *FakeVault {
	fv := &FakeVault{
		Data:     map[string]map[string]interface{}{},
		RoleId:   "test-role-id",
		SecretId: "test-secret-id",
		Token:    "test-token",
	}
	fv.Server = httptest.NewServer(http.HandlerFunc(fv.handle))
	return fv
}

// Close stops the server of the fake Vault.
func (fv *FakeVault) Close() {
	fv.Server.Close()
}

// TokenStorageConfig returns the configuration of a storage using the fake Vault with the static token auth.
func (fv *FakeVault) TokenStorageConfig(metricsRegistry prometheus.Registerer) *VaultStorageConfig {
	return &VaultStorageConfig{
		Host:              fv.Server.URL,
		AuthType:          VaultAuthMethodToken,
		Token:             fv.Token,
		DataPathPrefix:    "autoconfig",
		MetricsRegisterer: metricsRegistry,
	}
}

// CreateTestVaultCredentialStorage returns a storage using the fake Vault with the static token auth.
func CreateTestVaultCredentialStorage(t testing.TB, metricsRegistry prometheus.Registerer) (*FakeVault, *VaultCredentialStorage) {
	t.Helper()

	fv := NewFakeVault(t)
	return fv, &VaultCredentialStorage{Config: fv.TokenStorageConfig(metricsRegistry)}
}

func (fv *FakeVault) handle(w http.ResponseWriter, r *http.Request) {
	fv.lock.Lock()
	defer fv.lock.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v1/")

	switch {
	case path == "sys/health":
		writeJSON(w, http.StatusOK, map[string]interface{}{"initialized": true, "sealed": fv.Sealed})
		return
	case path == "auth/approle/login":
		fv.login(w, r)
		return
	}

	if r.Header.Get("X-Vault-Token") != fv.Token {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"errors": []string{"permission denied"}})
		return
	}

	switch r.Method {
	case http.MethodGet:
		data, ok := fv.Data[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"data": data}})
	case http.MethodPut, http.MethodPost:
		body := map[string]map[string]interface{}{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{err.Error()}})
			return
		}
		fv.Data[path] = body["data"]
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"version": 1}})
	case http.MethodDelete:
		delete(fv.Data, path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (fv *FakeVault) login(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body["role_id"] != fv.RoleId || body["secret_id"] != fv.SecretId {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"invalid role or secret ID"}})
		return
	}
	fv.Logins++
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"auth": map[string]interface{}{
			"client_token":   fv.Token,
			"renewable":      true,
			"lease_duration": 3600,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
