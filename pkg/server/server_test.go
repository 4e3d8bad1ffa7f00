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

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"github.com/redhat-appstudio/autoconfig/pkg/assembler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	assembler.RegisterTestDriver("server-driver")
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	a, err := assembler.New(context.TODO(), assembler.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.TODO()) })

	s := &Server{Assembler: a, Gatherer: prometheus.NewRegistry()}
	return s, s.Router()
}

func do(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func orange() api.Resource {
	return api.Resource{
		ID:   "orange-id",
		Type: api.DataSourceType,
		Properties: map[string]string{
			api.JdbcDriverProperty: "server-driver",
			api.JdbcUrlProperty:    "jdbc:orange://db",
			api.JtaManagedProperty: "true ",
			api.PasswordProperty:   "tiger",
		},
	}
}

func TestHealthz(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestReadyz(t *testing.T) {
	s, router := newTestServer(t)

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/readyz", nil).Code)

	s.Ready = func() error { return errors.New("vault sealed") }
	rec := do(router, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "vault sealed")
}

func TestMetrics(t *testing.T) {
	s, router := newTestServer(t)
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "test"})
	reg.MustRegister(counter)
	s.Gatherer = reg
	router = s.Router()

	rec := do(router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_counter")
}

func TestResources(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(router, http.MethodPost, "/resources", orange())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := api.ResourceInfo{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "orange-id", created.ID)
	require.NotNil(t, created.JtaManaged)
	assert.True(t, *created.JtaManaged)
	assert.Equal(t, redacted, created.Properties[api.PasswordProperty])

	rec = do(router, http.MethodPost, "/resources", orange())
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(router, http.MethodGet, "/resources/orange-id", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "tiger")

	rec = do(router, http.MethodGet, "/resources?type=Queue", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = do(router, http.MethodGet, "/resources", nil)
	listed := []api.ResourceInfo{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	assert.Equal(t, http.StatusNoContent, do(router, http.MethodDelete, "/resources/orange-id", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodDelete, "/resources/orange-id", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(router, http.MethodGet, "/resources/orange-id", nil).Code)
}

func TestCreateInvalidResource(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(router, http.MethodPost, "/resources", api.Resource{ID: "orange"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := orange()
	bad.Properties[api.JtaManagedProperty] = "maybe"
	rec = do(router, http.MethodPost, "/resources", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/resources", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeploy(t *testing.T) {
	_, router := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/resources", orange()).Code)

	app := api.AppModule{
		ID:         "orange-app",
		WebModules: []api.WebModule{{ModuleID: "orange-id", ContextRoot: "orange-web"}},
		PersistenceModules: []api.PersistenceModule{{
			RootURL: "orange-app",
			Units:   []api.PersistenceUnit{{Name: "orange-unit"}},
		}},
	}

	rec := do(router, http.MethodPost, "/deploy", app)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	info := api.AppInfo{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	binding := info.PersistenceUnit("orange-unit")
	require.NotNil(t, binding)
	assert.Equal(t, api.ResourceID("orange-id"), binding.Transactional)
	assert.False(t, binding.NonTransactional.IsSet())

	app.PersistenceModules[0].Units[0].JtaDataSource = "java:comp/env/missing"
	rec = do(router, http.MethodPost, "/deploy", app)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing")

	rec = do(router, http.MethodPost, "/deploy", api.AppModule{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNoRoute(t *testing.T) {
	_, router := newTestServer(t)

	rec := do(router, http.MethodGet, "/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	resp := ErrorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	s, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.TODO())
	done := make(chan error, 1)
	go func() {
		done <- s.ListenAndServe(ctx, "127.0.0.1:0")
	}()
	cancel()
	assert.NoError(t, <-done)
}
