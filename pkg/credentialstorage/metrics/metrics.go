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

package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

var credentialStoreTimeMetric = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: config.MetricsNamespace,
	Subsystem: config.MetricsSubsystem,
	Name:      "credential_storage_operation_duration_seconds",
	Help:      "the time it takes to complete operation with credentials in the credential storage",
}, []string{"type", "operation"})

var credentialStoreErrorsMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: config.MetricsNamespace,
	Subsystem: config.MetricsSubsystem,
	Name:      "credential_storage_errors_total",
	Help:      "the number of failed operations with credentials in the credential storage",
}, []string{"type", "operation"})

var _ credentialstorage.CredentialStorage = (*MeteredCredentialStorage)(nil)

// MeteredCredentialStorage measures the operations of the wrapped storage.
type MeteredCredentialStorage struct {
	CredentialStorage credentialstorage.CredentialStorage
	StorageType       string
	MetricsRegisterer prometheus.Registerer
}

func (m *MeteredCredentialStorage) Initialize(ctx context.Context) error {
	for _, c := range []prometheus.Collector{credentialStoreTimeMetric, credentialStoreErrorsMetric} {
		if err := m.MetricsRegisterer.Register(c); err != nil {
			are := prometheus.AlreadyRegisteredError{}
			if !errors.As(err, &are) {
				return fmt.Errorf("failed to register the credential storage metrics: %w", err)
			}
		}
	}
	return m.observe(ctx, "initialize", func() error {
		return m.CredentialStorage.Initialize(ctx)
	})
}

func (m *MeteredCredentialStorage) Examine(ctx context.Context) error {
	return m.observe(ctx, "examine", func() error {
		return m.CredentialStorage.Examine(ctx)
	})
}

func (m *MeteredCredentialStorage) Store(ctx context.Context, id credentialstorage.CredentialID, data []byte) error {
	return m.observe(ctx, "store", func() error {
		return m.CredentialStorage.Store(ctx, id, data)
	})
}

func (m *MeteredCredentialStorage) Get(ctx context.Context, id credentialstorage.CredentialID) ([]byte, error) {
	var data []byte
	err := m.observe(ctx, "get", func() error {
		var err error
		data, err = m.CredentialStorage.Get(ctx, id)
		return err
	})
	return data, err
}

func (m *MeteredCredentialStorage) Delete(ctx context.Context, id credentialstorage.CredentialID) error {
	return m.observe(ctx, "delete", func() error {
		return m.CredentialStorage.Delete(ctx, id)
	})
}

func (m *MeteredCredentialStorage) observe(ctx context.Context, operation string, fn func() error) error {
	timer := prometheus.NewTimer(credentialStoreTimeMetric.WithLabelValues(m.StorageType, operation))
	defer timer.ObserveDuration()

	err := fn()
	// not finding the credentials is a regular outcome
	if err != nil && !errors.Is(err, credentialstorage.NotFoundError) {
		logs.FromContext(ctx).V(logs.DebugLevel).Info("credential storage operation failed", "type", m.StorageType, "operation", operation, "error", err.Error())
		credentialStoreErrorsMetric.WithLabelValues(m.StorageType, operation).Inc()
	}
	return err //nolint:wrapcheck // the decorator must be transparent
}
