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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	prometheusTest "github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
)

func TestRegisterMetrics(t *testing.T) {

	var tests = []struct {
		name          string
		resetFunc     func()
		incrementFunc func()
		metricName    string
		want          int
	}{
		{"registration counter", func() {
			ResourceRegistrationsCounter.Reset()
		}, func() {
			ResourceRegistrationsCounter.WithLabelValues("DataSource", OutcomeSuccess).Inc()
			ResourceRegistrationsCounter.WithLabelValues("DataSource", OutcomeFailure).Inc()
		}, "redhat_appstudio_autoconfig_resource_registrations_total", 2},
		{"resolution counter", func() {
			BindingResolutionsCounter.Reset()
		}, func() {
			BindingResolutionsCounter.WithLabelValues("module_ref", OutcomeSuccess).Inc()
		}, "redhat_appstudio_autoconfig_binding_resolutions_total", 1},
		{"deployment histogram", func() {
			DeploymentDurationHistogram.Reset()
		}, func() {
			DeploymentDurationHistogram.WithLabelValues(OutcomeSuccess).Observe(0.02)
		}, "redhat_appstudio_autoconfig_deployment_duration_seconds", 1},
		{"resource status gauge", func() {
			ResourceStatusGauge.Reset()
		}, func() {
			ResourceStatusGauge.WithLabelValues("orange-id", string(ResourceAvailable)).Set(1)
		}, "redhat_appstudio_autoconfig_resource_status", 1},
	}
	// The execution loop
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := prometheus.NewPedanticRegistry()
			tt.resetFunc()
			assert.NoError(t, RegisterCommonMetrics(registry))
			tt.incrementFunc()
			count, err := prometheusTest.GatherAndCount(registry, tt.metricName)
			assert.Equal(t, tt.want, count)
			assert.NoError(t, err)
		})
	}
}

func TestDeploymentDurationHistogram(t *testing.T) {
	DeploymentDurationHistogram.Reset()
	DeploymentDurationHistogram.WithLabelValues(OutcomeSuccess).Observe(0.02)
	DeploymentDurationHistogram.WithLabelValues(OutcomeSuccess).Observe(0.5)

	m := &dto.Metric{}
	observer, ok := DeploymentDurationHistogram.WithLabelValues(OutcomeSuccess).(prometheus.Metric)
	assert.True(t, ok)
	assert.NoError(t, observer.Write(m))
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.52, m.GetHistogram().GetSampleSum(), 0.0001)
}

func TestSetResourceStatus(t *testing.T) {
	ResourceStatusGauge.Reset()
	ctx := context.TODO()

	SetResourceStatus(ctx, "orange-id", ResourceAvailable)
	assert.Equal(t, 1.0, prometheusTest.ToFloat64(ResourceStatusGauge.WithLabelValues("orange-id", string(ResourceAvailable))))

	SetResourceStatus(ctx, "orange-id", ResourceUnavailable)
	assert.Equal(t, 0.0, prometheusTest.ToFloat64(ResourceStatusGauge.WithLabelValues("orange-id", string(ResourceAvailable))))
	assert.Equal(t, 1.0, prometheusTest.ToFloat64(ResourceStatusGauge.WithLabelValues("orange-id", string(ResourceUnavailable))))

	DeleteResourceStatus(ctx, "orange-id")
	assert.Equal(t, 0, prometheusTest.CollectAndCount(ResourceStatusGauge))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Outcome(nil))
	assert.Equal(t, OutcomeFailure, Outcome(errors.New("boom")))
}
