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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
)

var ResourceRegistrationsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "resource_registrations_total",
		Help:      "The number of attempts to register a resource, by the resource type and the outcome",
	},
	[]string{"type", "outcome"},
)

var BindingResolutionsCounter = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "binding_resolutions_total",
		Help:      "The number of resolved persistence unit bindings, by the strategy that produced the binding and the outcome",
	},
	[]string{"strategy", "outcome"},
)

var DeploymentDurationHistogram = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "deployment_duration_seconds",
		Help:      "The time it takes to auto-configure an application",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	},
	[]string{"outcome"},
)

var StorageAvailabilityGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "credential_storage_available",
		Help:      "Whether the credential storage is available (1) or not (0)",
	},
)

var ResourceStatusGauge = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "resource_status",
		Help:      "The status of a live resource opened by the server",
	},
	[]string{"resource", "status"},
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Outcome returns the outcome label value for the provided error.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func RegisterCommonMetrics(registerer prometheus.Registerer) error {
	registerer.MustRegister(ResourceRegistrationsCounter, BindingResolutionsCounter, DeploymentDurationHistogram, StorageAvailabilityGauge, ResourceStatusGauge)
	return nil
}
