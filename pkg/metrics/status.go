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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

type ResourceStatus string

const (
	ResourceAvailable   ResourceStatus = "Available"
	ResourceUnavailable ResourceStatus = "Unavailable"
)

var (
	currentStatus     = map[string]ResourceStatus{}
	currentStatusLock sync.Mutex
)

// SetResourceStatus flips the status gauge of the resource. The gauge of the previous status (if different) is set
// to 0, the gauge of the new status to 1.
func SetResourceStatus(ctx context.Context, resourceID string, status ResourceStatus) {
	currentStatusLock.Lock()
	defer currentStatusLock.Unlock()

	lg := logs.FromContext(ctx)
	previous, ok := currentStatus[resourceID]
	lg.V(logs.DebugLevel).Info("SetResourceStatus", "resource", resourceID, "status", status, "previous", previous)

	if ok && previous != status {
		ResourceStatusGauge.WithLabelValues(resourceID, string(previous)).Set(0)
	}
	ResourceStatusGauge.WithLabelValues(resourceID, string(status)).Set(1)
	currentStatus[resourceID] = status
}

// DeleteResourceStatus removes all the status gauges of the resource.
func DeleteResourceStatus(ctx context.Context, resourceID string) {
	currentStatusLock.Lock()
	defer currentStatusLock.Unlock()

	logs.FromContext(ctx).V(logs.DebugLevel).Info("DeleteResourceStatus", "resource", resourceID)
	ResourceStatusGauge.DeletePartialMatch(prometheus.Labels{"resource": resourceID})
	delete(currentStatus, resourceID)
}
