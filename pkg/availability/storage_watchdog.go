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

package availability

import (
	"context"
	"fmt"

	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"github.com/redhat-appstudio/autoconfig/pkg/metrics"
)

type StorageWatchdog struct {
	Storage credentialstorage.CredentialStorage
}

var _ Checker = (*StorageWatchdog)(nil)

func (r *StorageWatchdog) Check(ctx context.Context) error {
	if err := r.Storage.Examine(ctx); err != nil {
		logs.FromContext(ctx).Error(err, "credential storage is not available")
		metrics.StorageAvailabilityGauge.Set(0)
		return fmt.Errorf("credential storage: %w", err)
	}
	logs.FromContext(ctx).V(logs.DebugLevel).Info("credential storage is available")
	metrics.StorageAvailabilityGauge.Set(1)
	return nil
}
