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
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"github.com/redhat-appstudio/autoconfig/pkg/metrics"
	"github.com/redhat-appstudio/autoconfig/pkg/rerror"
)

const defaultPingTimeout = 5 * time.Second

// DataSourceWatchdog pings the live data sources.
type DataSourceWatchdog struct {
	// DataSources returns the data sources to check, keyed by the resource ids.
	DataSources func() map[string]*sql.DB
	PingTimeout time.Duration
}

var _ Checker = (*DataSourceWatchdog)(nil)

func (r *DataSourceWatchdog) Check(ctx context.Context) error {
	timeout := r.PingTimeout
	if timeout == 0 {
		timeout = defaultPingTimeout
	}

	dataSources := r.DataSources()
	ids := make([]string, 0, len(dataSources))
	for id := range dataSources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	failures := rerror.NewAggregatedError("data sources not available")
	for _, id := range ids {
		if err := ping(ctx, dataSources[id], timeout); err != nil {
			logs.FromContext(ctx).Info("data source is not available", "resource", id, "error", err.Error())
			metrics.SetResourceStatus(ctx, id, metrics.ResourceUnavailable)
			failures.Add(fmt.Errorf("data source '%s': %w", id, err))
			continue
		}
		metrics.SetResourceStatus(ctx, id, metrics.ResourceAvailable)
	}
	//nolint:wrapcheck // the aggregated error is descriptive enough
	return failures.ErrorOrNil()
}

func ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	//nolint:wrapcheck // the caller wraps the error
	return db.PingContext(ctx)
}
