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
	"errors"
	"sync"
	"time"

	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"github.com/redhat-appstudio/autoconfig/pkg/rerror"
)

const DefaultInterval = 60 * time.Second

var ErrNotChecked = errors.New("availability not checked yet")

// Checker is a single availability check.
type Checker interface {
	Check(ctx context.Context) error
}

// SystemsWatchdog periodically runs the checkers and remembers the outcome of the last round for the readiness
// probe.
type SystemsWatchdog struct {
	Checkers []Checker
	// Interval between the checks, DefaultInterval if zero.
	Interval time.Duration

	lock    sync.RWMutex
	checked bool
	lastErr error
}

// Start runs the first round of checks synchronously and then keeps checking in the background until the context
// is done.
func (r *SystemsWatchdog) Start(ctx context.Context) error {
	interval := r.Interval
	if interval == 0 {
		interval = DefaultInterval
	}

	r.CheckNow(ctx)

	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				r.CheckNow(ctx)
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
	return nil
}

// CheckNow runs all the checkers and returns the aggregated failures.
func (r *SystemsWatchdog) CheckNow(ctx context.Context) error {
	failures := rerror.NewAggregatedError("systems not available")
	for _, c := range r.Checkers {
		failures.Add(c.Check(ctx))
	}
	err := failures.ErrorOrNil()

	r.lock.Lock()
	r.checked = true
	r.lastErr = err
	r.lock.Unlock()

	if err != nil {
		logs.FromContext(ctx).Error(err, "availability check failed")
	} else {
		logs.FromContext(ctx).V(logs.DebugLevel).Info("all systems available")
	}
	return err
}

// Ready returns the outcome of the last round of checks.
func (r *SystemsWatchdog) Ready() error {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if !r.checked {
		return ErrNotChecked
	}
	return r.lastErr
}
