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

// Package autoconfig binds the persistence units of the deployed applications to the data sources registered in
// the server.
package autoconfig

import (
	"context"
	"fmt"
	"time"

	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"github.com/redhat-appstudio/autoconfig/pkg/metrics"
	"github.com/redhat-appstudio/autoconfig/pkg/rerror"
)

// AutoConfig fills in the missing data source configuration of the applications being deployed.
type AutoConfig struct {
	resolver Resolver
}

type Option func(*AutoConfig)

// WithAutoCreate enables the registration of managed copies of non-managed data sources.
func WithAutoCreate(autoCreate bool) Option {
	return func(ac *AutoConfig) {
		ac.resolver.AutoCreate = autoCreate
	}
}

func New(reg Registry, opts ...Option) *AutoConfig {
	ac := &AutoConfig{resolver: Resolver{Registry: reg}}
	for _, o := range opts {
		o(ac)
	}
	return ac
}

// Deploy resolves the data sources of all the persistence units of the application. The resolved ids are written
// back to the units of the application so that the application is fully configured afterwards. All the units are
// processed even if some of them fail. The returned error aggregates all the failures. A failed deployment leaves
// the application untouched and removes the managed data sources registered on its behalf.
func (ac *AutoConfig) Deploy(ctx context.Context, app *api.AppModule) (info *api.AppInfo, err error) {
	if app == nil {
		return nil, fmt.Errorf("%w: nil application", ErrNoSuitableResource)
	}

	lg := logs.FromContext(ctx, "app", app.ID)
	ctx = logs.IntoContext(ctx, lg)

	start := time.Now()
	defer func() {
		metrics.DeploymentDurationHistogram.WithLabelValues(metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	}()
	defer logs.TimeTrack(lg, start, "auto-configure application")

	if err = config.ValidateStruct(app); err != nil {
		return nil, fmt.Errorf("invalid application '%s': %w", app.ID, err)
	}

	failures := rerror.NewAggregatedError(fmt.Sprintf("failed to auto-configure the application '%s'", app.ID))

	var resolved []resolvedUnit
	var created []string
	for pmi := range app.PersistenceModules {
		pm := &app.PersistenceModules[pmi]
		refs := OwningRefs(app, pm)

		for ui := range pm.Units {
			unit := &pm.Units[ui]
			res, err := ac.resolveUnit(ctx, unit, refs)
			if err != nil {
				failures.Add(err)
				continue
			}
			created = append(created, res.Created...)
			resolved = append(resolved, resolvedUnit{unit: unit, resolution: res})
		}
	}

	if err = failures.ErrorOrNil(); err != nil {
		lg.Error(err, "application auto-configuration failed", "failures", failures.Len())
		ac.rollback(ctx, created)
		return nil, err
	}

	info = &api.AppInfo{AppID: app.ID, PersistenceUnits: make([]api.ResolvedBinding, 0, len(resolved))}
	for _, ru := range resolved {
		ru.unit.JtaDataSource = ru.resolution.Binding.Transactional.String()
		ru.unit.NonJtaDataSource = ru.resolution.Binding.NonTransactional.String()
		info.PersistenceUnits = append(info.PersistenceUnits, ru.resolution.Binding)
	}

	lg.Info("application auto-configured", "units", len(info.PersistenceUnits))
	return info, nil
}

type resolvedUnit struct {
	unit       *api.PersistenceUnit
	resolution *Resolution
}

func (ac *AutoConfig) resolveUnit(ctx context.Context, unit *api.PersistenceUnit, refs []string) (*Resolution, error) {
	lg := logs.FromContext(ctx, "unit", unit.Name)

	res, err := ac.resolver.Resolve(unit, refs)
	if err != nil {
		metrics.BindingResolutionsCounter.WithLabelValues(string(StrategyNone), metrics.OutcomeFailure).Inc()
		lg.V(logs.DebugLevel).Info("failed to resolve the persistence unit", "refs", refs, "error", err.Error())
		return nil, err
	}
	metrics.BindingResolutionsCounter.WithLabelValues(string(res.Strategy), metrics.OutcomeSuccess).Inc()

	for _, id := range res.Created {
		logs.AuditLog(ctx).Info("registered managed data source", "resource", id, "unit", unit.Name)
	}

	lg.V(logs.DebugLevel).Info("persistence unit resolved",
		"strategy", res.Strategy,
		"jta", res.Binding.Transactional,
		"nonJta", res.Binding.NonTransactional)

	return res, nil
}

// rollback removes the managed data sources registered during a failed deployment.
func (ac *AutoConfig) rollback(ctx context.Context, created []string) {
	for _, id := range created {
		if _, err := ac.resolver.Registry.Remove(id); err != nil {
			logs.FromContext(ctx).Error(err, "failed to remove the managed data source of the failed deployment", "resource", id)
			continue
		}
		logs.AuditLog(ctx).Info("removed managed data source of the failed deployment", "resource", id)
	}
}

// OwningRefs returns the resource ids the web modules owning the persistence module refer to. A persistence
// module packaged inside a web module is owned by that module only, otherwise all the web modules of the
// application are considered, in their declaration order.
func OwningRefs(app *api.AppModule, pm *api.PersistenceModule) []string {
	var modules []*api.WebModule
	if pm.OwningModuleID != "" {
		if wm := app.FindWebModule(pm.OwningModuleID); wm != nil {
			modules = append(modules, wm)
		}
	} else {
		for i := range app.WebModules {
			modules = append(modules, &app.WebModules[i])
		}
	}

	var refs []string
	seen := map[string]bool{}
	for _, wm := range modules {
		for _, ref := range wm.References() {
			if ref == "" || seen[ref] {
				continue
			}
			seen[ref] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
