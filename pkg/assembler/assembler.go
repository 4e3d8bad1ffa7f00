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

// Package assembler wires the resource registry, the credential storage, the live data sources and the
// auto-configuration together. An Assembler is the whole server environment, there are no global singletons.
package assembler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"github.com/redhat-appstudio/autoconfig/pkg/autoconfig"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"github.com/redhat-appstudio/autoconfig/pkg/metrics"
	"github.com/redhat-appstudio/autoconfig/pkg/registry"
	"github.com/redhat-appstudio/autoconfig/pkg/rerror"
	resourcesync "github.com/redhat-appstudio/autoconfig/pkg/sync"
)

var (
	ErrClosed       = errors.New("assembler is closed")
	ErrNoDataSource = errors.New("no live data source")
)

const (
	jdbcPrefix       = "jdbc:"
	pingMaxRetries   = 5
	pingMaxElapsed   = 30 * time.Second
	defaultPingDelay = 100 * time.Millisecond
)

// IgnoreCredentials makes the comparison of resources ignore the credential properties. The credentials of
// a registered data source may come from the credential storage instead of the declaration.
var IgnoreCredentials = cmpopts.IgnoreMapEntries(func(k string, _ string) bool {
	return k == api.UserNameProperty || k == api.PasswordProperty
})

type Options struct {
	// Registry is the registry to use. A new one is created if nil.
	Registry *registry.Registry
	// Credentials is consulted for the user names and passwords that the data sources don't declare. The caller
	// initializes it.
	Credentials credentialstorage.TypedCredentialStorage[string, credentialstorage.Credentials]
	// AutoCreate enables the registration of managed copies of non-managed data sources during deployments.
	AutoCreate bool
	// VerifyConnections makes the assembler ping every data source it opens.
	VerifyConnections bool
	// PingBackOff returns the backoff policy of the connection verification. Exponential by default.
	PingBackOff func() backoff.BackOff
}

type Assembler struct {
	registry          *registry.Registry
	credentials       credentialstorage.TypedCredentialStorage[string, credentialstorage.Credentials]
	autoCreate        bool
	verifyConnections bool
	pingBackOff       func() backoff.BackOff
	syncer            resourcesync.Syncer

	lock        sync.Mutex
	dataSources map[string]*sql.DB
	// declared are the ids of the resources created by Sync.
	declared map[string]bool
	closed   bool
}

var _ resourcesync.Target = (*Assembler)(nil)

func New(ctx context.Context, opts Options) (*Assembler, error) {
	reg := opts.Registry
	if reg == nil {
		reg = registry.New()
	}

	a := &Assembler{
		registry:          reg,
		credentials:       opts.Credentials,
		autoCreate:        opts.AutoCreate,
		verifyConnections: opts.VerifyConnections,
		pingBackOff:       opts.PingBackOff,
		dataSources:       map[string]*sql.DB{},
		declared:          map[string]bool{},
	}
	if a.pingBackOff == nil {
		a.pingBackOff = defaultPingBackOff
	}
	a.syncer = resourcesync.New(a)

	logs.FromContext(ctx).V(logs.DebugLevel).Info("assembler created",
		"autoCreate", a.autoCreate,
		"verifyConnections", a.verifyConnections,
		"credentials", a.credentials != nil)

	return a, nil
}

func (a *Assembler) Registry() *registry.Registry {
	return a.registry
}

func (a *Assembler) Lookup(id string) (*api.ResourceInfo, error) {
	//nolint:wrapcheck // the registry errors are descriptive enough
	return a.registry.Lookup(id)
}

// CreateResource registers the resource. Data sources get their credentials from the credential storage if they
// don't declare them, and their connection pool is opened (and verified, if configured).
func (a *Assembler) CreateResource(ctx context.Context, res *api.Resource) (info *api.ResourceInfo, err error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil resource", registry.ErrInvalidResource)
	}

	defer func() {
		metrics.ResourceRegistrationsCounter.WithLabelValues(string(res.Type), metrics.Outcome(err)).Inc()
	}()

	if a.isClosed() {
		return nil, ErrClosed
	}

	lg := logs.FromContext(ctx, "resource", res.ID)
	ctx = logs.IntoContext(ctx, lg)

	declared := *res
	declared.Properties = copyProperties(res.Properties)
	if declared.Type == api.DataSourceType {
		if err = a.mergeCredentials(ctx, &declared); err != nil {
			return nil, err
		}
	}

	h, err := a.registry.Register(&declared)
	if err != nil {
		lg.V(logs.DebugLevel).Info("failed to register resource", "error", err.Error())
		return nil, fmt.Errorf("failed to register the resource '%s': %w", res.ID, err)
	}

	if h.Info.IsDataSource() {
		if err = a.openDataSource(ctx, h.Info); err != nil {
			if _, rmErr := a.registry.Remove(h.ID); rmErr != nil {
				lg.Error(rmErr, "failed to unregister resource after failing to open it")
			}
			return nil, err
		}
	}

	logs.AuditLog(ctx).Info("resource created", "type", h.Info.Type, "uid", h.UID)
	return h.Info, nil
}

// DestroyResource unregisters the resource and closes its connection pool, if any.
func (a *Assembler) DestroyResource(ctx context.Context, id string) error {
	info, err := a.registry.Remove(id)
	if err != nil {
		return fmt.Errorf("failed to destroy the resource: %w", err)
	}

	a.lock.Lock()
	db := a.dataSources[info.ID]
	delete(a.dataSources, info.ID)
	delete(a.declared, info.ID)
	a.lock.Unlock()

	metrics.DeleteResourceStatus(ctx, info.ID)
	logs.AuditLog(ctx).Info("resource destroyed", "resource", info.ID)

	if db != nil {
		if err := db.Close(); err != nil {
			return fmt.Errorf("failed to close the data source '%s': %w", info.ID, err)
		}
	}
	return nil
}

// DataSource returns the connection pool of the data source with the provided id or alias.
func (a *Assembler) DataSource(id string) (*sql.DB, error) {
	info, err := a.registry.Lookup(id)
	if err != nil {
		return nil, fmt.Errorf("failed to find the data source: %w", err)
	}

	a.lock.Lock()
	defer a.lock.Unlock()

	db, ok := a.dataSources[info.ID]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNoDataSource, info.ID)
	}
	return db, nil
}

// DataSources returns the connection pools of all the opened data sources keyed by the resource ids.
func (a *Assembler) DataSources() map[string]*sql.DB {
	a.lock.Lock()
	defer a.lock.Unlock()

	ret := make(map[string]*sql.DB, len(a.dataSources))
	for id, db := range a.dataSources {
		ret[id] = db
	}
	return ret
}

// Sync converges the registered resources to the desired ones. Resources that are not desired anymore are
// destroyed, unless they were created by other means than a previous Sync (through the API or during
// a deployment). All the resources are processed even if some of them fail.
func (a *Assembler) Sync(ctx context.Context, desired []api.Resource) error {
	lg := logs.FromContext(ctx)
	defer logs.TimeTrack(lg, time.Now(), "sync resources")

	failures := rerror.NewAggregatedError("failed to sync the resources")
	wanted := map[string]bool{}

	for i := range desired {
		res := &desired[i]
		wanted[res.ID] = true

		changed, info, err := a.syncer.Sync(ctx, res, cmp.Options{IgnoreCredentials})
		if err != nil {
			failures.Add(err)
			continue
		}

		a.lock.Lock()
		a.declared[info.ID] = true
		a.lock.Unlock()

		if changed {
			lg.Info("resource synced", "resource", info.ID)
		}
	}

	for _, id := range a.declaredIDs() {
		if wanted[id] {
			continue
		}
		if err := a.syncer.Delete(ctx, id); err != nil {
			failures.Add(err)
		}
	}

	//nolint:wrapcheck // the aggregated error is descriptive enough
	return failures.ErrorOrNil()
}

// Deploy auto-configures the application against the registered resources. The managed copies of data sources
// created during the deployment are opened like any other resource.
func (a *Assembler) Deploy(ctx context.Context, app *api.AppModule) (*api.AppInfo, error) {
	if a.isClosed() {
		return nil, ErrClosed
	}
	deployer := autoconfig.New(&deploymentRegistry{Assembler: a, ctx: ctx}, autoconfig.WithAutoCreate(a.autoCreate))
	//nolint:wrapcheck // the deployer errors are descriptive enough
	return deployer.Deploy(ctx, app)
}

// Close closes all the opened data sources. It is safe to call it more than once.
func (a *Assembler) Close(ctx context.Context) error {
	a.lock.Lock()
	if a.closed {
		a.lock.Unlock()
		return nil
	}
	a.closed = true
	dataSources := a.dataSources
	a.dataSources = map[string]*sql.DB{}
	a.lock.Unlock()

	failures := rerror.NewAggregatedError("failed to close the data sources")
	for id, db := range dataSources {
		metrics.DeleteResourceStatus(ctx, id)
		if err := db.Close(); err != nil {
			failures.Add(fmt.Errorf("data source '%s': %w", id, err))
		}
	}

	logs.FromContext(ctx).Info("assembler closed", "dataSources", len(dataSources))
	//nolint:wrapcheck // the aggregated error is descriptive enough
	return failures.ErrorOrNil()
}

func (a *Assembler) mergeCredentials(ctx context.Context, res *api.Resource) error {
	if a.credentials == nil {
		return nil
	}
	if strings.TrimSpace(res.Properties[api.UserNameProperty]) != "" && strings.TrimSpace(res.Properties[api.PasswordProperty]) != "" {
		return nil
	}

	id := res.ID
	creds, err := a.credentials.Get(ctx, &id)
	if err != nil {
		if errors.Is(err, credentialstorage.NotFoundError) {
			logs.FromContext(ctx).V(logs.DebugLevel).Info("no stored credentials")
			return nil
		}
		return fmt.Errorf("failed to read the credentials of '%s': %w", res.ID, err)
	}
	if creds.IsEmpty() {
		return nil
	}

	if strings.TrimSpace(res.Properties[api.UserNameProperty]) == "" && creds.UserName != "" {
		res.Properties[api.UserNameProperty] = creds.UserName
	}
	if strings.TrimSpace(res.Properties[api.PasswordProperty]) == "" && creds.Password != "" {
		res.Properties[api.PasswordProperty] = creds.Password
	}
	return nil
}

// openDataSource opens the connection pool using the database/sql driver named by the JdbcDriver property.
// Data sources without a driver are only registered.
func (a *Assembler) openDataSource(ctx context.Context, info *api.ResourceInfo) error {
	lg := logs.FromContext(ctx)

	driver := info.Properties[api.JdbcDriverProperty]
	if driver == "" {
		lg.V(logs.DebugLevel).Info("data source without a driver, no connection pool opened")
		return nil
	}

	db, err := sql.Open(driver, DSN(info))
	if err != nil {
		return fmt.Errorf("failed to open the data source '%s': %w", info.ID, err)
	}

	if a.verifyConnections {
		if err := a.ping(ctx, db); err != nil {
			metrics.SetResourceStatus(ctx, info.ID, metrics.ResourceUnavailable)
			_ = db.Close()
			return fmt.Errorf("failed to connect to the data source '%s': %w", info.ID, err)
		}
		metrics.SetResourceStatus(ctx, info.ID, metrics.ResourceAvailable)
	}

	a.lock.Lock()
	if a.closed {
		a.lock.Unlock()
		_ = db.Close()
		metrics.DeleteResourceStatus(ctx, info.ID)
		return ErrClosed
	}
	a.dataSources[info.ID] = db
	a.lock.Unlock()

	lg.Info("data source opened", "driver", driver)
	return nil
}

func (a *Assembler) ping(ctx context.Context, db *sql.DB) error {
	attempt := 0
	//nolint:wrapcheck // the caller wraps the error
	return backoff.Retry(func() error {
		attempt++
		err := db.PingContext(ctx)
		if err != nil {
			logs.FromContext(ctx).V(logs.DebugLevel).Info("data source ping failed", "attempt", attempt, "error", err.Error())
		}
		return err //nolint:wrapcheck // backoff only needs to know about the failure
	}, backoff.WithContext(backoff.WithMaxRetries(a.pingBackOff(), pingMaxRetries), ctx))
}

func (a *Assembler) declaredIDs() []string {
	a.lock.Lock()
	defer a.lock.Unlock()

	ids := make([]string, 0, len(a.declared))
	for id := range a.declared {
		ids = append(ids, id)
	}
	return ids
}

func (a *Assembler) isClosed() bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.closed
}

// DSN returns the data source name passed to the database/sql driver. It is the JdbcUrl without the "jdbc:"
// prefix.
func DSN(info *api.ResourceInfo) string {
	return strings.TrimPrefix(info.Properties[api.JdbcUrlProperty], jdbcPrefix)
}

func copyProperties(props map[string]string) map[string]string {
	ret := make(map[string]string, len(props))
	for k, v := range props {
		ret[k] = v
	}
	return ret
}

func defaultPingBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = defaultPingDelay
	b.MaxElapsedTime = pingMaxElapsed
	return b
}

// deploymentRegistry lets the resources registered during a deployment go through the assembler.
type deploymentRegistry struct {
	*Assembler
	ctx context.Context
}

var _ autoconfig.Registry = (*deploymentRegistry)(nil)

func (r *deploymentRegistry) ListByType(t api.ResourceType) []*api.ResourceInfo {
	return r.registry.ListByType(t)
}

func (r *deploymentRegistry) Remove(id string) (*api.ResourceInfo, error) {
	info, err := r.registry.Lookup(id)
	if err != nil {
		//nolint:wrapcheck // the registry errors are descriptive enough
		return nil, err
	}
	if err := r.DestroyResource(r.ctx, id); err != nil {
		return nil, err
	}
	return info, nil
}

func (r *deploymentRegistry) Register(res *api.Resource) (*api.ResourceHandle, error) {
	info, err := r.CreateResource(r.ctx, res)
	if err != nil {
		return nil, err
	}
	//nolint:wrapcheck // just registered, cannot fail
	return r.registry.Handle(info.ID)
}
