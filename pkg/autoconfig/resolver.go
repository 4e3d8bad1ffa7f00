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

package autoconfig

import (
	"errors"
	"fmt"
	"strings"

	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"github.com/redhat-appstudio/autoconfig/pkg/registry"
)

// BindingKind distinguishes the two data sources a persistence unit can be bound to.
type BindingKind string

const (
	JtaBinding    BindingKind = "jta-data-source"
	NonJtaBinding BindingKind = "non-jta-data-source"
)

// Strategy names the way the transactional binding of a unit was found.
type Strategy string

const (
	StrategyExplicit   Strategy = "explicit"
	StrategyConvention Strategy = "convention"
	StrategyModuleRef  Strategy = "module_ref"
	StrategySingle     Strategy = "single"
	StrategyNone       Strategy = "none"
)

// Registry is what the resolver needs from the resource registry.
type Registry interface {
	Lookup(id string) (*api.ResourceInfo, error)
	ListByType(t api.ResourceType) []*api.ResourceInfo
	Register(res *api.Resource) (*api.ResourceHandle, error)
	Remove(id string) (*api.ResourceInfo, error)
}

var _ Registry = (*registry.Registry)(nil)

// Resolver infers the data sources of persistence units from the resources registered in the server.
type Resolver struct {
	Registry Registry
	// AutoCreate makes the resolver register a managed copy of a non-managed data source that a unit would
	// otherwise use as its transactional data source.
	AutoCreate bool
}

// Resolution is the outcome of the resolution of a single unit.
type Resolution struct {
	Binding  api.ResolvedBinding
	Strategy Strategy
	// Created lists the ids of the resources registered during the resolution.
	Created []string
}

type candidate struct {
	info     *api.ResourceInfo
	strategy Strategy
}

type lookup struct {
	id       string
	strategy Strategy
}

// Resolve resolves the bindings of the unit using the default resolver over the provided registry.
func Resolve(unit *api.PersistenceUnit, owningRefs []string, reg Registry) (*api.ResolvedBinding, error) {
	res, err := (&Resolver{Registry: reg}).Resolve(unit, owningRefs)
	if err != nil {
		return nil, err
	}
	return &res.Binding, nil
}

// Resolve finds the transactional and the non-transactional data source of the unit. Explicitly configured data
// sources must exist. Otherwise the transactional data source is looked up by the unit name, then by the
// references of the owning module (in order) and finally, if the server has just a single data source, that one
// is used. The non-transactional data source is optional and is left empty if no suitable one is found.
func (r *Resolver) Resolve(unit *api.PersistenceUnit, owningRefs []string) (*Resolution, error) {
	if unit == nil {
		return nil, fmt.Errorf("%w: nil persistence unit", ErrNoSuitableResource)
	}

	res := &Resolution{Binding: api.ResolvedBinding{Unit: unit.Name}, Strategy: StrategyNone}

	jtaID := StripJndiPrefix(unit.JtaDataSource)
	nonJtaID := StripJndiPrefix(unit.NonJtaDataSource)

	var jta, nonJta *api.ResourceInfo
	var err error
	if jtaID != "" {
		if jta, err = r.explicit(unit.Name, JtaBinding, jtaID); err != nil {
			return nil, err
		}
		res.Strategy = StrategyExplicit
	}
	if nonJtaID != "" {
		if nonJta, err = r.explicit(unit.Name, NonJtaBinding, nonJtaID); err != nil {
			return nil, err
		}
	}

	if jta == nil && nonJta != nil {
		jta = r.managedSibling(nonJta)
		if jta == nil && !nonJta.IsNonManaged() {
			jta = nonJta
		}
		if jta != nil {
			res.Strategy = StrategyExplicit
		}
	}

	if jta == nil {
		found := r.implicit(unit.Name, owningRefs)
		if found == nil {
			return nil, fmt.Errorf("%w for the persistence unit '%s'", ErrNoSuitableResource, unit.Name)
		}
		res.Strategy = found.strategy
		jta = found.info

		if jta.IsNonManaged() {
			if nonJta == nil {
				nonJta = jta
			}
			if sibling := r.managedSibling(jta); sibling != nil {
				jta = sibling
			}
		}
	}

	if jta.IsNonManaged() && r.AutoCreate {
		managed, created, err := r.managedCopy(jta)
		if err != nil {
			return nil, err
		}
		if created {
			res.Created = append(res.Created, managed.ID)
		}
		if nonJta == nil {
			nonJta = jta
		}
		jta = managed
	}

	if nonJta == nil && nonJtaID == "" {
		nonJta = r.inferNonJta(unit.Name, jta)
	}

	res.Binding.Transactional = api.ResourceID(jta.ID)
	if nonJta != nil && (nonJta.ID != jta.ID || nonJtaID != "") {
		res.Binding.NonTransactional = api.ResourceID(nonJta.ID)
	}

	return res, nil
}

// StripJndiPrefix trims the name and removes the JNDI prefix from it, if any.
func StripJndiPrefix(name string) string {
	name = strings.TrimSpace(name)
	for _, prefix := range api.JndiPrefixes {
		if strings.HasPrefix(name, prefix) {
			return strings.TrimPrefix(name, prefix)
		}
	}
	return name
}

func (r *Resolver) explicit(unitName string, kind BindingKind, id string) (*api.ResourceInfo, error) {
	info, err := r.Registry.Lookup(id)
	if err != nil {
		if errors.Is(err, registry.ErrResourceNotFound) {
			return nil, &UnknownResourceError{Unit: unitName, Binding: kind, ResourceID: id}
		}
		return nil, fmt.Errorf("failed to look up the %s '%s' of the persistence unit '%s': %w", kind, id, unitName, err)
	}
	if !info.IsDataSource() {
		return nil, fmt.Errorf("%w: the %s '%s' of the persistence unit '%s' is a %s", ErrNotADataSource, kind, id, unitName, info.Type)
	}
	return info, nil
}

// implicit returns the first managed data source found by the unit name or the owning module references. If
// there's none, the first non-managed one is returned, and if there's none of those either, the only data source
// in the server (if there's only one).
func (r *Resolver) implicit(unitName string, owningRefs []string) *candidate {
	var nonManaged *candidate

	lookups := []lookup{{id: unitName, strategy: StrategyConvention}}
	for _, ref := range owningRefs {
		lookups = append(lookups, lookup{id: StripJndiPrefix(ref), strategy: StrategyModuleRef})
	}

	for _, l := range lookups {
		info := r.dataSource(l.id)
		if info == nil {
			continue
		}
		if info.IsManaged() {
			return &candidate{info: info, strategy: l.strategy}
		}
		if nonManaged == nil {
			nonManaged = &candidate{info: info, strategy: l.strategy}
		}
	}

	if nonManaged != nil {
		return nonManaged
	}

	if all := r.Registry.ListByType(api.DataSourceType); len(all) == 1 {
		return &candidate{info: all[0], strategy: StrategySingle}
	}

	return nil
}

func (r *Resolver) inferNonJta(unitName string, jta *api.ResourceInfo) *api.ResourceInfo {
	if jta.IsThirdParty() {
		return nil
	}

	for _, id := range []string{unitName + api.NonJtaSuffix, jta.ID + api.NonJtaSuffix} {
		if info := r.dataSource(id); info != nil && info.ID != jta.ID {
			return info
		}
	}

	for _, ds := range r.Registry.ListByType(api.DataSourceType) {
		if ds.IsNonManaged() && ds.ID != jta.ID && ds.SameDatabase(jta) {
			return ds
		}
	}

	return nil
}

func (r *Resolver) managedSibling(info *api.ResourceInfo) *api.ResourceInfo {
	for _, ds := range r.Registry.ListByType(api.DataSourceType) {
		if ds.ID != info.ID && ds.JtaManaged != nil && *ds.JtaManaged && ds.SameDatabase(info) {
			return ds
		}
	}
	return nil
}

func (r *Resolver) managedCopy(info *api.ResourceInfo) (*api.ResourceInfo, bool, error) {
	id := info.ID + api.JtaSuffix
	if existing := r.dataSource(id); existing != nil {
		if existing.JtaManaged == nil || !*existing.JtaManaged || !existing.SameDatabase(info) {
			return nil, false, fmt.Errorf("%w: the data source '%s' is not a managed data source of the database of '%s'",
				ErrNoSuitableResource, id, info.ID)
		}
		return existing, false, nil
	}

	copied := info.ToResource()
	copied.ID = id
	copied.Properties[api.JtaManagedProperty] = "true"
	delete(copied.Properties, api.AliasesProperty)

	h, err := r.Registry.Register(&copied)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create the managed copy of the data source '%s': %w", info.ID, err)
	}
	return h.Info, true, nil
}

// dataSource returns the data source with the provided id or nil if there is no such data source.
func (r *Resolver) dataSource(id string) *api.ResourceInfo {
	if id == "" {
		return nil
	}
	info, err := r.Registry.Lookup(id)
	if err != nil || !info.IsDataSource() {
		return nil
	}
	return info
}
