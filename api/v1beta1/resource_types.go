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

package v1beta1

import (
	"strings"

	"github.com/google/uuid"
)

// ResourceID identifies a resource in the registry. The zero value means "no resource".
type ResourceID string

// IsSet tells whether the id points to some resource.
func (id ResourceID) IsSet() bool {
	return id != ""
}

func (id ResourceID) String() string {
	return string(id)
}

// Resource is a resource as declared in the server configuration or submitted through the API. It is not
// normalized in any way.
type Resource struct {
	// ID is the unique identifier of the resource.
	ID string `json:"id" yaml:"id" validate:"required,resource_id"`
	// Type is the kind of the resource, e.g. "DataSource".
	Type ResourceType `json:"type" yaml:"type" validate:"required"`
	// Properties is the raw configuration of the resource. The values may contain surrounding whitespace.
	// +optional
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// ResourceInfo is the normalized form of a Resource as held by the registry.
type ResourceInfo struct {
	ID         string            `json:"id" yaml:"id"`
	Type       ResourceType      `json:"type" yaml:"type"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
	// Aliases are the alternate ids under which the resource can also be looked up.
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	// JtaManaged is nil if the resource doesn't declare whether it participates in the server's transactions.
	// Such resources are considered to be controlled by a third party.
	JtaManaged *bool `json:"jtaManaged,omitempty" yaml:"jtaManaged,omitempty"`
}

// IsDataSource tells whether the resource is a data source.
func (r *ResourceInfo) IsDataSource() bool {
	return r.Type == DataSourceType
}

// IsThirdParty tells whether the resource doesn't declare its transactional management.
func (r *ResourceInfo) IsThirdParty() bool {
	return r.JtaManaged == nil
}

// IsManaged tells whether the resource can serve as a transactional data source, i.e. it either is explicitly
// managed or doesn't say.
func (r *ResourceInfo) IsManaged() bool {
	return r.JtaManaged == nil || *r.JtaManaged
}

// IsNonManaged tells whether the resource explicitly declares itself as not participating in the transactions.
func (r *ResourceInfo) IsNonManaged() bool {
	return r.JtaManaged != nil && !*r.JtaManaged
}

// SameDatabase tells whether the two resources connect to the same database using the same driver.
func (r *ResourceInfo) SameDatabase(other *ResourceInfo) bool {
	if other == nil {
		return false
	}
	url := r.Properties[JdbcUrlProperty]
	return url != "" &&
		url == other.Properties[JdbcUrlProperty] &&
		r.Properties[JdbcDriverProperty] == other.Properties[JdbcDriverProperty]
}

// ToResource converts the info back to the declared form, e.g. to persist or compare it.
func (r *ResourceInfo) ToResource() Resource {
	props := make(map[string]string, len(r.Properties))
	for k, v := range r.Properties {
		props[k] = v
	}
	return Resource{ID: r.ID, Type: r.Type, Properties: props}
}

// ResourceHandle is what the registry hands out when a resource is registered.
type ResourceHandle struct {
	ID   string
	UID  uuid.UUID
	Info *ResourceInfo
}

// ResourceRef is a declared dependency of a module on a resource.
type ResourceRef struct {
	// Name is the name under which the module refers to the resource.
	Name string `json:"name" yaml:"name" validate:"required"`
	// +optional
	Type ResourceType `json:"type,omitempty" yaml:"type,omitempty"`
	// ResourceID is the id of the server resource the reference is mapped to. If empty, the name is used.
	// +optional
	ResourceID string `json:"resourceId,omitempty" yaml:"resourceId,omitempty"`
}

// Target returns the id of the resource the reference points to.
func (r ResourceRef) Target() string {
	if r.ResourceID != "" {
		return r.ResourceID
	}
	return r.Name
}

// WebModule is a web application module of an application.
type WebModule struct {
	ModuleID string `json:"moduleId" yaml:"moduleId" validate:"required"`
	// +optional
	ContextRoot string `json:"contextRoot,omitempty" yaml:"contextRoot,omitempty"`
	// +optional
	ResourceRefs []ResourceRef `json:"resourceRefs,omitempty" yaml:"resourceRefs,omitempty" validate:"dive"`
}

// References returns the ids that the module contributes to the resolution of data sources. The module id itself
// goes first, followed by the targets of the declared resource references.
func (m *WebModule) References() []string {
	refs := []string{m.ModuleID}
	for _, r := range m.ResourceRefs {
		if r.Type != "" && r.Type != DataSourceType {
			continue
		}
		refs = append(refs, r.Target())
	}
	return refs
}

// PersistenceUnit is a named grouping of data access configuration.
type PersistenceUnit struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	// JtaDataSource is the explicitly configured transactional data source, if any.
	// +optional
	JtaDataSource string `json:"jtaDataSource,omitempty" yaml:"jtaDataSource,omitempty"`
	// NonJtaDataSource is the explicitly configured non-transactional data source, if any.
	// +optional
	NonJtaDataSource string `json:"nonJtaDataSource,omitempty" yaml:"nonJtaDataSource,omitempty"`
}

// HasExplicitBindings tells whether the unit configures any of its data sources.
func (u *PersistenceUnit) HasExplicitBindings() bool {
	return strings.TrimSpace(u.JtaDataSource) != "" || strings.TrimSpace(u.NonJtaDataSource) != ""
}

// PersistenceModule is a persistence descriptor with its units.
type PersistenceModule struct {
	RootURL string `json:"rootUrl" yaml:"rootUrl"`
	// OwningModuleID is the id of the web module the descriptor is packaged in. If empty, the descriptor is
	// application-wide.
	// +optional
	OwningModuleID string            `json:"owningModuleId,omitempty" yaml:"owningModuleId,omitempty"`
	Units          []PersistenceUnit `json:"units" yaml:"units" validate:"dive"`
}

// AppModule is an application being deployed.
type AppModule struct {
	ID string `json:"id" yaml:"id" validate:"required"`
	// +optional
	WebModules []WebModule `json:"webModules,omitempty" yaml:"webModules,omitempty" validate:"dive"`
	// +optional
	PersistenceModules []PersistenceModule `json:"persistenceModules,omitempty" yaml:"persistenceModules,omitempty" validate:"dive"`
}

// AddPersistenceModule appends the persistence module to the application.
func (a *AppModule) AddPersistenceModule(pm PersistenceModule) {
	a.PersistenceModules = append(a.PersistenceModules, pm)
}

// AddWebModule appends the web module to the application.
func (a *AppModule) AddWebModule(wm WebModule) {
	a.WebModules = append(a.WebModules, wm)
}

// FindWebModule returns the web module with the provided id or nil.
func (a *AppModule) FindWebModule(moduleID string) *WebModule {
	for i := range a.WebModules {
		if a.WebModules[i].ModuleID == moduleID {
			return &a.WebModules[i]
		}
	}
	return nil
}

// ResolvedBinding is the outcome of the data source resolution of a single persistence unit.
type ResolvedBinding struct {
	Unit          string     `json:"unit" yaml:"unit"`
	Transactional ResourceID `json:"transactional" yaml:"transactional"`
	// NonTransactional is empty if the unit has no non-transactional data source.
	NonTransactional ResourceID `json:"nonTransactional,omitempty" yaml:"nonTransactional,omitempty"`
}

// AppInfo is the deployable form of an application after the auto-configuration.
type AppInfo struct {
	AppID            string            `json:"appId" yaml:"appId"`
	PersistenceUnits []ResolvedBinding `json:"persistenceUnits" yaml:"persistenceUnits"`
}

// PersistenceUnit returns the binding of the unit with the provided name or nil.
func (a *AppInfo) PersistenceUnit(name string) *ResolvedBinding {
	for i := range a.PersistenceUnits {
		if a.PersistenceUnits[i].Unit == name {
			return &a.PersistenceUnits[i]
		}
	}
	return nil
}
