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

// Package registry holds the resources registered in the server, keyed by their ids.
package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/properties"
)

// Registry is the in-memory registry of the server resources. The resources are normalized on registration and
// the registry hands out the very same *api.ResourceInfo instances on every lookup. It is safe for concurrent use,
// though it is expected to be written to mostly during the server setup.
type Registry struct {
	// ordered is the list of registered resources in the order of registration.
	ordered []*api.ResourceHandle
	// index maps both the ids and the aliases to the handles.
	index map[string]*api.ResourceHandle

	lock sync.RWMutex
}

// dataSourceProperties is the subset of the data source properties that is validated on registration.
type dataSourceProperties struct {
	JdbcUrl string `validate:"omitempty,jdbc_url"`
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{index: map[string]*api.ResourceHandle{}}
}

// Normalize converts the declared resource to its normalized form. The property values are trimmed, the JtaManaged
// flag is parsed and the aliases are split. The declared resource is not modified.
func Normalize(res *api.Resource) (*api.ResourceInfo, error) {
	if res == nil {
		return nil, fmt.Errorf("%w: nil resource", ErrInvalidResource)
	}
	if err := config.ValidateStruct(res); err != nil {
		return nil, fmt.Errorf("%w '%s': %s", ErrInvalidResource, res.ID, err.Error())
	}

	info := &api.ResourceInfo{
		ID:         res.ID,
		Type:       res.Type,
		Properties: properties.Normalize(res.Properties),
	}

	if info.IsDataSource() {
		managed, err := properties.Bool(info.Properties, api.JtaManagedProperty)
		if err != nil {
			return nil, fmt.Errorf("%w of '%s': %s", ErrInvalidProperty, res.ID, err.Error())
		}
		info.JtaManaged = managed
		if managed == nil {
			// blank values are the same as no value at all
			delete(info.Properties, api.JtaManagedProperty)
		} else {
			info.Properties[api.JtaManagedProperty] = properties.FormatBool(managed)
		}

		if err := config.ValidateStruct(&dataSourceProperties{JdbcUrl: info.Properties[api.JdbcUrlProperty]}); err != nil {
			return nil, fmt.Errorf("%w of '%s': %s", ErrInvalidProperty, res.ID, err.Error())
		}
	}

	for _, alias := range properties.List(info.Properties[api.AliasesProperty]) {
		if alias != info.ID {
			info.Aliases = append(info.Aliases, alias)
		}
	}

	return info, nil
}

// Register normalizes the resource and adds it to the registry. It fails with a DuplicateResourceError if the id
// or any of the aliases is already taken.
func (r *Registry) Register(res *api.Resource) (*api.ResourceHandle, error) {
	info, err := Normalize(res)
	if err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	r.ensureIndex()

	for _, key := range append([]string{info.ID}, info.Aliases...) {
		if existing, ok := r.index[key]; ok {
			return nil, &DuplicateResourceError{ID: key, ExistingID: existing.ID}
		}
	}

	handle := &api.ResourceHandle{
		ID:   info.ID,
		UID:  uuid.New(),
		Info: info,
	}

	r.index[info.ID] = handle
	for _, alias := range info.Aliases {
		r.index[alias] = handle
	}
	r.ordered = append(r.ordered, handle)

	return handle, nil
}

// Lookup returns the resource registered under the provided id or alias.
func (r *Registry) Lookup(id string) (*api.ResourceInfo, error) {
	h, err := r.Handle(id)
	if err != nil {
		return nil, err
	}
	return h.Info, nil
}

// Handle returns the handle of the resource registered under the provided id or alias.
func (r *Registry) Handle(id string) (*api.ResourceHandle, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	h, ok := r.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrResourceNotFound, id)
	}
	return h, nil
}

// Contains tells whether there is a resource with the provided id or alias.
func (r *Registry) Contains(id string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()

	_, ok := r.index[id]
	return ok
}

// List returns all the resources in the order of their registration.
func (r *Registry) List() []*api.ResourceInfo {
	return r.list(func(*api.ResourceInfo) bool { return true })
}

// ListByType returns the resources of the provided type in the order of their registration.
func (r *Registry) ListByType(t api.ResourceType) []*api.ResourceInfo {
	return r.list(func(info *api.ResourceInfo) bool { return info.Type == t })
}

func (r *Registry) list(filter func(*api.ResourceInfo) bool) []*api.ResourceInfo {
	r.lock.RLock()
	defer r.lock.RUnlock()

	ret := make([]*api.ResourceInfo, 0, len(r.ordered))
	for _, h := range r.ordered {
		if filter(h.Info) {
			ret = append(ret, h.Info)
		}
	}
	return ret
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.ordered)
}

// Remove removes the resource with the provided id, together with its aliases. Removing by an alias is not
// supported.
func (r *Registry) Remove(id string) (*api.ResourceInfo, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	h, ok := r.index[id]
	if !ok || h.ID != id {
		return nil, fmt.Errorf("%w: '%s'", ErrResourceNotFound, id)
	}

	delete(r.index, h.ID)
	for _, alias := range h.Info.Aliases {
		delete(r.index, alias)
	}

	for i, o := range r.ordered {
		if o == h {
			r.ordered = append(r.ordered[:i], r.ordered[i+1:]...)
			break
		}
	}

	return h.Info, nil
}

func (r *Registry) ensureIndex() {
	if r.index == nil {
		r.index = map[string]*api.ResourceHandle{}
	}
}
