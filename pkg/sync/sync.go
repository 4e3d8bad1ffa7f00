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

package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"github.com/redhat-appstudio/autoconfig/pkg/registry"
)

// Target is where the resources are synced to.
type Target interface {
	Lookup(id string) (*api.ResourceInfo, error)
	CreateResource(ctx context.Context, res *api.Resource) (*api.ResourceInfo, error)
	DestroyResource(ctx context.Context, id string) error
}

// Syncer synchronizes the declared resources with the resources held by the target.
type Syncer struct {
	target Target
}

func New(target Target) Syncer {
	return Syncer{target: target}
}

// Sync makes the target hold the resource described by the blueprint.
// Returns true if the resource was created or updated, false if there was no change detected.
func (s *Syncer) Sync(ctx context.Context, blueprint *api.Resource, diffOpts cmp.Option) (bool, *api.ResourceInfo, error) {
	lg := logs.FromContext(ctx)

	desired, err := registry.Normalize(blueprint)
	if err != nil {
		return false, nil, fmt.Errorf("error normalizing the resource to sync: %w", err)
	}

	actual, err := s.target.Lookup(desired.ID)
	if err != nil {
		if !errors.Is(err, registry.ErrResourceNotFound) {
			lg.Error(err, "failed to read resource to be synced", "resource", desired.ID)
			return false, nil, fmt.Errorf("error getting the resource '%s': %w", desired.ID, err)
		}
		actual = nil
	}

	if actual == nil {
		actual, err := s.create(ctx, blueprint)
		if err != nil {
			return false, nil, err
		}
		return true, actual, nil
	}

	return s.update(ctx, actual, desired, blueprint, diffOpts)
}

// Delete removes the resource from the target. A resource that doesn't exist is not an error.
func (s *Syncer) Delete(ctx context.Context, id string) error {
	if err := s.target.DestroyResource(ctx, id); err != nil && !errors.Is(err, registry.ErrResourceNotFound) {
		logs.FromContext(ctx).Error(err, "failed to delete resource", "resource", id)
		return fmt.Errorf("error deleting the resource '%s': %w", id, err)
	}
	return nil
}

func (s *Syncer) create(ctx context.Context, blueprint *api.Resource) (*api.ResourceInfo, error) {
	actual, err := s.target.CreateResource(ctx, blueprint)
	if err != nil {
		logs.FromContext(ctx).Error(err, "failed to create resource", "resource", blueprint.ID)
		return nil, fmt.Errorf("error while creating new resource '%s': %w", blueprint.ID, err)
	}
	return actual, nil
}

// update replaces the actual resource if it differs from the desired one. The registered resources are immutable,
// so the update is done by destroying the resource and creating it again. If the creation fails, the previous
// version of the resource is restored.
func (s *Syncer) update(ctx context.Context, actual *api.ResourceInfo, desired *api.ResourceInfo, blueprint *api.Resource, diffOpts cmp.Option) (bool, *api.ResourceInfo, error) {
	lg := logs.FromContext(ctx, "resource", actual.ID)

	if actual.ID != desired.ID {
		return false, actual, &registry.DuplicateResourceError{ID: desired.ID, ExistingID: actual.ID}
	}

	diff := cmp.Diff(actual, desired, diffOpts)
	if len(diff) == 0 {
		return false, actual, nil
	}

	lg.V(logs.DebugLevel).Info("resource changed, re-creating it", "diff", diff)

	previous := actual.ToResource()
	if err := s.target.DestroyResource(ctx, actual.ID); err != nil {
		lg.Error(err, "failed to delete resource before re-creating it")
		return false, actual, fmt.Errorf("error while deleting the resource '%s' to recreate it: %w", actual.ID, err)
	}

	created, err := s.create(ctx, blueprint)
	if err != nil {
		if _, restoreErr := s.target.CreateResource(ctx, &previous); restoreErr != nil {
			lg.Error(restoreErr, "failed to restore the previous version of the resource")
		}
		return false, nil, err
	}
	return true, created, nil
}
