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

package registry

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateResource = errors.New("duplicate resource")
	ErrResourceNotFound  = errors.New("resource not found")
	ErrInvalidResource   = errors.New("invalid resource")
	ErrInvalidProperty   = errors.New("invalid resource property")
)

// DuplicateResourceError is returned when a resource is registered with an id (or an alias) that is already taken.
// It matches ErrDuplicateResource.
type DuplicateResourceError struct {
	// ID is the colliding id or alias.
	ID string
	// ExistingID is the id of the resource that already holds the ID.
	ExistingID string
}

func (e *DuplicateResourceError) Error() string {
	if e.ID == e.ExistingID {
		return fmt.Sprintf("%s: resource with id '%s' is already registered", ErrDuplicateResource, e.ID)
	}
	return fmt.Sprintf("%s: '%s' is already used by the resource '%s'", ErrDuplicateResource, e.ID, e.ExistingID)
}

func (e *DuplicateResourceError) Is(target error) bool {
	return target == ErrDuplicateResource
}
