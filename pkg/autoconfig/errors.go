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
)

var (
	ErrUnknownResource    = errors.New("unknown resource")
	ErrNotADataSource     = errors.New("resource is not a data source")
	ErrNoSuitableResource = errors.New("no suitable data source found")
)

// UnknownResourceError is returned when a persistence unit explicitly references a data source that is not
// registered. It matches ErrUnknownResource.
type UnknownResourceError struct {
	Unit       string
	Binding    BindingKind
	ResourceID string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("%s: persistence unit '%s' refers to '%s' as its %s", ErrUnknownResource, e.Unit, e.ResourceID, e.Binding)
}

func (e *UnknownResourceError) Is(target error) bool {
	return target == ErrUnknownResource
}
