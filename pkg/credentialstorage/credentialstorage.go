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

package credentialstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// CredentialID identifies the credentials in the storage. The credentials belong to a single resource.
type CredentialID struct {
	ResourceID string
}

// String returns the string representation of the CredentialID.
func (c CredentialID) String() string {
	return c.ResourceID
}

// Key returns the string usable as a key (or a path) in the storage backends.
func (c CredentialID) Key() string {
	return strings.ReplaceAll(c.ResourceID, "/", "_")
}

var NotFoundError = errors.New("not found")
var ErrNoResourceID = errors.New("resource id is empty")

// CredentialStorage is a generic storage mechanism for storing credential data keyed by the CredentialID.
type CredentialStorage interface {
	// Initialize initializes the connection to the underlying data store, etc.
	Initialize(ctx context.Context) error
	// Examine checks that the underlying data store is reachable.
	Examine(ctx context.Context) error
	// Store stores the provided data under given id
	Store(ctx context.Context, id CredentialID, data []byte) error
	// Get retrieves the data under the given id. A NotFoundError is returned if the data is not found.
	Get(ctx context.Context, id CredentialID) ([]byte, error)
	// Delete deletes the data of given id. A NotFoundError is returned if there is no such data.
	Delete(ctx context.Context, id CredentialID) error
}

// TypedCredentialStorage is a generic "companion" to the "raw" CredentialStorage interface which uses
// strongly typed arguments instead of the generic CredentialID and []byte.
type TypedCredentialStorage[ID any, D any] interface {
	// Initialize initializes the connection to the underlying data store, etc.
	Initialize(ctx context.Context) error
	// Store stores the provided data under given id
	Store(ctx context.Context, id *ID, data *D) error
	// Get retrieves the data under the given id. A NotFoundError is returned if the data is not found.
	Get(ctx context.Context, id *ID) (*D, error)
	// Delete deletes the data of given id. A NotFoundError is returned if there is no such data.
	Delete(ctx context.Context, id *ID) error
}

// DefaultTypedCredentialStorage is the default implementation of the TypedCredentialStorage interface
// that uses the provided functions to convert between the id and data types to CredentialID and []byte
// respectively.
type DefaultTypedCredentialStorage[ID any, D any] struct {
	// DataTypeName is the human-readable name of the data type that is being stored. This is used
	// in error messages.
	DataTypeName string

	// CredentialStorage is the underlying storage used for the actual operations against the persistent
	// storage. This must be initialized explicitly before it is used in this typed storage instance.
	CredentialStorage CredentialStorage

	// ToID is a function that converts the strongly typed ID to the generic CredentialID.
	ToID func(*ID) (*CredentialID, error)

	// Serialize is a function to convert the strongly type data into a byte array. You can use
	// for example the SerializeJSON function.
	Serialize func(*D) ([]byte, error)

	// Deserialize is a function to convert the byte array back to the strongly type data. You can use
	// for example the DeserializeJSON function.
	Deserialize func([]byte, *D) error
}

// Credentials are the secret parts of the data source configuration.
type Credentials struct {
	UserName string `json:"userName,omitempty"`
	Password string `json:"password,omitempty"`
}

// IsEmpty tells whether there's nothing to configure.
func (c *Credentials) IsEmpty() bool {
	return c == nil || (c.UserName == "" && c.Password == "")
}

// ResourceToID converts the id of a resource to the CredentialID.
func ResourceToID(resourceID *string) (*CredentialID, error) {
	if resourceID == nil || *resourceID == "" {
		return nil, fmt.Errorf("failed to convert resource id to credential storage ID: %w", ErrNoResourceID)
	}
	return &CredentialID{ResourceID: *resourceID}, nil
}

// NewJSONSerializingCredentialStorage is a convenience function to construct a TypedCredentialStorage of
// the data source credentials keyed by the resource ids.
func NewJSONSerializingCredentialStorage(storage CredentialStorage) TypedCredentialStorage[string, Credentials] {
	return &DefaultTypedCredentialStorage[string, Credentials]{
		DataTypeName:      "credentials",
		CredentialStorage: storage,
		ToID:              ResourceToID,
		Serialize:         SerializeJSON[Credentials],
		Deserialize:       DeserializeJSON[Credentials],
	}
}

// SerializeJSON is a thin wrapper around Marshal function of encoding/json.
func SerializeJSON[D any](obj *D) ([]byte, error) {
	bytes, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize data: %w", err)
	}
	return bytes, nil
}

// DeserializeJSON is a thin wrapper around Unmarshal function of encoding/json.
func DeserializeJSON[D any](data []byte, obj *D) error {
	if err := json.Unmarshal(data, obj); err != nil {
		return fmt.Errorf("failed to deserialize the data: %w", err)
	}
	return nil
}

var _ TypedCredentialStorage[string, string] = (*DefaultTypedCredentialStorage[string, string])(nil)

// Delete implements TypedCredentialStorage
func (s *DefaultTypedCredentialStorage[ID, D]) Delete(ctx context.Context, id *ID) error {
	realId, errId := s.ToID(id)
	if errId != nil {
		return fmt.Errorf("failed to create object id during deleting the credentials: %w", errId)
	}
	if err := s.CredentialStorage.Delete(ctx, *realId); err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.DataTypeName, err)
	}
	return nil
}

// Get implements TypedCredentialStorage
func (s *DefaultTypedCredentialStorage[ID, D]) Get(ctx context.Context, id *ID) (*D, error) {
	realId, errId := s.ToID(id)
	if errId != nil {
		return nil, fmt.Errorf("failed to create object id during getting the credentials: %w", errId)
	}

	d, err := s.CredentialStorage.Get(ctx, *realId)
	if err != nil {
		return nil, fmt.Errorf("failed to get the %s: %w", s.DataTypeName, err)
	}

	var parsed D
	if err := s.Deserialize(d, &parsed); err != nil {
		return nil, fmt.Errorf("failed to deserialize the data to %s: %w", s.DataTypeName, err)
	}
	return &parsed, nil
}

// Initialize implements TypedCredentialStorage. It is a noop.
func (s *DefaultTypedCredentialStorage[ID, D]) Initialize(ctx context.Context) error {
	return nil
}

// Store implements TypedCredentialStorage
func (s *DefaultTypedCredentialStorage[ID, D]) Store(ctx context.Context, id *ID, data *D) error {
	credId, errId := s.ToID(id)
	if errId != nil {
		return fmt.Errorf("failed to create object id during storing the credentials: %w", errId)
	}

	bytes, err := s.Serialize(data)
	if err != nil {
		return fmt.Errorf("failed to serialize the %s for storage: %w", s.DataTypeName, err)
	}

	if err = s.CredentialStorage.Store(ctx, *credId, bytes); err != nil {
		return fmt.Errorf("failed to store %s: %w", s.DataTypeName, err)
	}

	return nil
}
