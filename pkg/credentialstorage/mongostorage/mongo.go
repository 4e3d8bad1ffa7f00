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

package mongostorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ credentialstorage.CredentialStorage = (*MongoCredentialStorage)(nil)

var errMongoNotInitialized = errors.New("mongo credential storage not initialized")

const defaultConnectTimeout = 10 * time.Second

type MongoStorageConfig struct {
	URI            string `validate:"required,uri"`
	Database       string `validate:"required"`
	Collection     string `validate:"required"`
	ConnectTimeout time.Duration
}

// collection is the subset of the mongo.Collection methods the storage uses.
type collection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type pinger interface {
	Ping(ctx context.Context, rp *readpref.ReadPref) error
}

// MongoCredentialStorage keeps one document per credential in a single collection. The document id is the key of
// the credential id.
type MongoCredentialStorage struct {
	Config *MongoStorageConfig

	client     *mongo.Client
	pinger     pinger
	collection collection
}

type credentialDocument struct {
	ID        string    `bson:"_id"`
	Resource  string    `bson:"resource"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func (s *MongoCredentialStorage) Initialize(ctx context.Context) error {
	lg(ctx).Info("initializing mongo credential storage")

	if s.collection == nil {
		if err := s.connect(ctx); err != nil {
			return err
		}
	}

	if err := s.Examine(ctx); err != nil {
		return fmt.Errorf("failed to initialize mongo credential storage: %w", err)
	}
	return nil
}

func (s *MongoCredentialStorage) connect(ctx context.Context) error {
	if s.Config == nil {
		return fmt.Errorf("%w: no configuration", errMongoNotInitialized)
	}
	if err := config.ValidateStruct(s.Config); err != nil {
		return fmt.Errorf("error validating storage config: %w", err)
	}

	timeout := s.Config.ConnectTimeout
	if timeout == 0 {
		timeout = defaultConnectTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(s.Config.URI).SetConnectTimeout(timeout))
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}

	s.client = client
	s.pinger = client
	s.collection = client.Database(s.Config.Database).Collection(s.Config.Collection)
	return nil
}

// Examine pings the primary of the replica set.
func (s *MongoCredentialStorage) Examine(ctx context.Context) error {
	if s.pinger == nil {
		return errMongoNotInitialized
	}
	if err := s.pinger.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongo: %w", err)
	}
	return nil
}

func (s *MongoCredentialStorage) Store(ctx context.Context, id credentialstorage.CredentialID, data []byte) error {
	if s.collection == nil {
		return errMongoNotInitialized
	}
	lg(ctx).V(logs.DebugLevel).Info("storing data", "credentialID", id)

	doc := credentialDocument{
		ID:        id.Key(),
		Resource:  id.ResourceID,
		Data:      data,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to store the credentials of %s: %w", id, err)
	}
	return nil
}

func (s *MongoCredentialStorage) Get(ctx context.Context, id credentialstorage.CredentialID) ([]byte, error) {
	if s.collection == nil {
		return nil, errMongoNotInitialized
	}
	lg(ctx).V(logs.DebugLevel).Info("getting the credentials", "credentialID", id)

	doc := credentialDocument{}
	if err := s.collection.FindOne(ctx, bson.M{"_id": id.Key()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", credentialstorage.NotFoundError, id)
		}
		return nil, fmt.Errorf("failed to read the credentials of %s: %w", id, err)
	}
	return doc.Data, nil
}

func (s *MongoCredentialStorage) Delete(ctx context.Context, id credentialstorage.CredentialID) error {
	if s.collection == nil {
		return errMongoNotInitialized
	}
	lg(ctx).V(logs.DebugLevel).Info("deleting the credentials", "credentialID", id)

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": id.Key()})
	if err != nil {
		return fmt.Errorf("failed to delete the credentials of %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", credentialstorage.NotFoundError, id)
	}
	return nil
}

// Close disconnects the client. It is a noop if the storage did not open the connection itself.
func (s *MongoCredentialStorage) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	return nil
}

func lg(ctx context.Context) logr.Logger {
	return logs.FromContext(ctx, "credentialstorage", "mongo")
}
