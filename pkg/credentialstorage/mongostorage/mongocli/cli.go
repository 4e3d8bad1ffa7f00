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

package mongocli

import (
	"time"

	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/mongostorage"
)

type MongoCliArgs struct {
	MongoURI            string        `arg:"--mongo-uri, env" help:"Connection string of the MongoDB holding the credentials."`
	MongoDatabase       string        `arg:"--mongo-database, env" default:"autoconfig" help:"The database holding the credentials collection."`
	MongoCollection     string        `arg:"--mongo-collection, env" default:"credentials" help:"The collection holding the credentials."`
	MongoConnectTimeout time.Duration `arg:"--mongo-connect-timeout, env" default:"10s" help:"Timeout of the initial connection to MongoDB."`
}

func MongoStorageConfigFromCliArgs(args *MongoCliArgs) *mongostorage.MongoStorageConfig {
	return &mongostorage.MongoStorageConfig{
		URI:            args.MongoURI,
		Database:       args.MongoDatabase,
		Collection:     args.MongoCollection,
		ConnectTimeout: args.MongoConnectTimeout,
	}
}

func CreateMongoStorage(args *MongoCliArgs) credentialstorage.CredentialStorage {
	return &mongostorage.MongoCredentialStorage{Config: MongoStorageConfigFromCliArgs(args)}
}
