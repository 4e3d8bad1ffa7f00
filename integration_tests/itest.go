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

package integrationtests

import (
	"context"
	"net/http"

	"github.com/redhat-appstudio/autoconfig/pkg/assembler"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage/vaultstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

const testDriverName = "itest-driver"

var ITest = struct {
	Context   context.Context //nolint: containedctx // we DO want the context shared across all integration tests...
	Cancel    context.CancelFunc
	Vault     *vaultstorage.FakeVault
	Storage   credentialstorage.TypedCredentialStorage[string, credentialstorage.Credentials]
	Driver    *assembler.TestDriver
	Assembler *assembler.Assembler
	Router    http.Handler
}{}

func init() {
	logs.InitDevelLoggers()
	// the fake Vault only speaks plain http
	if err := config.SetupCustomValidations(config.CustomValidationOptions{AllowInsecureURLs: true}); err != nil {
		panic(err)
	}
}
