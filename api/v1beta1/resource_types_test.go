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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResourceInfoManagement(t *testing.T) {
	yes, no := true, false

	t.Run("third party", func(t *testing.T) {
		r := &ResourceInfo{}
		assert.True(t, r.IsThirdParty())
		assert.True(t, r.IsManaged())
		assert.False(t, r.IsNonManaged())
	})

	t.Run("managed", func(t *testing.T) {
		r := &ResourceInfo{JtaManaged: &yes}
		assert.False(t, r.IsThirdParty())
		assert.True(t, r.IsManaged())
		assert.False(t, r.IsNonManaged())
	})

	t.Run("non-managed", func(t *testing.T) {
		r := &ResourceInfo{JtaManaged: &no}
		assert.False(t, r.IsThirdParty())
		assert.False(t, r.IsManaged())
		assert.True(t, r.IsNonManaged())
	})
}

func TestSameDatabase(t *testing.T) {
	a := &ResourceInfo{Properties: map[string]string{JdbcDriverProperty: "orange", JdbcUrlProperty: "jdbc:orange:db"}}
	b := &ResourceInfo{Properties: map[string]string{JdbcDriverProperty: "orange", JdbcUrlProperty: "jdbc:orange:db"}}
	c := &ResourceInfo{Properties: map[string]string{JdbcDriverProperty: "lime", JdbcUrlProperty: "jdbc:orange:db"}}
	empty := &ResourceInfo{}

	assert.True(t, a.SameDatabase(b))
	assert.False(t, a.SameDatabase(c))
	assert.False(t, a.SameDatabase(nil))
	assert.False(t, empty.SameDatabase(&ResourceInfo{}))
}

func TestWebModuleReferences(t *testing.T) {
	wm := WebModule{
		ModuleID: "orange-id",
		ResourceRefs: []ResourceRef{
			{Name: "jdbc/lime", ResourceID: "lime-id"},
			{Name: "jms/queue", Type: QueueType},
			{Name: "yellow-id", Type: DataSourceType},
		},
	}

	assert.Equal(t, []string{"orange-id", "lime-id", "yellow-id"}, wm.References())
}

func TestHasExplicitBindings(t *testing.T) {
	assert.False(t, (&PersistenceUnit{Name: "u"}).HasExplicitBindings())
	assert.False(t, (&PersistenceUnit{Name: "u", JtaDataSource: "  "}).HasExplicitBindings())
	assert.True(t, (&PersistenceUnit{Name: "u", JtaDataSource: "a"}).HasExplicitBindings())
	assert.True(t, (&PersistenceUnit{Name: "u", NonJtaDataSource: "b"}).HasExplicitBindings())
}

func TestAppModuleLookups(t *testing.T) {
	app := &AppModule{ID: "orange-app"}
	app.AddWebModule(WebModule{ModuleID: "orange-web"})
	app.AddPersistenceModule(PersistenceModule{RootURL: "root"})

	assert.NotNil(t, app.FindWebModule("orange-web"))
	assert.Nil(t, app.FindWebModule("lime-web"))
	assert.Len(t, app.PersistenceModules, 1)

	info := &AppInfo{AppID: "orange-app", PersistenceUnits: []ResolvedBinding{{Unit: "orange-unit", Transactional: "orange-id"}}}
	assert.Equal(t, ResourceID("orange-id"), info.PersistenceUnit("orange-unit").Transactional)
	assert.False(t, info.PersistenceUnit("orange-unit").NonTransactional.IsSet())
	assert.Nil(t, info.PersistenceUnit("lime-unit"))
}

func TestToResourceCopiesProperties(t *testing.T) {
	info := &ResourceInfo{ID: "a", Type: DataSourceType, Properties: map[string]string{"k": "v"}}
	res := info.ToResource()
	res.Properties["k"] = "changed"

	assert.Equal(t, "v", info.Properties["k"])
	assert.Equal(t, "a", res.ID)
}
