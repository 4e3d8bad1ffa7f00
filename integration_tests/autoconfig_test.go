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
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"github.com/redhat-appstudio/autoconfig/pkg/autoconfig"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/registry"
)

func dataSource(id, url, managed string) *api.Resource {
	props := map[string]string{
		api.JdbcDriverProperty: testDriverName,
		api.JdbcUrlProperty:    url,
	}
	if managed != "" {
		props[api.JtaManagedProperty] = managed
	}
	return &api.Resource{ID: id, Type: api.DataSourceType, Properties: props}
}

func orangeApp(units ...api.PersistenceUnit) *api.AppModule {
	if len(units) == 0 {
		units = []api.PersistenceUnit{{Name: "orange-unit"}}
	}
	app := &api.AppModule{ID: "orange-app"}
	app.AddPersistenceModule(api.PersistenceModule{RootURL: "root", Units: units})
	app.AddWebModule(api.WebModule{ModuleID: "orange-id", ContextRoot: "orange-web"})
	return app
}

func destroyAll() {
	for _, info := range ITest.Assembler.Registry().List() {
		Expect(ITest.Assembler.DestroyResource(ITest.Context, info.ID)).To(Succeed())
	}
	ITest.Driver.Reset()
}

func call(method, path string, body interface{}) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	Expect(err).NotTo(HaveOccurred())
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ITest.Router.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("Deploy", func() {
	AfterEach(destroyAll)

	Describe("with a data source named after the web module", func() {
		var supplied *api.ResourceInfo

		BeforeEach(func() {
			var err error
			supplied, err = ITest.Assembler.CreateResource(ITest.Context, dataSource("orange-id", "jdbc:orange-web:some:stuff", "true "))
			Expect(err).NotTo(HaveOccurred())
		})

		It("binds the unit to the data source", func() {
			app := orangeApp()
			info, err := ITest.Assembler.Deploy(ITest.Context, app)
			Expect(err).NotTo(HaveOccurred())

			unit := info.PersistenceUnit("orange-unit")
			Expect(unit).NotTo(BeNil())
			Expect(unit.Transactional).To(Equal(api.ResourceID("orange-id")))
			Expect(unit.NonTransactional.IsSet()).To(BeFalse())

			Expect(app.PersistenceModules[0].Units[0].JtaDataSource).To(Equal("orange-id"))
		})

		It("keeps the very same resource in the registry", func() {
			_, err := ITest.Assembler.Deploy(ITest.Context, orangeApp())
			Expect(err).NotTo(HaveOccurred())

			found, err := ITest.Assembler.Lookup("orange-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeIdenticalTo(supplied))
			Expect(*found.JtaManaged).To(BeTrue())
		})

		It("opens and verifies the connection pool", func() {
			db, err := ITest.Assembler.DataSource("orange-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(db).NotTo(BeNil())
			Expect(ITest.Driver.DSNs()).To(ContainElement("orange-web:some:stuff"))
			Expect(ITest.Driver.Pings()).To(BeNumerically(">", 0))
		})

		It("rejects a duplicate", func() {
			_, err := ITest.Assembler.CreateResource(ITest.Context, dataSource("orange-id", "jdbc:orange:other", ""))
			Expect(err).To(MatchError(registry.ErrDuplicateResource))
		})
	})

	Describe("with explicit bindings", func() {
		BeforeEach(func() {
			_, err := ITest.Assembler.CreateResource(ITest.Context, dataSource("orange-id", "jdbc:orange:1", "true"))
			Expect(err).NotTo(HaveOccurred())
			_, err = ITest.Assembler.CreateResource(ITest.Context, dataSource("lime", "jdbc:lime:1", "true"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("honors the configured data source", func() {
			info, err := ITest.Assembler.Deploy(ITest.Context, orangeApp(api.PersistenceUnit{Name: "orange-unit", JtaDataSource: "java:comp/env/lime"}))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.PersistenceUnit("orange-unit").Transactional).To(Equal(api.ResourceID("lime")))
		})

		It("fails on an unknown data source", func() {
			_, err := ITest.Assembler.Deploy(ITest.Context, orangeApp(api.PersistenceUnit{Name: "orange-unit", JtaDataSource: "blueberry"}))
			Expect(err).To(MatchError(autoconfig.ErrUnknownResource))
		})
	})

	Describe("with a non-managed data source", func() {
		BeforeEach(func() {
			_, err := ITest.Assembler.CreateResource(ITest.Context, dataSource("orange-id", "jdbc:orange:1", "false"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("creates the managed copy and opens its pool", func() {
			info, err := ITest.Assembler.Deploy(ITest.Context, orangeApp())
			Expect(err).NotTo(HaveOccurred())

			unit := info.PersistenceUnit("orange-unit")
			Expect(unit.Transactional).To(Equal(api.ResourceID("orange-idJta")))
			Expect(unit.NonTransactional).To(Equal(api.ResourceID("orange-id")))

			created, err := ITest.Assembler.Lookup("orange-idJta")
			Expect(err).NotTo(HaveOccurred())
			Expect(created.IsManaged()).To(BeTrue())

			_, err = ITest.Assembler.DataSource("orange-idJta")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("with stored credentials", func() {
		It("merges them into the data source", func() {
			id := "orange-id"
			Expect(ITest.Storage.Store(ITest.Context, &id, &credentialstorage.Credentials{UserName: "scott", Password: "tiger"})).To(Succeed())
			defer func() {
				Expect(ITest.Storage.Delete(ITest.Context, &id)).To(Succeed())
			}()

			info, err := ITest.Assembler.CreateResource(ITest.Context, dataSource(id, "jdbc:orange:1", ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Properties).To(HaveKeyWithValue(api.UserNameProperty, "scott"))
			Expect(info.Properties).To(HaveKeyWithValue(api.PasswordProperty, "tiger"))
		})
	})
})

var _ = Describe("API", func() {
	AfterEach(destroyAll)

	It("creates resources and deploys applications", func() {
		res := dataSource("orange-id", "jdbc:orange-web:some:stuff", "true")
		res.Properties[api.PasswordProperty] = "tiger"

		rec := call(http.MethodPost, "/resources", res)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		created := api.ResourceInfo{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		Expect(created.Properties[api.PasswordProperty]).NotTo(Equal("tiger"))

		Expect(call(http.MethodPost, "/resources", res).Code).To(Equal(http.StatusConflict))

		rec = call(http.MethodPost, "/deploy", orangeApp())
		Expect(rec.Code).To(Equal(http.StatusOK))

		info := api.AppInfo{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &info)).To(Succeed())
		Expect(info.PersistenceUnit("orange-unit").Transactional).To(Equal(api.ResourceID("orange-id")))
	})

	It("reports unresolvable applications", func() {
		rec := call(http.MethodPost, "/deploy", orangeApp(api.PersistenceUnit{Name: "orange-unit", JtaDataSource: "blueberry"}))
		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))
	})

	It("deletes resources", func() {
		Expect(call(http.MethodPost, "/resources", dataSource("lime", "jdbc:lime:1", "")).Code).To(Equal(http.StatusCreated))
		Expect(call(http.MethodDelete, "/resources/lime", nil).Code).To(Equal(http.StatusNoContent))
		Expect(call(http.MethodGet, "/resources/lime", nil).Code).To(Equal(http.StatusNotFound))
	})
})
