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

package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	api "github.com/redhat-appstudio/autoconfig/api/v1beta1"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

const redacted = "*****"

func (s *Server) listResources(c *gin.Context) {
	var infos []*api.ResourceInfo
	if t := c.Query("type"); t != "" {
		infos = s.Assembler.Registry().ListByType(api.ResourceType(t))
	} else {
		infos = s.Assembler.Registry().List()
	}

	ret := make([]api.ResourceInfo, 0, len(infos))
	for _, info := range infos {
		ret = append(ret, redact(info))
	}
	c.JSON(http.StatusOK, ret)
}

func (s *Server) getResource(c *gin.Context) {
	info, err := s.Assembler.Lookup(c.Param("id"))
	if err != nil {
		throwError(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(info))
}

func (s *Server) createResource(c *gin.Context) {
	res := &api.Resource{}
	if err := c.ShouldBindJSON(res); err != nil {
		throwBadRequest(c, err)
		return
	}

	info, err := s.Assembler.CreateResource(c.Request.Context(), res)
	if err != nil {
		throwError(c, err)
		return
	}
	c.JSON(http.StatusCreated, redact(info))
}

func (s *Server) deleteResource(c *gin.Context) {
	if err := s.Assembler.DestroyResource(c.Request.Context(), c.Param("id")); err != nil {
		throwError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deploy(c *gin.Context) {
	app := &api.AppModule{}
	if err := c.ShouldBindJSON(app); err != nil {
		throwBadRequest(c, err)
		return
	}

	info, err := s.Assembler.Deploy(c.Request.Context(), app)
	if err != nil {
		logs.FromContext(c.Request.Context()).V(logs.DebugLevel).Info("deployment failed", "app", app.ID, "error", err.Error())
		throwError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// redact returns a copy of the resource info without the password.
func redact(info *api.ResourceInfo) api.ResourceInfo {
	ret := *info
	if _, ok := info.Properties[api.PasswordProperty]; ok {
		ret.Properties = make(map[string]string, len(info.Properties))
		for k, v := range info.Properties {
			ret.Properties[k] = v
		}
		ret.Properties[api.PasswordProperty] = redacted
	}
	return ret
}
