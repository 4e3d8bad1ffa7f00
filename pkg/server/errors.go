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
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redhat-appstudio/autoconfig/pkg/autoconfig"
	"github.com/redhat-appstudio/autoconfig/pkg/registry"
)

// ErrorResponse is the body of all the failed API responses.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func throw(c *gin.Context, status int, err error) {
	c.AbortWithStatusJSON(status, ErrorResponse{Status: status, Message: err.Error()})
}

func throwBadRequest(c *gin.Context, err error) {
	throw(c, http.StatusBadRequest, err)
}

func throwNotFound(c *gin.Context, err error) {
	throw(c, http.StatusNotFound, err)
}

// throwError maps the error to the response status.
func throwError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, registry.ErrDuplicateResource):
		throw(c, http.StatusConflict, err)
	case errors.Is(err, registry.ErrInvalidResource), errors.Is(err, registry.ErrInvalidProperty), errors.As(err, &validationErrors):
		throwBadRequest(c, err)
	case errors.Is(err, registry.ErrResourceNotFound):
		throwNotFound(c, err)
	case errors.Is(err, autoconfig.ErrUnknownResource), errors.Is(err, autoconfig.ErrNotADataSource), errors.Is(err, autoconfig.ErrNoSuitableResource):
		throw(c, http.StatusUnprocessableEntity, err)
	default:
		throw(c, http.StatusInternalServerError, err)
	}
}
