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

package config

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var mutex sync.Mutex

// CustomValidationOptions
type CustomValidationOptions struct {
	AllowInsecureURLs bool
}

var validatorInstance *validator.Validate

func getInstance() *validator.Validate {
	mutex.Lock()
	defer mutex.Unlock()
	if validatorInstance == nil {
		validatorInstance = newValidator(CustomValidationOptions{})
	}
	return validatorInstance
}

// ValidateStruct validates struct on the preconfigured validator instance
func ValidateStruct(s interface{}) error {
	err := getInstance().Struct(s)
	if err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}
	return nil
}

// SetupCustomValidations creates new validator instance and configures it with requested validations
func SetupCustomValidations(options CustomValidationOptions) error {
	mutex.Lock()
	defer mutex.Unlock()
	//if we change validation rules, we must re-create validator instance
	v := validator.New()
	if err := registerValidations(v, options); err != nil {
		return err
	}
	validatorInstance = v
	return nil
}

func newValidator(options CustomValidationOptions) *validator.Validate {
	v := validator.New()
	// the built-in registrations cannot fail
	_ = registerValidations(v, options)
	return v
}

func registerValidations(v *validator.Validate, options CustomValidationOptions) error {
	var err error
	if options.AllowInsecureURLs {
		err = v.RegisterValidation("https_only", alwaysTrue)
	} else {
		err = v.RegisterValidation("https_only", isHttpsUrl)
	}
	if err != nil {
		return fmt.Errorf("failed to register custom validation %w", err)
	}

	if err = v.RegisterValidation("jdbc_url", isJdbcUrl); err != nil {
		return fmt.Errorf("failed to register custom validation %w", err)
	}

	if err = v.RegisterValidation("resource_id", isResourceId); err != nil {
		return fmt.Errorf("failed to register custom validation %w", err)
	}
	return nil
}

func isHttpsUrl(fl validator.FieldLevel) bool {
	return strings.HasPrefix(fl.Field().String(), "https://")
}

func isJdbcUrl(fl validator.FieldLevel) bool {
	return strings.HasPrefix(fl.Field().String(), "jdbc:")
}

// isResourceId rejects the ids that could not be told apart from a list of aliases.
func isResourceId(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if strings.TrimSpace(id) == "" {
		return false
	}
	return strings.IndexFunc(id, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	}) == -1
}

func alwaysTrue(_ validator.FieldLevel) bool {
	return true
}
