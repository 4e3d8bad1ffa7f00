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

package awsstorage

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/smithy-go"
)

const (
	secretMarkedForDeletionMsg    = "marked for deletion"
	secretScheduledForDeletionMsg = "scheduled for deletion"
)

var (
	errCodeResourceNotFound = (&types.ResourceNotFoundException{}).ErrorCode()
	errCodeInvalidRequest   = (&types.InvalidRequestException{}).ErrorCode()
	errCodeResourceExists   = (&types.ResourceExistsException{}).ErrorCode()
)

// isAWSErr tells whether the err is a smithy API error with the code and the message containing the provided
// string.
func isAWSErr(err error, code string, message string) bool {
	var awsError smithy.APIError
	if errors.As(err, &awsError) {
		return awsError.ErrorCode() == code && strings.Contains(awsError.ErrorMessage(), message)
	}
	return false
}

func isAwsNotFoundError(err error) bool {
	return isAWSErr(err, errCodeResourceNotFound, "")
}

func isAwsScheduledForDeletionError(err error) bool {
	return isAWSErr(err, errCodeInvalidRequest, secretScheduledForDeletionMsg)
}

func isAwsSecretMarkedForDeletionError(err error) bool {
	return isAWSErr(err, errCodeInvalidRequest, secretMarkedForDeletionMsg)
}

func isAwsInvalidRequestError(err error) bool {
	return isAWSErr(err, errCodeInvalidRequest, "")
}

func isAwsResourceExistsError(err error) bool {
	return isAWSErr(err, errCodeResourceExists, "")
}
