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
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redhat-appstudio/autoconfig/pkg/config"
	"github.com/redhat-appstudio/autoconfig/pkg/credentialstorage"
	"github.com/redhat-appstudio/autoconfig/pkg/httptransport"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

var _ credentialstorage.CredentialStorage = (*AwsCredentialStorage)(nil)

var (
	errNoConfig                = errors.New("no AWS configuration provided")
	errGotNilSecret            = errors.New("got nil secret from aws secretmanager")
	errAWSSecretCreationFailed = errors.New("failed to create the secret in AWS storage")
	errAWSSecretDeletionFailed = errors.New("failed to delete the secret from AWS storage")
	errAWSUnknownError         = errors.New("not able to get secret from the aws storage for some unknown reason")

	awsRequestCountMetric = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "aws_request_count_total",
		Help:      "The request counts to AWS Secrets Manager categorized by HTTP method status code",
	}, []string{"method", "status"})

	awsResponseTimeMetric = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.MetricsNamespace,
		Subsystem: config.MetricsSubsystem,
		Name:      "aws_response_time_seconds",
		Help:      "The response time of AWS Secrets Manager requests categorized by HTTP method and status code",
	}, []string{"method", "status"})
)

const (
	// Creating a secret right after the secret with the same name was deleted may take some time, until the old one
	// is cleared completely. The attempts are spread exponentially.
	secretCreationRetryCount = 10

	resourceTag = "autoconfig/resource"
)

// awsClient is the subset of the secretsmanager.Client methods the storage uses.
type awsClient interface {
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	ListSecrets(ctx context.Context, params *secretsmanager.ListSecretsInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

type AwsCredentialStorage struct {
	// InstanceId prefixes the names of the secrets so that several servers can share the same AWS account.
	InstanceId string
	Config     *aws.Config
	// MetricsRegisterer enables the collection of the request metrics when not nil.
	MetricsRegisterer prometheus.Registerer

	client awsClient
}

func (s *AwsCredentialStorage) Initialize(ctx context.Context) error {
	lg(ctx).Info("initializing AWS credential storage")

	if s.client == nil {
		if err := s.initClient(ctx); err != nil {
			return err
		}
	}

	if errCheck := s.Examine(ctx); errCheck != nil {
		return fmt.Errorf("failed to initialize AWS credential storage: %w", errCheck)
	}

	return nil
}

func (s *AwsCredentialStorage) initClient(ctx context.Context) error {
	if s.Config == nil {
		return fmt.Errorf("failed to initialize AWS credential storage: %w", errNoConfig)
	}

	if s.MetricsRegisterer == nil {
		lg(ctx).Info("no metrics registry configured - metrics collection for AWS access is disabled")
		s.client = secretsmanager.NewFromConfig(*s.Config)
		return nil
	}

	for _, c := range []prometheus.Collector{awsRequestCountMetric, awsResponseTimeMetric} {
		if err := s.MetricsRegisterer.Register(c); err != nil {
			if !errors.As(err, &prometheus.AlreadyRegisteredError{}) {
				return fmt.Errorf("failed to register AWS request metrics: %w", err)
			}
		}
	}

	httpClient := &http.Client{
		Transport: httptransport.InstrumentedRoundTripper{
			Default: httptransport.MethodAndStatusInstruments(awsRequestCountMetric, awsResponseTimeMetric),
		},
	}
	s.client = secretsmanager.NewFromConfig(*s.Config, func(o *secretsmanager.Options) {
		o.HTTPClient = httpClient
	})
	return nil
}

// Examine makes a simple request to verify that the credentials are correct.
func (s *AwsCredentialStorage) Examine(ctx context.Context) error {
	_, err := s.client.ListSecrets(ctx, &secretsmanager.ListSecretsInput{MaxResults: aws.Int32(1)})
	if err != nil {
		return fmt.Errorf("failed to list the secrets to check the AWS client is properly configured: %w", err)
	}
	return nil
}

func (s *AwsCredentialStorage) Store(ctx context.Context, id credentialstorage.CredentialID, data []byte) error {
	lg := lg(ctx).WithValues("credentialID", id)
	lg.V(logs.DebugLevel).Info("storing data")

	ctx = logs.IntoContext(ctx, lg)

	if err := s.createOrUpdateAwsSecret(ctx, id, data); err != nil {
		lg.Error(err, "secret creation failed")
		return fmt.Errorf("%w: %s", errAWSSecretCreationFailed, err.Error())
	}
	return nil
}

func (s *AwsCredentialStorage) Get(ctx context.Context, id credentialstorage.CredentialID) ([]byte, error) {
	lg := lg(ctx).WithValues("credentialID", id)

	secretName := s.secretName(id)
	lg.V(logs.DebugLevel).Info("getting the credentials", "secretname", secretName)

	getResult, err := s.getAwsSecret(ctx, secretName)
	switch {
	case err == nil:
		return getResult.SecretBinary, nil
	case isAwsNotFoundError(err):
		lg.V(logs.DebugLevel).Info("secret not found in aws storage")
		return nil, fmt.Errorf("%w: %s", credentialstorage.NotFoundError, err.Error())
	case isAwsSecretMarkedForDeletionError(err):
		lg.Info("secret marked for deletion in aws storage, returning NotFound error")
		return nil, fmt.Errorf("%w: %s", credentialstorage.NotFoundError, "secret is marked for deletion in aws storage")
	case isAwsInvalidRequestError(err):
		lg.Error(err, "invalid request to aws secret storage")
		return nil, fmt.Errorf("invalid request to aws secret storage: %w", err)
	default:
		lg.Error(err, "unknown error on reading aws secret storage")
		return nil, errAWSUnknownError
	}
}

func (s *AwsCredentialStorage) Delete(ctx context.Context, id credentialstorage.CredentialID) error {
	lg := lg(ctx).WithValues("credentialID", id)
	lg.V(logs.DebugLevel).Info("deleting the credentials")

	input := &secretsmanager.DeleteSecretInput{
		SecretId:                   s.secretName(id),
		ForceDeleteWithoutRecovery: aws.Bool(true),
	}

	if _, err := s.client.DeleteSecret(ctx, input); err != nil {
		if isAwsNotFoundError(err) {
			return fmt.Errorf("%w: %s", credentialstorage.NotFoundError, err.Error())
		}
		lg.Error(err, "secret deletion failed")
		return fmt.Errorf("%w: %s", errAWSSecretDeletionFailed, err.Error())
	}
	return nil
}

func (s *AwsCredentialStorage) createOrUpdateAwsSecret(ctx context.Context, id credentialstorage.CredentialID, data []byte) error {
	lg := lg(ctx)
	lg.V(logs.DebugLevel).Info("creating the AWS secret")

	createInput := &secretsmanager.CreateSecretInput{
		Name:         s.secretName(id),
		SecretBinary: data,
		Tags: []types.Tag{
			{
				Key:   aws.String(resourceTag),
				Value: aws.String(id.ResourceID),
			},
		},
	}
	_, errCreate := s.client.CreateSecret(ctx, createInput)
	switch {
	case errCreate == nil:
		return nil
	case isAwsResourceExistsError(errCreate):
		lg.V(logs.DebugLevel).Info("AWS secret already exists, trying to update")
		if err := s.updateAwsSecret(ctx, createInput.Name, createInput.SecretBinary); err != nil {
			return fmt.Errorf("failed to update the secret: %w", err)
		}
		return nil
	case isAwsScheduledForDeletionError(errCreate):
		if err := s.doCreateWithRetry(ctx, createInput); err != nil {
			return fmt.Errorf("secret creation failed: %w", err)
		}
		return nil
	case isAwsInvalidRequestError(errCreate):
		return fmt.Errorf("invalid creation request to aws secret storage: %w", errCreate)
	default:
		return fmt.Errorf("error creating the secret: %w", errCreate)
	}
}

func (s *AwsCredentialStorage) doCreateWithRetry(ctx context.Context, createInput *secretsmanager.CreateSecretInput) error {
	lg := lg(ctx).WithValues("secretname", createInput.Name)
	err := backoff.Retry(func() error {
		_, errCreate := s.client.CreateSecret(ctx, createInput)
		if errCreate == nil {
			return nil
		}
		if isAwsScheduledForDeletionError(errCreate) {
			lg.Info("AWS secret scheduled for deletion, trying one more time")
			return errCreate //nolint:wrapcheck // no wrapcheck here, we want to retry
		}
		return backoff.Permanent(fmt.Errorf("error creating the secret: %w", errCreate)) //nolint:wrapcheck // This is an "indication error" to the Backoff framework that is not exposed further.
	}, backoff.WithContext(backoff.WithMaxRetries(s.retryBackOff(), secretCreationRetryCount), ctx))

	if err != nil {
		return fmt.Errorf("failed to create the secret after %d retries: %w", secretCreationRetryCount, err)
	}
	return nil
}

func (s *AwsCredentialStorage) updateAwsSecret(ctx context.Context, name *string, data []byte) error {
	lg(ctx).V(logs.DebugLevel).Info("updating the AWS secret")

	awsSecret, errGet := s.getAwsSecret(ctx, name)
	if errGet != nil {
		return fmt.Errorf("failed to get the secret '%s' to update it in aws secretmanager: %w", *name, errGet)
	}

	updateInput := &secretsmanager.UpdateSecretInput{SecretId: awsSecret.ARN, SecretBinary: data}
	if _, errUpdate := s.client.UpdateSecret(ctx, updateInput); errUpdate != nil {
		return fmt.Errorf("failed to update the secret '%s' in aws secretmanager: %w", *name, errUpdate)
	}
	return nil
}

func (s *AwsCredentialStorage) getAwsSecret(ctx context.Context, secretName *string) (*secretsmanager.GetSecretValueOutput, error) {
	awsSecret, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: secretName})
	if err != nil {
		return nil, fmt.Errorf("failed to get the secret '%s' from aws secretmanager: %w", *secretName, err)
	}
	if awsSecret == nil {
		return nil, fmt.Errorf("%w: secretname=%s", errGotNilSecret, *secretName)
	}
	return awsSecret, nil
}

func (s *AwsCredentialStorage) secretName(id credentialstorage.CredentialID) *string {
	if s.InstanceId == "" {
		return aws.String(id.Key())
	}
	return aws.String(s.InstanceId + "/" + id.Key())
}

func (s *AwsCredentialStorage) retryBackOff() backoff.BackOff {
	return backoff.NewExponentialBackOff()
}

func lg(ctx context.Context) logr.Logger {
	return logs.FromContext(ctx, "credentialstorage", "AWS")
}
