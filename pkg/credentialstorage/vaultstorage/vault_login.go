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

package vaultstorage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	vault "github.com/hashicorp/vault/api"
	"github.com/redhat-appstudio/autoconfig/pkg/logs"
)

type loginHandler struct {
	client     *vault.Client
	authMethod vault.AuthMethod
	// retries is the number of additional attempts of the initial login
	retries uint64
}

// Login tries to log in to Vault and starts a background routine to renew the login token.
func (h *loginHandler) Login(ctx context.Context) error {
	var authInfo *vault.Secret
	attempt := func() error {
		var err error
		authInfo, err = h.doLogin(ctx)
		if err != nil && isClientError(err) {
			// wrong credentials do not get better with time
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(h.newBackOff(), h.retries), ctx)); err != nil {
		return err //nolint:wrapcheck // the error is already wrapped by doLogin
	}

	// the loop picks up the token changes through the shared client
	go h.loginLoop(ctx, authInfo)

	return nil
}

func (h *loginHandler) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.Multiplier = 2.0
	b.MaxInterval = 512 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// loginLoop keeps the token renewed, re-logging in with an increasing pause whenever the token can no longer be
// renewed. It only returns when the context is done.
func (h *loginHandler) loginLoop(ctx context.Context, authInfo *vault.Secret) {
	lg := logs.FromContext(ctx, "vaultLoginHandler", true)

	relogin := h.newBackOff()
	for {
		var err error

		if authInfo == nil || authInfo.Auth == nil || !authInfo.Auth.Renewable {
			pause := relogin.NextBackOff()
			lg.V(logs.DebugLevel).Info("token not renewable, reattempting login", "pause", pause)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pause):
			}

			authInfo, err = h.doLogin(ctx)
			if err != nil {
				lg.Error(err, "failed to login to vault after detecting the current token is not renewable")
			}

			continue
		}
		relogin.Reset()

		var reLogin bool
		reLogin, err = h.startRenew(ctx, authInfo)
		if err != nil {
			lg.Error(err, "failed to run the Vault token renewal routine")
		}
		if !reLogin {
			return
		}

		authInfo, err = h.doLogin(ctx)
		if err != nil {
			lg.Error(err, "failed to login to Vault")
		}
	}
}

// doLogin performs a single login attempt and, after some basic error checking, returns the vault secret
func (h *loginHandler) doLogin(ctx context.Context) (*vault.Secret, error) {
	authInfo, err := h.client.Auth().Login(ctx, h.authMethod)
	if err != nil {
		return nil, fmt.Errorf("error while authenticating: %w", err)
	}
	if authInfo == nil {
		return nil, noAuthInfoInVaultError
	}

	logs.FromContext(ctx).V(logs.DebugLevel).Info("logged into Vault")

	return authInfo, nil
}

// startRenew renews the Vault token until it can no longer be renewed (returns true, a new login is needed) or
// the context is done (returns false).
func (h *loginHandler) startRenew(ctx context.Context, secret *vault.Secret) (bool, error) {
	watcher, err := h.client.NewLifetimeWatcher(&vault.LifetimeWatcherInput{
		Secret: secret,
	})
	if err != nil {
		return true, fmt.Errorf("failed to construct Vault token lifetime watcher: %w", err)
	}

	lg := logs.FromContext(ctx)

	go watcher.Start()
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			lg.Info("stopping the Vault token renewal routine because the context is done")
			return false, nil
		case err = <-watcher.DoneCh():
			return true, err
		case <-watcher.RenewCh():
			lg.V(logs.DebugLevel).Info("successfully renewed the Vault token")
		}
	}
}

func isClientError(err error) bool {
	var respErr *vault.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode >= http.StatusBadRequest && respErr.StatusCode < http.StatusInternalServerError
	}
	return false
}
