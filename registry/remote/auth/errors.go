/*
Copyright The Ferry Authors.
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package auth

import "errors"

// Errors returned by the auth client.
var (
	// ErrBasicCredentialNotFound is returned when the credential is not found
	// for basic auth.
	ErrBasicCredentialNotFound = errors.New("basic credential not found")

	// ErrMissingCredentials is returned when a credential required by the
	// negotiated auth scheme is absent or incomplete.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrMissingAuthParameter is returned when a challenge lacks a parameter
	// required to fetch a token, such as "realm" or "service".
	ErrMissingAuthParameter = errors.New("missing auth parameter")

	// ErrEmptyTokenReturned is returned when the authorization service
	// responds successfully but with no usable token.
	ErrEmptyTokenReturned = errors.New("empty token returned")
)
