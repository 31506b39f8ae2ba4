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

package credentials

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/ferry-project/ferry-go/registry/remote/auth"
	"github.com/ferry-project/ferry-go/registry/remote/credentials/trace"
)

const (
	remoteCredentialsPrefix       = "docker-credential-"
	emptyUsername                 = "<token>"
	errCredentialsNotFoundMessage = "credentials not found in native keychain"
)

// dockerCredentials mimics how docker credential helper binaries store
// credential information.
//
// Reference:
//   - https://docs.docker.com/engine/reference/commandline/login#credentials-store
type dockerCredentials struct {
	ServerURL string `json:"ServerURL"`
	Username  string `json:"Username"`
	Secret    string `json:"Secret"`
}

// nativeStore implements a credentials store using native keychain to keep
// credentials secure.
type nativeStore struct {
	exec executer
}

// NewNativeStore creates a new native store that uses a remote helper program
// to manage credentials.
//
// The argument of NewNativeStore can be the native keychains
// ("wincred" for Windows, "pass" for linux and "osxkeychain" for macOS),
// or any program that follows the docker-credentials-helper protocol.
//
// Reference:
//   - https://docs.docker.com/engine/reference/commandline/login#credentials-store
func NewNativeStore(helperSuffix string) Store {
	return &nativeStore{
		exec: &executable{
			name: remoteCredentialsPrefix + helperSuffix,
		},
	}
}

// NewDefaultNativeStore returns a native store based on the platform-default
// docker credentials helper and a bool indicating if the native store is
// available.
//   - Windows: "wincred"
//   - Linux: "pass" or "secretservice"
//   - macOS: "osxkeychain"
//
// Reference:
//   - https://docs.docker.com/engine/reference/commandline/login/#credentials-store
func NewDefaultNativeStore() (Store, bool) {
	if helper := getDefaultHelperSuffix(); helper != "" {
		return NewNativeStore(helper), true
	}
	return nil, false
}

// Get retrieves credentials from the store for the given server.
func (ns *nativeStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	var cred auth.Credential
	out, err := ns.exec.Execute(ctx, strings.NewReader(serverAddress), "get")
	if err != nil {
		if err.Error() == errCredentialsNotFoundMessage {
			// do not return an error if the credentials are not in the keychain.
			return auth.EmptyCredential, nil
		}
		return auth.EmptyCredential, err
	}
	var dockerCred dockerCredentials
	if err := json.Unmarshal(out, &dockerCred); err != nil {
		return auth.EmptyCredential, err
	}
	// bearer auth is used if the username is "<token>"
	if dockerCred.Username == emptyUsername {
		cred.RefreshToken = dockerCred.Secret
	} else {
		cred.Username = dockerCred.Username
		cred.Password = dockerCred.Secret
	}
	return cred, nil
}

// Put saves credentials into the store.
func (ns *nativeStore) Put(ctx context.Context, serverAddress string, cred auth.Credential) error {
	dockerCred := &dockerCredentials{
		ServerURL: serverAddress,
		Username:  cred.Username,
		Secret:    cred.Password,
	}
	if cred.RefreshToken != "" {
		dockerCred.Username = emptyUsername
		dockerCred.Secret = cred.RefreshToken
	}
	credJSON, err := json.Marshal(dockerCred)
	if err != nil {
		return err
	}
	_, err = ns.exec.Execute(ctx, bytes.NewReader(credJSON), "store")
	return err
}

// Delete removes credentials from the store for the given server.
func (ns *nativeStore) Delete(ctx context.Context, serverAddress string) error {
	_, err := ns.exec.Execute(ctx, strings.NewReader(serverAddress), "erase")
	return err
}

// getDefaultHelperSuffix returns the default credential helper suffix.
func getDefaultHelperSuffix() string {
	platformDefault := getPlatformDefaultHelperSuffix()
	if _, err := exec.LookPath(remoteCredentialsPrefix + platformDefault); err == nil {
		return platformDefault
	}
	return ""
}

// getPlatformDefaultHelperSuffix returns the platform-default credential
// helper suffix.
//
// Reference:
//   - https://docs.docker.com/engine/reference/commandline/login/#credentials-store
func getPlatformDefaultHelperSuffix() string {
	switch runtime.GOOS {
	case "windows":
		return "wincred"
	case "darwin":
		return "osxkeychain"
	case "linux":
		if _, err := exec.LookPath("pass"); err == nil {
			return "pass"
		}
		return "secretservice"
	default:
		return ""
	}
}

// executer is an interface that simulates an executable binary.
type executer interface {
	Execute(ctx context.Context, input io.Reader, action string) ([]byte, error)
}

// executable implements the executer interface.
type executable struct {
	name string
}

// Execute operates on an executable binary and supports context.
func (c *executable) Execute(ctx context.Context, input io.Reader, action string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.name, action)
	cmd.Stdin = input
	cmd.Stderr = os.Stderr
	trace := trace.ContextExecutableTrace(ctx)
	if trace != nil && trace.ExecuteStart != nil {
		trace.ExecuteStart(c.name, action)
	}
	output, err := cmd.Output()
	if trace != nil && trace.ExecuteDone != nil {
		trace.ExecuteDone(c.name, action, err)
	}
	if err != nil {
		switch execErr := err.(type) {
		case *exec.ExitError:
			if errorMsg := string(bytes.TrimSpace(output)); strings.Contains(errorMsg, "credentials not found") {
				return nil, errors.New(errCredentialsNotFoundMessage)
			} else if errorMsg != "" {
				return nil, errors.New(errorMsg)
			}
		case *exec.Error:
			// check if the executable is not found
			if errors.Is(execErr.Err, exec.ErrNotFound) {
				return nil, errors.New(errCredentialsNotFoundMessage)
			}
		}
		return nil, err
	}
	return output, nil
}
