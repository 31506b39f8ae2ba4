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
	"context"
	"sync"

	"github.com/ferry-project/ferry-go/registry/remote/auth"
	"github.com/ferry-project/ferry-go/registry/remote/credentials/internal/config"
)

// memoryStore is a store that keeps credentials in memory.
type memoryStore struct {
	store sync.Map
}

// NewMemoryStore creates a new in-memory credentials store.
func NewMemoryStore() Store {
	return &memoryStore{}
}

// NewMemoryStoreFromDockerConfig creates a new in-memory credentials store
// from the given content of a docker config file. The credentials are
// statically copied from the config content, so any change to the original
// config content is not reflected in the store.
func NewMemoryStoreFromDockerConfig(configContent []byte) (Store, error) {
	cfg, err := config.LoadFromReader(configContent)
	if err != nil {
		return nil, err
	}

	ms := &memoryStore{}
	for _, serverAddress := range cfg.ServerAddresses() {
		cred, err := cfg.GetCredential(serverAddress)
		if err != nil {
			return nil, err
		}
		ms.store.Store(serverAddress, cred)
	}
	return ms, nil
}

// Get retrieves credentials from the store for the given server address.
func (ms *memoryStore) Get(_ context.Context, serverAddress string) (auth.Credential, error) {
	cred, found := ms.store.Load(serverAddress)
	if !found {
		return auth.EmptyCredential, nil
	}
	return cred.(auth.Credential), nil
}

// Put saves credentials into the store for the given server address.
func (ms *memoryStore) Put(_ context.Context, serverAddress string, cred auth.Credential) error {
	ms.store.Store(serverAddress, cred)
	return nil
}

// Delete removes credentials from the store for the given server address.
func (ms *memoryStore) Delete(_ context.Context, serverAddress string) error {
	ms.store.Delete(serverAddress)
	return nil
}
