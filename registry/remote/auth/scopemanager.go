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

import (
	"slices"
	"sync"
)

// ScopeManager tracks the scope hints registered for registry hosts. The
// hints of a host are merged with the scopes carried by the request context
// and the challenge when the auth client fetches bearer tokens for that host.
//
// A ScopeManager is safe for concurrent use.
type ScopeManager struct {
	hints sync.Map // map[string][]string, keyed by host
}

// NewScopeManager creates an empty ScopeManager.
func NewScopeManager() *ScopeManager {
	return &ScopeManager{}
}

// SetScopeHints replaces the scope hints for the given host.
// The scopes are de-duplicated and merged: scopes with the same resource
// type and name have their actions unioned, and a wildcard action supersedes
// the other actions of that scope.
// Passing no scopes removes the hints for the host.
func (m *ScopeManager) SetScopeHints(host string, scopes ...string) {
	if host == "" {
		return
	}
	scopes = CleanScopes(scopes)
	if len(scopes) == 0 {
		m.hints.Delete(host)
		return
	}
	m.hints.Store(host, scopes)
}

// AppendScopeHints adds scopes to the hints of the given host.
func (m *ScopeManager) AppendScopeHints(host string, scopes ...string) {
	if host == "" || len(scopes) == 0 {
		return
	}
	m.SetScopeHints(host, append(m.ScopeHints(host), scopes...)...)
}

// ScopeHints returns the scope hints registered for the given host.
func (m *ScopeManager) ScopeHints(host string) []string {
	if scopes, ok := m.hints.Load(host); ok {
		return slices.Clone(scopes.([]string))
	}
	return nil
}
