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

// Package interfaces defines interoperability interfaces implemented by
// multiple packages of this module.
package interfaces

import "github.com/ferry-project/ferry-go/registry"

// ReferenceParser provides reference parsing.
type ReferenceParser interface {
	// ParseReference parses a reference to a fully qualified reference.
	ParseReference(reference string) (registry.Reference, error)
}
