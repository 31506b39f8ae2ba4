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

package file

import "errors"

var (
	// ErrMissingName is returned when adding content without a name.
	ErrMissingName = errors.New("missing name")

	// ErrDuplicateName is returned when adding content with a name that
	// already exists in the store.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrPathTraversalDisallowed is returned when a write would escape the
	// working directory while path traversal is disallowed.
	ErrPathTraversalDisallowed = errors.New("path traversal disallowed")

	// ErrOverwriteDisallowed is returned when a write would overwrite an
	// existing file while overwriting is disallowed.
	ErrOverwriteDisallowed = errors.New("overwrite disallowed")

	// ErrStoreClosed is returned when operating on a store that has been
	// closed.
	ErrStoreClosed = errors.New("store already closed")
)

// errSkipUnnamed signals that an unnamed descriptor was skipped on push.
var errSkipUnnamed = errors.New("unnamed descriptor skipped")
