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

package ferry

import "fmt"

// CopyErrorOrigin indicates the side of a copy operation where an error
// happened.
type CopyErrorOrigin int

const (
	// CopyErrorOriginSource indicates the error occurred at the source side.
	CopyErrorOriginSource CopyErrorOrigin = iota + 1

	// CopyErrorOriginDestination indicates the error occurred at the
	// destination side.
	CopyErrorOriginDestination
)

// String returns the string representation of the origin.
func (o CopyErrorOrigin) String() string {
	switch o {
	case CopyErrorOriginSource:
		return "source"
	case CopyErrorOriginDestination:
		return "destination"
	default:
		return "unknown"
	}
}

// CopyError reports an error encountered during a copy operation along with
// the operation name and the side where it happened.
type CopyError struct {
	// Op is the operation that caused the error.
	Op string

	// Origin is the side of the copy where the error happened.
	Origin CopyErrorOrigin

	// Err is the underlying error.
	Err error
}

// newCopyError wraps err into a CopyError. A nil err yields nil.
func newCopyError(op string, origin CopyErrorOrigin, err error) error {
	if err == nil {
		return nil
	}
	return &CopyError{
		Op:     op,
		Origin: origin,
		Err:    err,
	}
}

// Error implements the error interface.
func (e *CopyError) Error() string {
	switch e.Origin {
	case CopyErrorOriginSource, CopyErrorOriginDestination:
		return fmt.Sprintf("%s error: failed to perform %q: %v", e.Origin, e.Op, e.Err)
	default:
		return fmt.Sprintf("failed to perform %q: %v", e.Op, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *CopyError) Unwrap() error {
	return e.Err
}
