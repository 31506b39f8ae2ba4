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

package syncutil

import (
	"context"
	"errors"
)

// Once is a sync.Once variant whose in-progress operation is cancellable and
// which retries after a cancelled attempt.
type Once[T any] struct {
	result T
	err    error
	status chan bool
}

// NewOnce creates a new Once instance.
func NewOnce[T any]() *Once[T] {
	status := make(chan bool, 1)
	status <- true
	return &Once[T]{
		status: status,
	}
}

// Do invokes f once, returning true on the invocation that ran f.
// While an invocation is in flight, other callers block until it settles.
// If f fails with context cancellation or deadline exceeded, the attempt is
// not recorded and a later caller runs f again.
func (o *Once[T]) Do(ctx context.Context, f func() (T, error)) (bool, T, error) {
	var zero T
	for {
		select {
		case inProgress := <-o.status:
			if !inProgress {
				return false, o.result, o.err
			}
			result, err := f()
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				o.status <- true
				return false, zero, err
			}
			o.result, o.err = result, err
			close(o.status)
			return true, result, err
		case <-ctx.Done():
			return false, zero, ctx.Err()
		}
	}
}
