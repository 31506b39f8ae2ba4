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

package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	ferry "github.com/ferry-project/ferry-go"
	"github.com/ferry-project/ferry-go/progress"
)

// newStatusManager returns a progress manager that prints one line per
// status change of each descriptor.
func newStatusManager(w io.Writer, verb string) progress.Manager {
	var mu sync.Mutex
	return progress.ManagerFunc(func(desc ocispec.Descriptor, status progress.Status, err error) error {
		mu.Lock()
		defer mu.Unlock()
		name := desc.Annotations[ocispec.AnnotationTitle]
		if name == "" {
			name = desc.MediaType
		}
		short := desc.Digest.Encoded()
		if len(short) > 12 {
			short = short[:12]
		}
		switch {
		case err != nil:
			fmt.Fprintf(w, "%s %s %s failed: %v\n", verb, short, name, err)
		case status.State == progress.StateInitialized:
			fmt.Fprintf(w, "%s %s %s\n", verb, short, name)
		case status.State == progress.StateTransmitted:
			fmt.Fprintf(w, "%s %s %s done\n", verb, short, name)
		case status.State == progress.StateExists:
			fmt.Fprintf(w, "%s %s %s exists\n", verb, short, name)
		case status.State == progress.StateTransmitting && status.Offset >= 0 && desc.Size > 0:
			fmt.Fprintf(w, "%s %s %s %d/%d\n", verb, short, name, status.Offset, desc.Size)
		}
		return nil
	})
}

// trackedTarget reports the push progress of a target to a progress manager.
type trackedTarget struct {
	ferry.Target
	manager progress.Manager
}

func trackTarget(t ferry.Target, m progress.Manager) ferry.Target {
	return &trackedTarget{
		Target:  t,
		manager: m,
	}
}

func (t *trackedTarget) Push(ctx context.Context, expected ocispec.Descriptor, content io.Reader) error {
	tracker, err := t.manager.Track(expected)
	if err != nil {
		return err
	}
	defer tracker.Close()
	if err := progress.Start(tracker); err != nil {
		return err
	}
	if err := t.Target.Push(ctx, expected, progress.TrackReader(tracker, content)); err != nil {
		_ = tracker.Fail(err)
		return err
	}
	return progress.Done(tracker)
}

// newCopyOptions assembles the copy options shared by push, pull and copy,
// recording skipped nodes on the progress manager.
func (opts *remoteOptions) newCopyOptions(m progress.Manager) ferry.CopyOptions {
	copyOpts := ferry.DefaultCopyOptions
	copyOpts.Concurrency = opts.concurrency
	copyOpts.OnCopySkipped = func(ctx context.Context, desc ocispec.Descriptor) error {
		return progress.Record(m, desc, progress.Status{
			State:  progress.StateExists,
			Offset: desc.Size,
		})
	}
	return copyOpts
}
