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

// Package graph provides the in-memory DAG index used for predecessor
// discovery.
package graph

import (
	"context"
	"errors"
	"sync"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/ferry-project/ferry-go/content"
	"github.com/ferry-project/ferry-go/errdef"
	"github.com/ferry-project/ferry-go/internal/container/set"
	"github.com/ferry-project/ferry-go/internal/descriptor"
	"github.com/ferry-project/ferry-go/internal/status"
	"github.com/ferry-project/ferry-go/internal/syncutil"
)

// Memory is a memory based PredecessorFinder.
type Memory struct {
	// nodes maps the basic descriptor key of an indexed node to its full
	// descriptor. Only nodes passed to Index or IndexAll appear here; a pure
	// successor that was never indexed itself has predecessors but no node
	// entry.
	nodes map[descriptor.Descriptor]ocispec.Descriptor

	// predecessors is the inverted edge index: for each known successor key,
	// the set of node keys whose content points at it.
	predecessors map[descriptor.Descriptor]set.Set[descriptor.Descriptor]

	// successors records the forward edges of each indexed node, kept so that
	// edges can be unlinked when the node is removed.
	successors map[descriptor.Descriptor]set.Set[descriptor.Descriptor]

	lock sync.RWMutex
}

// NewMemory creates a new memory PredecessorFinder.
func NewMemory() *Memory {
	return &Memory{
		nodes:        make(map[descriptor.Descriptor]ocispec.Descriptor),
		predecessors: make(map[descriptor.Descriptor]set.Set[descriptor.Descriptor]),
		successors:   make(map[descriptor.Descriptor]set.Set[descriptor.Descriptor]),
	}
}

// Index indexes predecessors for each direct successor of the given node.
func (m *Memory) Index(ctx context.Context, fetcher content.Fetcher, node ocispec.Descriptor) error {
	successors, err := content.Successors(ctx, fetcher, node)
	if err != nil {
		return err
	}

	m.index(node, successors)
	return nil
}

// IndexAll indexes the entire DAG rooted at the given node.
func (m *Memory) IndexAll(ctx context.Context, fetcher content.Fetcher, node ocispec.Descriptor) error {
	// track content status
	tracker := status.NewTracker()

	var fn syncutil.GoFunc[ocispec.Descriptor]
	fn = func(ctx context.Context, _ *syncutil.LimitedRegion, desc ocispec.Descriptor) error {
		// skip the node if other go routine is working on it
		_, committed := tracker.TryCommit(desc)
		if !committed {
			return nil
		}

		successors, err := content.Successors(ctx, fetcher, desc)
		if err != nil {
			// skip the node if it does not exist
			if errors.Is(err, errdef.ErrNotFound) {
				return nil
			}
			return err
		}
		m.index(desc, successors)

		if len(successors) > 0 {
			// traverse and index successors
			return syncutil.Go(ctx, nil, fn, successors...)
		}
		return nil
	}
	return syncutil.Go(ctx, nil, fn, node)
}

// Predecessors returns the nodes directly pointing to the current node.
// Predecessors returns nil without error if the node does not exist in the
// index.
// Like other operations, calling Predecessors() is go-routine safe. However,
// it does not necessarily correspond to any consistent snapshot of the stored
// contents.
func (m *Memory) Predecessors(_ context.Context, node ocispec.Descriptor) ([]ocispec.Descriptor, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	key := descriptor.FromOCI(node)
	predecessors, exists := m.predecessors[key]
	if !exists {
		return nil, nil
	}
	var res []ocispec.Descriptor
	for p := range predecessors {
		res = append(res, m.nodes[p])
	}
	return res, nil
}

// Exists reports whether the node has been indexed.
func (m *Memory) Exists(node ocispec.Descriptor) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()

	_, exists := m.nodes[descriptor.FromOCI(node)]
	return exists
}

// Remove removes the node from the index and unlinks its outgoing edges.
// It returns the nodes that become dangling roots because of the removal.
func (m *Memory) Remove(node ocispec.Descriptor) []ocispec.Descriptor {
	m.lock.Lock()
	defer m.lock.Unlock()

	nodeKey := descriptor.FromOCI(node)
	var danglings []ocispec.Descriptor
	// remove the node from its successors' predecessor sets
	for successorKey := range m.successors[nodeKey] {
		predecessorEntry := m.predecessors[successorKey]
		predecessorEntry.Delete(nodeKey)

		// a successor left with no predecessors becomes dangling, unless it
		// was never indexed as a node itself
		if len(predecessorEntry) == 0 {
			delete(m.predecessors, successorKey)
			if successorNode, exists := m.nodes[successorKey]; exists {
				danglings = append(danglings, successorNode)
			}
		}
	}
	delete(m.successors, nodeKey)
	delete(m.nodes, nodeKey)
	return danglings
}

// index records the node and links each direct successor back to it.
func (m *Memory) index(node ocispec.Descriptor, successors []ocispec.Descriptor) {
	m.lock.Lock()
	defer m.lock.Unlock()

	nodeKey := descriptor.FromOCI(node)
	m.nodes[nodeKey] = node

	successorSet := set.New[descriptor.Descriptor]()
	m.successors[nodeKey] = successorSet
	for _, successor := range successors {
		successorKey := descriptor.FromOCI(successor)
		successorSet.Add(successorKey)
		predecessorSet, exists := m.predecessors[successorKey]
		if !exists {
			predecessorSet = set.New[descriptor.Descriptor]()
			m.predecessors[successorKey] = predecessorSet
		}
		predecessorSet.Add(nodeKey)
	}
}
