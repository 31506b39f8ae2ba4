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

import "sync"

// poolItem is an item in a Pool with a reference count.
type poolItem[T any] struct {
	value    T
	refCount int
}

// Pool is a scalable pool holding one value per key. A value lives as long as
// at least one holder has not released it.
type Pool[T any] struct {
	lock  sync.Mutex
	items map[any]*poolItem[T]
}

// Get gets the value identified by the given key, creating it if absent.
// The returned function releases the hold on the value; once all holders
// have released it, the value is dropped from the pool.
func (p *Pool[T]) Get(key any) (*T, func()) {
	p.lock.Lock()
	defer p.lock.Unlock()

	item, ok := p.items[key]
	if !ok {
		if p.items == nil {
			p.items = make(map[any]*poolItem[T])
		}
		item = &poolItem[T]{}
		p.items[key] = item
	}
	item.refCount++

	return &item.value, func() {
		p.lock.Lock()
		defer p.lock.Unlock()
		item.refCount--
		if item.refCount <= 0 {
			delete(p.items, key)
		}
	}
}
