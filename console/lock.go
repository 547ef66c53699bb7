// Copyright 2022 The Armored Witness OS authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package console

import (
	"runtime"
	"sync/atomic"
)

// Lock is a test-and-test-and-set spin lock, it provides no fairness.
type Lock struct {
	held atomic.Bool
}

// TryLock acquires the lock if it is free and reports whether it did.
func (l *Lock) TryLock() bool {
	return !l.held.Load() && l.held.CompareAndSwap(false, true)
}

// Lock spins until the lock is acquired.
func (l *Lock) Lock() {
	for !l.TryLock() {
		runtime.Gosched()
	}
}

// Unlock releases the lock.
func (l *Lock) Unlock() {
	l.held.Store(false)
}
