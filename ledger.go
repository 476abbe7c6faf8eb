// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import "slices"

// Ledger names, used in logs and as metric labels.
const (
	LedgerStructural = "structural"
	LedgerConnection = "connection"
	LedgerPlugin     = "plugin"
	LedgerProperty   = "property"
)

// ledger is a waiting list of items blocked on a key.
// Items for one key are kept in arrival order.
type ledger[K comparable, V any] struct {
	name    string
	pending map[K][]V
	n       int
}

func newLedger[K comparable, V any](name string) ledger[K, V] {
	return ledger[K, V]{name: name, pending: make(map[K][]V)}
}

// add queues v under k and reports whether k had no entry before,
// which is when a repair request for k is due.
func (l *ledger[K, V]) add(k K, v V) bool {
	q, ok := l.pending[k]
	l.pending[k] = append(q, v)
	l.n++
	return !ok
}

// take removes the entry for k and returns its items.
// The entry is gone before the caller processes the items, so anything
// queued under k while they are handled starts a fresh entry and is never
// seen by the same pass.
func (l *ledger[K, V]) take(k K) []V {
	q, ok := l.pending[k]
	if !ok {
		return nil
	}
	delete(l.pending, k)
	l.n -= len(q)
	return q
}

// drop removes the items under k for which match returns true.
func (l *ledger[K, V]) drop(k K, match func(V) bool) int {
	q, ok := l.pending[k]
	if !ok {
		return 0
	}
	before := len(q)
	q = slices.DeleteFunc(q, match)
	removed := before - len(q)
	l.n -= removed
	if len(q) == 0 {
		delete(l.pending, k)
	} else {
		l.pending[k] = q
	}
	return removed
}

// has reports whether an item under k satisfies match.
func (l *ledger[K, V]) has(k K, match func(V) bool) bool {
	return slices.ContainsFunc(l.pending[k], match)
}

// len returns the number of queued items over all keys.
func (l *ledger[K, V]) len() int { return l.n }

func (l *ledger[K, V]) clear() {
	clear(l.pending)
	l.n = 0
}
