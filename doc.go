// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mirror maintains a client-side mirror of a remote audio-processing
// graph from a stream of asynchronous engine notifications.
//
// The remote engine owns a tree of containers, nodes and ports, addressed by
// slash-separated paths, plus connections between ports and a registry of
// plugin definitions. Notifications may arrive out of dependency order: a
// child before its parent, a connection before its ports, a node before its
// plugin, a property before its subject. The mirror tolerates this by parking
// such items in orphan ledgers and replaying them when the missing
// dependency arrives.
//
// # Architecture
//
//   - Store: Path-indexed entity table on [github.com/google/btree]. Descendants of a path form one contiguous run, so [Store.RemoveSubtree] and [Store.Rename] are range operations.
//   - Reconciler: [Reconciler.Apply] dispatches one [Event]. Four orphan ledgers (structural, connection, plugin, property) hold what cannot be applied yet; each missing key triggers one repair request through a [Requester].
//   - Delivery: [Queue] is a bounded lock-free SPSC queue via [code.hybscloud.com/lfq]. The transport goroutine pushes; the consumer pumps with [Reconciler.Pump] or [Reconciler.Run].
//   - Non-blocking: [Queue.Push] and [Queue.Pop] return [code.hybscloud.com/iox.ErrWouldBlock] on backpressure.
//   - Observation: An [Observer] sees new and removed entities, property changes and port value changes. Optional interfaces add connections, plugins and renames.
//
// # Error Handling
//
// Event failures are never returned. A malformed or unresolvable event is
// logged via glog and skipped, and processing continues. Internal invariant
// violations are reported and skipped; builds with the mirrordebug tag
// panic instead.
//
// # Example
//
//	r := mirror.New()
//	q := mirror.NewQueue(1024)
//	go func() {
//		for ev := range events {
//			_ = q.PushWait(ctx, ev)
//		}
//		q.Close()
//	}()
//	_ = r.Run(ctx, q)
package mirror
