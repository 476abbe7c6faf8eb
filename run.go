// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mirror

import (
	"context"
	"errors"

	"code.hybscloud.com/iox"
)

// Pump applies every event currently in q and returns how many were
// applied. It never blocks. The error is nil while q is open and ErrClosed
// once q is closed and drained.
func (r *Reconciler) Pump(q *Queue) (int, error) {
	return r.PumpN(q, 0)
}

// PumpN is like Pump but applies at most limit events.
// A limit of zero or less means no limit.
func (r *Reconciler) PumpN(q *Queue, limit int) (int, error) {
	n := 0
	for limit <= 0 || n < limit {
		ev, err := q.Pop()
		if err != nil {
			if iox.IsWouldBlock(err) {
				return n, nil
			}
			return n, err
		}
		r.Apply(ev)
		n++
	}
	return n, nil
}

// Run applies events from q on the calling goroutine until q is closed and
// drained, or ctx is done. It checks ctx after every batch of at most
// Config.PumpLimit events and backs off with iox.Backoff while q is empty.
// Run returns nil when q is closed, and ctx.Err() otherwise.
func (r *Reconciler) Run(ctx context.Context, q *Queue) error {
	var bo iox.Backoff
	for {
		n, err := r.PumpN(q, r.pumpLimit)
		if errors.Is(err, ErrClosed) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if n == 0 {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
}
