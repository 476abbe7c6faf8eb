// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"code.hybscloud.com/mirror"
	"code.hybscloud.com/mirror/wire"
)

var reverse bool

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Apply an event script and print the resulting mirror",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&reverse, "reverse", false, "apply the events in reverse order")
}

// logRequester logs repair requests; a script has no engine to answer them.
type logRequester struct{}

func (logRequester) RequestObject(p mirror.Path) { glog.Infof("[replay] request object %s", p) }
func (logRequester) RequestPlugin(uri string)    { glog.Infof("[replay] request plugin %s", uri) }

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	events, err := wire.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	if reverse {
		slices.Reverse(events)
	}

	r := mirror.New(mirror.WithConfig(cfg), mirror.WithRequester(logRequester{}))
	q := mirror.NewQueue(cfg.QueueCapacity)
	ctx := cmd.Context()

	errc := make(chan error, 1)
	go func() {
		defer q.Close()
		for _, ev := range events {
			if err := q.PushWait(ctx, ev); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()
	if err := r.Run(ctx, q); err != nil {
		return err
	}
	if err := <-errc; err != nil {
		return err
	}
	glog.V(1).Infof("[replay] %d events, %+v", len(events), q.Stats())
	return wire.EncodeSnapshot(cmd.OutOrStdout(), r.Snapshot())
}
