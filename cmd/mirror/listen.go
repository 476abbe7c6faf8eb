// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"code.hybscloud.com/mirror"
	"code.hybscloud.com/mirror/wire"
)

var (
	interval    time.Duration
	metricsAddr string
)

var listenCmd = &cobra.Command{
	Use:   "listen URL",
	Short: "Follow a websocket notification feed and print the mirror on exit",
	Args:  cobra.ExactArgs(1),
	RunE:  runListen,
}

func init() {
	listenCmd.Flags().DurationVar(&interval, "interval", 0, "pump interval (overrides the config)")
	listenCmd.Flags().StringVar(&metricsAddr, "metrics", "", "serve Prometheus metrics on this address")
}

// wsRequester sends repair requests back over the feed.
// It is only called from the consumer goroutine, the connection's one writer.
type wsRequester struct {
	conn *websocket.Conn
}

type request struct {
	Op      string `json:"op"`
	Subject string `json:"subject"`
}

func (w wsRequester) RequestObject(p mirror.Path) { w.send(request{Op: "get", Subject: string(p)}) }
func (w wsRequester) RequestPlugin(uri string)    { w.send(request{Op: "get_plugin", Subject: uri}) }

func (w wsRequester) send(req request) {
	if err := w.conn.WriteJSON(req); err != nil {
		glog.Warningf("[listen] request %s %s: %v", req.Op, req.Subject, err)
	}
}

func runListen(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if interval > 0 {
		cfg.PumpInterval = interval
	}
	ctx := cmd.Context()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, args[0], nil)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	if metricsAddr != "" {
		go func() {
			if err := http.ListenAndServe(metricsAddr, promhttp.Handler()); err != nil {
				glog.Errorf("[listen] metrics server: %v", err)
			}
		}()
	}

	r := mirror.New(
		mirror.WithConfig(cfg),
		mirror.WithRequester(wsRequester{conn: conn}),
		mirror.WithRegisterer(prometheus.DefaultRegisterer),
	)
	q := mirror.NewQueue(cfg.QueueCapacity)
	go readFeed(ctx, conn, q)

	ticker := time.NewTicker(cfg.PumpInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := r.PumpN(q, cfg.PumpLimit); errors.Is(err, mirror.ErrClosed) {
				glog.Infof("[listen] feed closed, %+v", q.Stats())
				return wire.EncodeSnapshot(cmd.OutOrStdout(), r.Snapshot())
			}
		case <-ctx.Done():
			return wire.EncodeSnapshot(cmd.OutOrStdout(), r.Snapshot())
		}
	}
}

// readFeed decodes websocket messages into events and hands them to q.
// It is the only producer of q and closes it when the feed ends.
func readFeed(ctx context.Context, conn *websocket.Conn, q *mirror.Queue) {
	defer q.Close()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				glog.Warningf("[listen] read: %v", err)
			}
			return
		}
		ev, err := wire.DecodeRecord(msg)
		if err != nil {
			glog.Warningf("[listen] dropping message: %v", err)
			continue
		}
		if err := q.PushWait(ctx, ev); err != nil {
			return
		}
	}
}
