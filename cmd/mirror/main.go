// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command mirror replays or follows a stream of engine notifications and
// prints the resulting graph mirror.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"code.hybscloud.com/mirror"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:          "mirror",
		Short:        "Mirror a remote audio graph from its notification stream",
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML or JSON config file")
	// glog registers -v, -logtostderr and friends on the standard flag set
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	rootCmd.AddCommand(replayCmd, listenCmd)
}

func loadConfig() (mirror.Config, error) {
	return mirror.LoadConfig(configPath)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	glog.Flush()
	if err != nil {
		os.Exit(1)
	}
}
