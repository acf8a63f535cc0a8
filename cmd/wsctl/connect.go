package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/vango-dev/wsession/pkg/client"
	"github.com/vango-dev/wsession/pkg/message"
)

func connectCmd() *cobra.Command {
	var (
		configPath  string
		tick        time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "connect [endpoint]",
		Short: "Open an interactive session",
		Long: `Open a managed WebSocket session and bridge it to the terminal.

Lines read from stdin are sent as text messages; received messages are
printed as they are drained from the incoming queue. Ctrl-C tears the
session down.

Examples:
  wsctl connect ws://localhost:8080/ws
  wsctl connect --config wsctl.toml
  wsctl connect ws://localhost:8080/ws --metrics :9100`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			endpoint := cfg.Endpoint
			if len(args) == 1 {
				endpoint = args[0]
			}
			if endpoint == "" {
				return fmt.Errorf("no endpoint: pass one or set it in the config file")
			}

			c := client.New(cfg)
			if metricsAddr != "" {
				c.SetMetrics(client.NewMetrics())
				go func() {
					mux := http.NewServeMux()
					mux.Handle("/metrics", promhttp.Handler())
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						warn("metrics server: %s", err)
					}
				}()
				info("metrics on http://%s/metrics", metricsAddr)
			}

			c.OnStateChanged(func(old, new client.ConnectionState) {
				info("state: %s → %s", old, new)
			})
			c.OnMessageReceived(func(msg *message.Message) {
				fmt.Printf("< %s\n", msg.Text())
			})
			c.OnErrorReceived(func(text string) {
				warn("%s", text)
			})
			c.OnPongReceived(func(at time.Time) {
				info("pong, rtt=%s", c.LastRoundTripTime())
			})

			c.Connect(endpoint)

			// Feed stdin lines into the outgoing queue.
			go func() {
				scanner := bufio.NewScanner(os.Stdin)
				for scanner.Scan() {
					line := scanner.Text()
					if line == "" {
						continue
					}
					c.EnqueueText(line)
				}
			}()

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = client.NewDriver(c, tick).Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().DurationVar(&tick, "tick", client.DefaultTickInterval, "reconciliation tick interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics", "", "expose Prometheus metrics on this address")

	return cmd
}
