package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vango-dev/wsession/pkg/client"
	"github.com/vango-dev/wsession/pkg/message"
)

func pingCmd() *cobra.Command {
	var (
		configPath string
		count      int
		interval   time.Duration
		payload    string
	)

	cmd := &cobra.Command{
		Use:   "ping [endpoint]",
		Short: "Measure round-trip time",
		Long: `Connect and send application-level keepalive pings, printing the
round-trip time of each echo. The endpoint must echo messages back
(see "wsctl echo" for a local one).

Examples:
  wsctl ping ws://localhost:8080/ws
  wsctl ping ws://localhost:8080/ws --count 10 --interval 500ms`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			cfg.WithPing(message.NewText(payload), interval)
			cfg.PingRequiresPongFirst = true

			endpoint := cfg.Endpoint
			if len(args) == 1 {
				endpoint = args[0]
			}
			if endpoint == "" {
				return fmt.Errorf("no endpoint: pass one or set it in the config file")
			}

			c := client.New(cfg)

			ctx, stop := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer stop()

			received := 0
			c.OnPongReceived(func(at time.Time) {
				received++
				fmt.Printf("pong %d/%d rtt=%s\n", received, count, c.LastRoundTripTime())
			})
			c.OnErrorReceived(func(text string) {
				warn("%s", text)
			})

			c.Connect(endpoint)

			ticker := time.NewTicker(10 * time.Millisecond)
			defer ticker.Stop()
			deadline := time.After(time.Duration(count+1) * interval * 10)

			for received < count {
				select {
				case <-ctx.Done():
					c.Shutdown()
					return nil
				case <-deadline:
					c.Shutdown()
					return fmt.Errorf("timed out after %d of %d pongs", received, count)
				case <-ticker.C:
					c.Update()
				}
			}

			c.Disconnect()
			for c.State() != client.Disconnected {
				select {
				case <-ctx.Done():
					c.Shutdown()
					return nil
				case <-ticker.C:
					c.Update()
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file")
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of pings to send")
	cmd.Flags().DurationVarP(&interval, "interval", "i", time.Second, "ping interval")
	cmd.Flags().StringVar(&payload, "payload", "wsctl-ping", "ping payload")

	return cmd
}
