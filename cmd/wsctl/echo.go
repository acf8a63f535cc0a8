package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func echoCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "echo",
		Short: "Run a local echo server",
		Long: `Run a local WebSocket echo server for testing clients.

Every message received on /ws is written back unchanged.

Examples:
  wsctl echo
  wsctl echo --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			upgrader := websocket.Upgrader{
				ReadBufferSize:  4096,
				WriteBufferSize: 4096,
				CheckOrigin:     func(r *http.Request) bool { return true },
			}

			r := chi.NewRouter()
			r.Use(middleware.Logger)
			r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
				conn, err := upgrader.Upgrade(w, req, nil)
				if err != nil {
					return
				}
				defer conn.Close()

				for {
					msgType, data, err := conn.ReadMessage()
					if err != nil {
						return
					}
					if err := conn.WriteMessage(msgType, data); err != nil {
						return
					}
				}
			})

			info("echo server on ws://%s/ws", addr)
			return http.ListenAndServe(addr, r)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")

	return cmd
}
