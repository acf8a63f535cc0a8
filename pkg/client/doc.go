// Package client implements the WebSocket session manager: a reusable,
// single-consumer client that owns connection lifecycle, message buffering,
// and an application-level ping-pong keepalive.
//
// The Client reconciles a caller-set desired state (connect, disconnect)
// with the actual connection state once per Update tick. All notifications
// fire on the goroutine calling Update, never from transport goroutines, so
// callers need no locking of their own. A Client survives any failure in a
// well-defined state and can connect again after disconnecting.
//
// Typical use:
//
//	c := client.New(client.DefaultConfig().WithEndpoint("ws://host/ws"))
//	c.OnMessageReceived(func(m *message.Message) { ... })
//	c.Connect("")
//	for range time.Tick(50 * time.Millisecond) {
//	    c.Update()
//	    for {
//	        msg, ok := c.TryDequeueIncoming()
//	        if !ok {
//	            break
//	        }
//	        handle(msg)
//	    }
//	}
package client
