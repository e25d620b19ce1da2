// Package server exposes a query pipeline over JSON-RPC 2.0.
//
// Endpoints:
//   - POST /rpc   one request per HTTP call
//   - GET  /ws    WebSocket, many concurrent requests per connection
//   - /healthz    liveness
//   - /metrics    Prometheus scrape
//
// When a shared secret is configured, /rpc and /ws require it in the
// X-Mathroute-Secret header. Each WebSocket connection gets a nanoid client
// ID and its own rate limiter; the client ID and request ID travel in the
// request context into the pipeline's logs, spans and audit records.
//
// Usage:
//
//	srv, err := server.NewServer(server.Config{
//		Port:     7420,
//		Handler:  p,
//		Registry: reg,
//	})
//	if err != nil {
//		return err
//	}
//	return srv.Run(ctx)
package server
