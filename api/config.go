// Package api provides the local HTTP gateway that exposes the chat client
// to other processes.
package api

// Config is the gateway configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string
}
