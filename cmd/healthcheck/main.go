// Package main provides a lightweight health check utility for Docker
// containers. It is statically compiled so it works in scratch-based images
// where wget and curl are unavailable.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

const (
	defaultPort    = "3001"
	requestTimeout = 5 * time.Second
)

func healthURL(port string) string {
	if port == "" {
		port = defaultPort
	}
	return fmt.Sprintf("http://localhost:%s/health", port)
}

func main() {
	client := &http.Client{Timeout: requestTimeout}

	resp, err := client.Get(healthURL(os.Getenv("PORT")))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Health check failed: %v\n", err)
		os.Exit(1)
	}
	// os.Exit bypasses deferred calls, so close explicitly.
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Health check returned non-OK status: %d\n", resp.StatusCode)
		os.Exit(1)
	}
}
