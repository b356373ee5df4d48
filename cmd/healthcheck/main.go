// Command healthcheck probes /livez of a locally running server; it is the
// container HEALTHCHECK binary.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/abccollege/college-chatbot-go/internal/config"
)

func main() {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "10000"
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://localhost:%s/livez", port))
	if err != nil {
		os.Exit(1)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
