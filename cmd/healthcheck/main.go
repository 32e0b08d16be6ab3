package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const defaultAddr = "127.0.0.1:7420"

func main() {
	wait := flag.Uint64("wait", 0, "retry this many times, one second apart, before reporting failure")
	flag.Parse()

	os.Exit(check(normalizeAddr(os.Getenv("REVIEWRELAY_LISTEN_ADDR")), *wait, time.Second))
}

func check(addr string, retries uint64, interval time.Duration) int {
	url := fmt.Sprintf("http://%s/api/v1/health", addr)
	client := &http.Client{Timeout: 2 * time.Second}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), retries)
	if err := backoff.Retry(func() error { return probe(client, url) }, policy); err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
		return 1
	}
	return 0
}

func probe(client *http.Client, url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// normalizeAddr ensures the healthcheck connects to loopback rather than the
// bind-all address. Docker containers bind 0.0.0.0 but the healthcheck runs
// inside the same container, so loopback is reachable and more correct.
func normalizeAddr(raw string) string {
	if raw == "" {
		return defaultAddr
	}

	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}

	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}

	return net.JoinHostPort(host, port)
}
