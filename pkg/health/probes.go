package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Ramsey-B/clover/pkg/httpclient"
)

// Pinger is anything with a context-aware ping, e.g. the Redis client
type Pinger interface {
	Ping(ctx context.Context) error
}

func PingProbe(p Pinger) Probe {
	return func(ctx context.Context) error {
		return p.Ping(ctx)
	}
}

// HTTPProbe treats any non-5xx answer from target as reachable
func HTTPProbe(client *httpclient.Client, target string) Probe {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(ctx, req)
		if err != nil {
			return err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("backend returned status %d", resp.StatusCode)
		}
		return nil
	}
}
