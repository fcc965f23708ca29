/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: probe.go
Description: Reachability probes. The HTTP probe issues a HEAD request against a
lightweight server resource and accepts any 2xx response.
*/

package connectivity

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// ProbeFunc checks whether the backend is reachable. It must honor ctx cancellation.
type ProbeFunc func(ctx context.Context) error

// HTTPProbe probes url with a HEAD request. A nil client uses http.DefaultClient.
func HTTPProbe(client *http.Client, url string) ProbeFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
		if err != nil {
			return fmt.Errorf("failed to create probe request: %w", err)
		}
		req.Header.Set("Cache-Control", "no-cache")
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("probe request failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("probe returned status %d", resp.StatusCode)
		}
		return nil
	}
}
