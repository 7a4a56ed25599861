// Package netx contains small networking helpers shared by the client:
// a TCP reachability probe and a presigned-URL upload.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// UploadToPresignedURL PUTs body to a presigned object-storage URL.
// The URL already carries authentication, so no headers beyond the
// content type are required.
func UploadToPresignedURL(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}

// DialProbe reports reachability of a single TCP endpoint. It satisfies the
// client's connectivity-probe contract: a cheap synchronous check run before
// auth calls and periodically by the online-status watcher.
type DialProbe struct {
	Addr    string
	Timeout time.Duration
}

func NewDialProbe(addr string) *DialProbe {
	return &DialProbe{Addr: addr, Timeout: 2 * time.Second}
}

// Online dials the endpoint and reports whether the connection succeeded.
func (p *DialProbe) Online() bool {
	conn, err := net.DialTimeout("tcp", p.Addr, p.Timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
