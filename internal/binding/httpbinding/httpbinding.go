// Package httpbinding is a Receiver that pushes a Binding's flushed values
// to an external scene service over HTTP, POSTing each one as JSON. The
// transport is grounded on the teacher's internal/http/transport.go
// CreateTransport: HTTP/2-enabled, pooled, with the same timeout tuning.
package httpbinding

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"scenelogic/internal/ltypes"
)

// CreateTransport builds a pooled, HTTP/2-enabled transport, mirroring the
// teacher's connection tuning (idle pool size, dial/TLS/response timeouts).
func CreateTransport() *http.Transport {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,

		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS13,
		},

		DisableCompression: false,
		DisableKeepAlives:  false,
		ForceAttemptHTTP2:  true,
	}

	http2.ConfigureTransport(transport)
	return transport
}

// pushPayload is the wire shape POSTed for every flushed leaf.
type pushPayload struct {
	Binding string `json:"binding"`
	Path    string `json:"path"`
	Value   any    `json:"value"`
}

// Receiver POSTs each pushed value as JSON to URL.
type Receiver struct {
	BindingName string
	URL         string
	Client      *http.Client
}

// New builds a Receiver using CreateTransport's tuned transport.
func New(bindingName, url string) *Receiver {
	return &Receiver{
		BindingName: bindingName,
		URL:         url,
		Client:      &http.Client{Transport: CreateTransport(), Timeout: 10 * time.Second},
	}
}

// Push implements internal/lnode.Receiver.
func (r *Receiver) Push(path string, v ltypes.Value) error {
	body, err := json.Marshal(pushPayload{Binding: r.BindingName, Path: path, Value: jsonValue(v)})
	if err != nil {
		return fmt.Errorf("httpbinding: marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("httpbinding: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("httpbinding: push %s.%s: %w", r.BindingName, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("httpbinding: push %s.%s: unexpected status %d", r.BindingName, path, resp.StatusCode)
	}
	return nil
}

func jsonValue(v ltypes.Value) any {
	switch v.Type {
	case ltypes.Bool:
		return v.B
	case ltypes.Int32:
		return v.I
	case ltypes.Int64:
		return v.L
	case ltypes.Float:
		return v.F
	case ltypes.String:
		return v.S
	case ltypes.Vec2f, ltypes.Vec3f, ltypes.Vec4f:
		return v.VF[:v.Type.VectorSize()]
	case ltypes.Vec2i, ltypes.Vec3i, ltypes.Vec4i:
		return v.VI[:v.Type.VectorSize()]
	default:
		return nil
	}
}
