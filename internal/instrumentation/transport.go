package instrumentation

import (
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that records every request to an
// external provider as an external-call metric. It wraps the base
// transport, so OAuth transports keep working underneath.
type Transport struct {
	service string
	metrics *Metrics
	base    http.RoundTripper
}

// NewTransport wraps base with call recording for the named service.
// A nil base falls back to http.DefaultTransport.
func NewTransport(service string, metrics *Metrics, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{service: service, metrics: metrics, base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)

	status := StatusSuccess
	if err != nil || resp.StatusCode >= 400 {
		status = StatusError
	}
	t.metrics.RecordExternalCall(req.Context(), t.service, req.Method, status, time.Since(start))
	return resp, err
}
