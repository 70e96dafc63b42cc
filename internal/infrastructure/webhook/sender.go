package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marketplace/backend/internal/domain/webhook"
)

// Sender delivers a single webhook payload to a partner endpoint
type Sender interface {
	Send(ctx context.Context, job *webhook.DeliveryJob) error
}

// HTTPSender sends signed webhook requests over HTTP. Any network error or
// non-2xx response counts as a failed attempt; the worker owns retries.
type HTTPSender struct {
	client *http.Client
	signer *Signer
}

// NewHTTPSender creates a new HTTP webhook sender with the given request timeout
func NewHTTPSender(timeout time.Duration, signer *Signer) *HTTPSender {
	return &HTTPSender{
		client: &http.Client{Timeout: timeout},
		signer: signer,
	}
}

// Send posts the job's payload to the partner endpoint with signature headers
func (s *HTTPSender) Send(ctx context.Context, job *webhook.DeliveryJob) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, s.signer.Sign(job.Secret, job.Payload))
	req.Header.Set(HeaderEvent, job.Event)
	req.Header.Set(HeaderDelivery, job.ID.String())

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}

	return nil
}
