package webhook

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus represents the status of a webhook delivery job
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "PENDING"
	DeliveryStatusProcessing DeliveryStatus = "PROCESSING"
	DeliveryStatusDelivered  DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed     DeliveryStatus = "FAILED"
	DeliveryStatusDead       DeliveryStatus = "DEAD"
)

// IsValid checks if the status is a valid DeliveryStatus
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusProcessing, DeliveryStatusDelivered,
		DeliveryStatusFailed, DeliveryStatusDead:
		return true
	}
	return false
}

// Retry policy: 5 attempts, exponential back-off starting at 1 second
const (
	MaxAttempts = 5
	BaseBackoff = time.Second
)

// DeliveryJob is one unit of webhook work: a single event destined for a
// single partner endpoint. A job ends DELIVERED or, after exhausting all
// attempts, DEAD - retained for operator inspection, never silently dropped.
type DeliveryJob struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	PartnerID     uuid.UUID
	EventID       uuid.UUID
	Event         string
	URL           string
	Secret        string
	Payload       []byte
	Status        DeliveryStatus
	Attempts      int
	MaxAttempts   int
	LastError     string
	NextAttemptAt *time.Time
	DeliveredAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewDeliveryJob creates a pending delivery job for a partner endpoint
func NewDeliveryJob(tenantID, partnerID, eventID uuid.UUID, event, url, secret string, payload []byte) *DeliveryJob {
	now := time.Now()
	return &DeliveryJob{
		ID:          uuid.New(),
		TenantID:    tenantID,
		PartnerID:   partnerID,
		EventID:     eventID,
		Event:       event,
		URL:         url,
		Secret:      secret,
		Payload:     payload,
		Status:      DeliveryStatusPending,
		Attempts:    0,
		MaxAttempts: MaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Touch updates the modification timestamp
func (j *DeliveryJob) Touch() {
	j.UpdatedAt = time.Now()
}

// MarkProcessing marks the job as claimed by a delivery worker
func (j *DeliveryJob) MarkProcessing() error {
	if j.Status != DeliveryStatusPending && j.Status != DeliveryStatusFailed {
		return errors.New("can only process pending or failed delivery jobs")
	}
	j.Status = DeliveryStatusProcessing
	j.Touch()
	return nil
}

// MarkDelivered records a successful delivery
func (j *DeliveryJob) MarkDelivered() {
	now := time.Now()
	j.Attempts++
	j.Status = DeliveryStatusDelivered
	j.DeliveredAt = &now
	j.UpdatedAt = now
}

// MarkFailed records a failed attempt. Until attempts are exhausted the job
// is rescheduled with exponential back-off (1s, 2s, 4s, 8s); the final
// failure moves it to DEAD.
func (j *DeliveryJob) MarkFailed(errMsg string) {
	j.Attempts++
	j.LastError = errMsg
	j.Touch()

	if j.Attempts >= j.MaxAttempts {
		j.Status = DeliveryStatusDead
		j.NextAttemptAt = nil
		return
	}

	j.Status = DeliveryStatusFailed
	backoff := BaseBackoff * time.Duration(1<<uint(j.Attempts-1))
	next := time.Now().Add(backoff)
	j.NextAttemptAt = &next
}

// IsDead returns true once all attempts are exhausted
func (j *DeliveryJob) IsDead() bool {
	return j.Status == DeliveryStatusDead
}

// AttemptsLeft returns the number of remaining delivery attempts
func (j *DeliveryJob) AttemptsLeft() int {
	left := j.MaxAttempts - j.Attempts
	if left < 0 {
		return 0
	}
	return left
}

// DeliveryJobRepository defines the durable queue backing webhook delivery.
// Workers claim due jobs atomically so each job has a single in-flight owner.
type DeliveryJobRepository interface {
	// Save persists one or more delivery jobs
	Save(ctx context.Context, jobs ...*DeliveryJob) error
	// ClaimDue atomically claims up to limit jobs that are due for an
	// attempt (pending, or failed with NextAttemptAt in the past) and
	// returns them in PROCESSING status
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*DeliveryJob, error)
	// Update updates an existing delivery job
	Update(ctx context.Context, job *DeliveryJob) error
	// FindDead lists permanently failed jobs for operator inspection
	FindDead(ctx context.Context, tenantID uuid.UUID, page, pageSize int) ([]*DeliveryJob, int64, error)
	// DeleteOlderThan prunes delivered and dead jobs outside the retention window
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
