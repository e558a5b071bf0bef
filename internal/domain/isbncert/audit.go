package isbncert

import (
	"time"

	"github.com/xiebiao/pubflow/internal/domain/identity"
)

// AuditAction names a recorded change.
type AuditAction string

const (
	AuditCreated     AuditAction = "CREATED"
	AuditVerified    AuditAction = "VERIFIED"
	AuditApproved    AuditAction = "APPROVED"
	AuditRejected    AuditAction = "REJECTED"
	AuditResubmitted AuditAction = "RESUBMITTED"
	AuditExpired     AuditAction = "EXPIRED"
	AuditDeactivated AuditAction = "DEACTIVATED"
	AuditReactivated AuditAction = "REACTIVATED"
	AuditDeleted     AuditAction = "DELETED"
)

// AuditLog is one append-only entry of a certificate's history.
type AuditLog struct {
	ID             uint
	CertificateID  uint
	Action         AuditAction
	PerformedBy    uint
	PreviousValues map[string]interface{}
	NewValues      map[string]interface{}
	Reason         string
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
}

// NewAuditLog records action by actor; before may be nil for CREATED.
func NewAuditLog(certID uint, action AuditAction, actor identity.Actor, before, after map[string]interface{}, reason string, now time.Time) *AuditLog {
	return &AuditLog{
		CertificateID:  certID,
		Action:         action,
		PerformedBy:    actor.ID,
		PreviousValues: before,
		NewValues:      after,
		Reason:         reason,
		IPAddress:      actor.IP,
		UserAgent:      actor.UserAgent,
		CreatedAt:      now,
	}
}
