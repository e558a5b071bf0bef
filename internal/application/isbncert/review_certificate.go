package isbncert

import (
	"context"
	"log/slog"
	"time"

	"github.com/xiebiao/pubflow/internal/domain/identity"
	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/policy"
	"github.com/xiebiao/pubflow/internal/domain/shared"
	"github.com/xiebiao/pubflow/internal/infrastructure/config"
	"github.com/xiebiao/pubflow/internal/infrastructure/events"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// Decision is a review outcome.
type Decision string

const (
	DecisionVerify  Decision = "verify"
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ReviewCertificateUseCase verifies, approves or rejects a certificate.
// Approval is narrower than verification: EDITOR may verify and reject but
// not approve.
type ReviewCertificateUseCase struct {
	writer
	publisher events.Publisher
	now       func() time.Time
}

func NewReviewCertificateUseCase(
	certs isbncert.Repository,
	audits isbncert.AuditRepository,
	tx shared.Transactor,
	cache StatisticsCache,
	publisher events.Publisher,
) *ReviewCertificateUseCase {
	return &ReviewCertificateUseCase{
		writer:    writer{certs: certs, audits: audits, tx: tx, cache: cache},
		publisher: publisher,
		now:       utcNow,
	}
}

type ReviewCertificateRequest struct {
	Actor         identity.Actor
	CertificateID uint
	Decision      Decision
	Method        string // verification method, verify only
	Reason        string // reject only
}

func (uc *ReviewCertificateUseCase) Execute(ctx context.Context, req ReviewCertificateRequest) (*isbncert.Certificate, error) {
	var (
		m         mutation
		eventType string
	)
	switch req.Decision {
	case DecisionVerify:
		m = mutation{op: policy.CertificateVerify, action: isbncert.AuditVerified, apply: func(_ context.Context, c *isbncert.Certificate, now time.Time) error {
			return c.Verify(req.Actor.ID, req.Method, now)
		}}
		eventType = events.CertificateVerified
	case DecisionApprove:
		m = mutation{op: policy.CertificateApprove, action: isbncert.AuditApproved, apply: func(_ context.Context, c *isbncert.Certificate, now time.Time) error {
			return c.Approve(req.Actor.ID, now)
		}}
		eventType = events.CertificateApproved
	case DecisionReject:
		m = mutation{op: policy.CertificateReject, action: isbncert.AuditRejected, reason: req.Reason, apply: func(_ context.Context, c *isbncert.Certificate, now time.Time) error {
			return c.Reject(req.Actor.ID, req.Reason, now)
		}}
		eventType = events.CertificateRejected
	default:
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"decision": "unknown decision"})
	}

	now := uc.now()
	c, err := uc.mutate(ctx, req.Actor, req.CertificateID, now, m)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "isbn certificate reviewed",
		"certificate_id", c.ID,
		"decision", req.Decision,
		"status", c.Status,
		"actor_id", req.Actor.ID,
	)
	announce(ctx, uc.publisher, eventType, string(req.Decision), c, req.Actor, now)
	return c, nil
}

// BulkVerifyUseCase verifies many certificates, each in its own transaction.
type BulkVerifyUseCase struct {
	review *ReviewCertificateUseCase
	limit  int
}

func NewBulkVerifyUseCase(review *ReviewCertificateUseCase, cfg config.WorkflowConfig) *BulkVerifyUseCase {
	limit := cfg.BulkVerifyMax
	if limit <= 0 {
		limit = 50
	}
	return &BulkVerifyUseCase{review: review, limit: limit}
}

type BulkVerifyRequest struct {
	Actor  identity.Actor
	IDs    []uint
	Method string
}

// BulkVerifyResult is the outcome for one id.
type BulkVerifyResult struct {
	ID      uint   `json:"id"`
	Success bool   `json:"success"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type BulkVerifyResponse struct {
	Results   []BulkVerifyResult `json:"results"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

func (uc *BulkVerifyUseCase) Execute(ctx context.Context, req BulkVerifyRequest) (*BulkVerifyResponse, error) {
	if err := policy.Authorize(policy.CertificateVerify, policy.AnyState, req.Actor); err != nil {
		return nil, err
	}
	if len(req.IDs) == 0 {
		return nil, apperrors.ErrInvalidParams.WithFields(map[string]string{"certificate_ids": "must not be empty"})
	}
	if len(req.IDs) > uc.limit {
		return nil, isbncert.ErrTooManyIDs
	}

	res := &BulkVerifyResponse{Results: make([]BulkVerifyResult, 0, len(req.IDs))}
	for _, id := range req.IDs {
		_, err := uc.review.Execute(ctx, ReviewCertificateRequest{
			Actor:         req.Actor,
			CertificateID: id,
			Decision:      DecisionVerify,
			Method:        req.Method,
		})
		if err != nil {
			appErr := apperrors.GetAppError(err)
			res.Results = append(res.Results, BulkVerifyResult{ID: id, Code: appErr.Code, Message: appErr.Message})
			res.Failed++
			continue
		}
		res.Results = append(res.Results, BulkVerifyResult{ID: id, Success: true})
		res.Succeeded++
	}

	slog.InfoContext(ctx, "isbn certificates bulk verified",
		"requested", len(req.IDs),
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"actor_id", req.Actor.ID,
	)
	return res, nil
}
