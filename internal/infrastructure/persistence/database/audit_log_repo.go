package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/pubflow/internal/domain/isbncert"
	"github.com/xiebiao/pubflow/internal/domain/shared"
)

type auditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) isbncert.AuditRepository {
	return &auditLogRepository{db: db}
}

// Append must run in the transaction of the change it records.
func (r *auditLogRepository) Append(ctx context.Context, log *isbncert.AuditLog) error {
	model := &IsbnCertificateAuditLogModel{
		CertificateID:  log.CertificateID,
		Action:         string(log.Action),
		PerformedBy:    log.PerformedBy,
		PreviousValues: toJSON(log.PreviousValues),
		NewValues:      toJSON(log.NewValues),
		Reason:         log.Reason,
		IPAddress:      log.IPAddress,
		UserAgent:      log.UserAgent,
		CreatedAt:      log.CreatedAt,
	}
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return dbError(err, "write audit log failed")
	}
	log.ID = model.ID
	log.CreatedAt = model.CreatedAt
	return nil
}

func (r *auditLogRepository) ListByCertificate(ctx context.Context, certificateID uint, page shared.Page) ([]*isbncert.AuditLog, int64, error) {
	var models []IsbnCertificateAuditLogModel
	q := dbFrom(ctx, r.db).Model(&IsbnCertificateAuditLogModel{}).Where("certificate_id = ?", certificateID)
	total, err := paginate(q, "created_at DESC, id DESC", page, &models)
	if err != nil {
		return nil, 0, dbError(err, "list audit logs failed")
	}

	out := make([]*isbncert.AuditLog, len(models))
	for i := range models {
		m := &models[i]
		out[i] = &isbncert.AuditLog{
			ID:            m.ID,
			CertificateID: m.CertificateID,
			Action:        isbncert.AuditAction(m.Action),
			PerformedBy:   m.PerformedBy,
			Reason:        m.Reason,
			IPAddress:     m.IPAddress,
			UserAgent:     m.UserAgent,
			CreatedAt:     m.CreatedAt,
		}
		fromJSON("isbn_certificate_audit_logs.previous_values", m.PreviousValues, &out[i].PreviousValues)
		fromJSON("isbn_certificate_audit_logs.new_values", m.NewValues, &out[i].NewValues)
	}
	return out, total, nil
}
