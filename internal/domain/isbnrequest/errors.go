package isbnrequest

import (
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var (
	ErrRequestNotFound = apperrors.New(apperrors.ErrCodeIsbnRequestNotFound, "ISBN request not found")

	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "ISBN request status does not allow this operation")

	ErrInvalidRequest = apperrors.New(apperrors.ErrCodeInvalidParams, "Invalid ISBN request")

	ErrPublisherRequired = apperrors.New(apperrors.ErrCodeInvalidParams, "Publisher id is required")

	ErrCertificateRequired = apperrors.New(apperrors.ErrCodeInvalidParams, "ISBN certificate id is required")

	ErrCertificateMismatch = apperrors.New(apperrors.ErrCodeBusinessError, "ISBN certificate belongs to another book")

	ErrCertificateNotUsable = apperrors.New(apperrors.ErrCodeConflict, "ISBN certificate must be active and verified or approved")
)
