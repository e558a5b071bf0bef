package isbncert

import (
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var (
	ErrCertificateNotFound = apperrors.New(apperrors.ErrCodeCertificateNotFound, "ISBN certificate not found")

	ErrInvalidISBN13 = apperrors.New(apperrors.ErrCodeInvalidISBN, "Invalid ISBN-13 format or check digit")

	ErrInvalidISBN10 = apperrors.New(apperrors.ErrCodeInvalidISBN, "Invalid ISBN-10 format or check digit")

	ErrInvalidCertificate = apperrors.New(apperrors.ErrCodeInvalidParams, "Invalid certificate information")

	ErrIssueDateInFuture = apperrors.New(apperrors.ErrCodeInvalidDate, "Issue date cannot be in the future")

	ErrExpiryBeforeIssue = apperrors.New(apperrors.ErrCodeInvalidDate, "Expiry date must be after issue date")

	ErrInvalidFileType = apperrors.New(apperrors.ErrCodeInvalidFile, "Certificate must be a PDF, JPEG, PNG or TIFF file")

	ErrFileSize = apperrors.New(apperrors.ErrCodeInvalidFile, "Certificate file size is outside the allowed range")

	ErrContentMismatch = apperrors.New(apperrors.ErrCodeInvalidFile, "File content does not match its declared type")

	ErrISBNDuplicate = apperrors.New(apperrors.ErrCodeISBNDuplicate, "An active certificate with this ISBN already exists")

	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "Certificate status does not allow this operation")

	ErrCertificateExpired = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "Certificate has expired")

	ErrRejectionReasonRequired = apperrors.New(apperrors.ErrCodeMissingReason, "Rejection reason is required")

	ErrAlreadyInactive = apperrors.New(apperrors.ErrCodeConflict, "Certificate is already inactive")

	ErrAlreadyActive = apperrors.New(apperrors.ErrCodeConflict, "Certificate is already active")

	ErrTooManyIDs = apperrors.New(apperrors.ErrCodeInvalidParams, "Too many certificates in one bulk request")
)
