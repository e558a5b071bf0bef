package coverdesign

import (
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var (
	ErrDesignNotFound = apperrors.New(apperrors.ErrCodeCoverDesignNotFound, "Cover design not found")

	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "Cover design status does not allow this operation")

	ErrAlreadyApproved = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "Cover design is already approved")

	ErrAlreadyRejected = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "Cover design is already rejected")

	ErrRejectActive = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "The active cover cannot be rejected; activate another design instead")

	ErrNotApproved = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "Only approved cover designs can be set as active")

	ErrDeleteActive = apperrors.New(apperrors.ErrCodeConflict, "The active cover design cannot be deleted")

	ErrWrongBook = apperrors.New(apperrors.ErrCodeBusinessError, "Cover design does not belong to the specified book")

	ErrVersionConflict = apperrors.New(apperrors.ErrCodeVersionConflict, "Cover design version already exists for this book")

	ErrRejectionReasonRequired = apperrors.New(apperrors.ErrCodeMissingReason, "Rejection reason is required")

	ErrInvalidFileType = apperrors.New(apperrors.ErrCodeInvalidFile, "Cover must be a JPEG, PNG, WEBP or TIFF image")

	ErrFileTooLarge = apperrors.New(apperrors.ErrCodeInvalidFile, "Cover file is empty or exceeds the size limit")

	ErrDimensionsTooSmall = apperrors.New(apperrors.ErrCodeInvalidFile, "Cover must be at least 300x400 pixels")

	ErrDimensionsMismatch = apperrors.New(apperrors.ErrCodeInvalidFile, "Declared dimensions do not match the image")

	ErrContentMismatch = apperrors.New(apperrors.ErrCodeInvalidFile, "File content does not match its declared type")

	ErrRequestMismatch = apperrors.New(apperrors.ErrCodeBusinessError, "Cover design request belongs to another book")

	ErrRequestClosed = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "Cover design request does not accept submissions")

	ErrNotAssignedDesigner = apperrors.New(apperrors.ErrCodeForbidden, "Only the assigned designer can submit to this request")
)
