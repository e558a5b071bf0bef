package coverrequest

import (
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

var (
	ErrRequestNotFound = apperrors.New(apperrors.ErrCodeCoverRequestNotFound, "Cover design request not found")

	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidStatusTransition, "Cover design request status does not allow this operation")

	ErrRevisionLimitReached = apperrors.New(apperrors.ErrCodeRevisionLimitReached, "Revision limit reached")

	ErrInvalidRequest = apperrors.New(apperrors.ErrCodeInvalidParams, "Invalid cover design request")

	ErrDesignerRequired = apperrors.New(apperrors.ErrCodeInvalidParams, "Designer id is required")

	ErrNotAllowedToUpdate = apperrors.New(apperrors.ErrCodeForbidden, "You are not allowed to update this cover design request")

	ErrDeleteAfterAssignment = apperrors.New(apperrors.ErrCodeConflict, "Only open cover design requests can be deleted")
)
