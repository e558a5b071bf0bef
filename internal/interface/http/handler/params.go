package handler

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/pubflow/internal/interface/http/dto"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
	"github.com/xiebiao/pubflow/pkg/response"
)

// pathID reads a positive numeric path parameter and writes the 400 itself
// when it is malformed.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.ErrInvalidParams.WithFields(map[string]string{name: "must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}

// bindJSON binds an optional body; an empty body leaves req untouched.
func bindJSON(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, dto.BindError(err))
		return false
	}
	return true
}

func bindRequiredJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, dto.BindError(err))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.Error(c, dto.BindError(err))
		return false
	}
	return true
}

func bindForm(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBind(req); err != nil {
		response.Error(c, dto.BindError(err))
		return false
	}
	return true
}

// formFile opens the multipart part named field. With required unset a
// missing part yields a nil file and no error.
func formFile(c *gin.Context, field string, required bool) (multipart.File, *multipart.FileHeader, bool) {
	header, err := c.FormFile(field)
	if err != nil {
		if !required && errors.Is(err, http.ErrMissingFile) {
			return nil, nil, true
		}
		response.Error(c, apperrors.New(apperrors.ErrCodeInvalidFile, "file is required").
			WithFields(map[string]string{field: "multipart file part is required"}))
		return nil, nil, false
	}
	f, err := header.Open()
	if err != nil {
		response.Error(c, apperrors.ErrBindError.WithCause(err))
		return nil, nil, false
	}
	return f, header, true
}
