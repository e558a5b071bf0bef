package database

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func TestFromJSON(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var ok map[string]string
	fromJSON("isbn_certificates.metadata", datatypes.JSON(`{"edition":"first"}`), &ok)
	assert.Equal(t, map[string]string{"edition": "first"}, ok)
	assert.Empty(t, buf.String())

	var empty map[string]string
	fromJSON("isbn_certificates.metadata", nil, &empty)
	assert.Nil(t, empty)
	assert.Empty(t, buf.String())

	var corrupt map[string]string
	fromJSON("isbn_certificates.metadata", datatypes.JSON(`{"edition":`), &corrupt)
	assert.Nil(t, corrupt)
	assert.Contains(t, buf.String(), "decode json column failed")
	assert.Contains(t, buf.String(), `"column":"isbn_certificates.metadata"`)
}
