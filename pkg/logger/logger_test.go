package logger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("storefront", "test", "loud")
	require.Error(t, err)
}

func TestNew_WritesToLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	t.Setenv("LOG_FILE", path)

	l, err := New("storefront", "test", "debug")
	require.NoError(t, err)

	l.With("order_id", "o-1").Infof("order %s created", "o-1")
	l.Errorf(errors.New("boom"), "failed")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"order o-1 created"`)
	assert.Contains(t, string(data), `"order_id":"o-1"`)
	assert.Contains(t, string(data), `"error":"boom"`)
	assert.Contains(t, string(data), `"service":"storefront"`)
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	assert.NotPanics(t, func() {
		l.Debugf("x")
		l.Warnf("y %d", 1)
		l.With("k", "v").Errorf(errors.New("e"), "z")
	})
}
