package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("info")
	require.NoError(t, err)
	assert.NotNil(t, l.zap)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger("loud")
	assert.Error(t, err)
}

func TestZeroLoggerIsNoOp(t *testing.T) {
	var l Logger
	assert.NotPanics(t, func() {
		l.Info("nothing")
		l.Named("cart").Error("still nothing")
	})
}
