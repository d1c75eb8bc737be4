package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	corelogger "github.com/villaops/dispatchd/core/logger"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	l := NewZerologLogger("test")
	assert.NotNil(t, l)
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
}

func TestNewReturnsStructuredLogger(t *testing.T) {
	l := New("component")
	assert.NotNil(t, l)
	_, ok := l.(corelogger.StructuredLogger)
	assert.True(t, ok)
}
