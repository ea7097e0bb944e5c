package serial

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort_String(t *testing.T) {
	assert.Equal(t, "COM13@9600", NewPort("COM13", 9600).String())
}

func TestPort_OpenMissingDevice(t *testing.T) {
	p := NewPort(filepath.Join(t.TempDir(), "ttyUSB9"), 9600)
	rc, err := p.Open()
	require.Error(t, err)
	assert.Nil(t, rc)
}
