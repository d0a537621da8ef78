package serial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestListPorts_FiltersAndSorts(t *testing.T) {
	l := NewLister([]string{"/dev/ttyUSB*", "/dev/ttyACM*"}, zaptest.NewLogger(t))
	l.ports = func() ([]string, error) {
		return []string{"/dev/ttyUSB1", "/dev/ttyS0", "/dev/ttyACM0", "/dev/ttyUSB0"}, nil
	}

	ports, err := l.ListPorts()
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/ttyACM0", "/dev/ttyUSB0", "/dev/ttyUSB1"}, ports)
}

func TestListPorts_Error(t *testing.T) {
	l := NewLister(nil, zaptest.NewLogger(t))
	l.ports = func() ([]string, error) { return nil, errors.New("no sysfs") }

	_, err := l.ListPorts()
	assert.ErrorContains(t, err, "no sysfs")
}

func TestDefaultPortPatterns(t *testing.T) {
	assert.NotEmpty(t, DefaultPortPatterns())
}
