package device

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tactile-robotics/handlink/internal/wire"
)

func TestMapServosEndpoints(t *testing.T) {
	var p wire.Payload
	for _, idx := range ServoMap {
		p[idx] = 255
	}
	cmd := MapServos(p)
	for servo := range cmd {
		assert.Equal(t, 180.0, cmd[servo], "servo %d at byte 255", servo)
	}

	cmd = MapServos(wire.Payload{})
	for servo := range cmd {
		assert.Equal(t, 0.0, cmd[servo], "servo %d at byte 0", servo)
	}
}

func TestMapServosAlwaysInRange(t *testing.T) {
	var p wire.Payload
	for i := range p {
		p[i] = byte(i * 37)
	}
	cmd := MapServos(p)
	for servo, degrees := range cmd {
		assert.GreaterOrEqual(t, degrees, 0.0, "servo %d", servo)
		assert.LessOrEqual(t, degrees, 180.0, "servo %d", servo)
	}
}

func TestMapServosUsesMappedIndices(t *testing.T) {
	var p wire.Payload
	p[ServoMap[1]] = 255 // index curl only
	cmd := MapServos(p)

	assert.Equal(t, 180.0, cmd[1])
	assert.Equal(t, 0.0, cmd[0])
	assert.Equal(t, 0.0, cmd[2])
}
