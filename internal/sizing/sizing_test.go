package sizing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/envup/internal/sizing"
)

func TestWorkers(t *testing.T) {
	tests := map[string]struct {
		cpus  int
		memMB int
		load1 float64
		exp   int
	}{
		"a small machine should get a single worker": {
			cpus: 2, memMB: 4096, load1: 0,
			exp: 1,
		},
		"a typical codespace should get cpus/2 workers": {
			cpus: 8, memMB: 32768, load1: 0,
			exp: 4,
		},
		"memory should bound before cpus when scarce": {
			cpus: 16, memMB: 8192, load1: 0,
			exp: 2,
		},
		"high load should shed one worker": {
			cpus: 8, memMB: 32768, load1: 7.5,
			exp: 3,
		},
		"high load should never shed below one worker": {
			cpus: 2, memMB: 4096, load1: 10,
			exp: 1,
		},
		"a huge machine should be capped": {
			cpus: 64, memMB: 262144, load1: 0,
			exp: 8,
		},
		"zero cpus should still give one worker": {
			cpus: 0, memMB: 0, load1: 0,
			exp: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, sizing.Workers(test.cpus, test.memMB, test.load1))
		})
	}
}

func TestDetect(t *testing.T) {
	assert := assert.New(t)

	cpus, memMB, load1 := sizing.Detect()

	assert.Greater(cpus, 0)
	assert.Greater(memMB, 0)
	assert.GreaterOrEqual(load1, 0.0)
}
