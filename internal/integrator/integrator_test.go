package integrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPut_FirstSampleSeeds(t *testing.T) {
	i := New(0, 2)
	_, _, ok := i.Put(time.Millisecond, [3]float64{1, 2, 3})
	assert.False(t, ok)
}

func TestPut_TriggersOnSampleCount(t *testing.T) {
	i := New(0, 2)
	i.Put(0*time.Millisecond, [3]float64{0, 0, 0})

	_, _, ok := i.Put(1*time.Millisecond, [3]float64{2, 0, 0})
	assert.False(t, ok)

	dv, dt, ok := i.Put(2*time.Millisecond, [3]float64{2, 0, 0})
	assert.True(t, ok)
	assert.Equal(t, 2*time.Millisecond, dt)
	// 0.5*(0+2)*1ms + 0.5*(2+2)*1ms
	assert.InDelta(t, 0.003, dv[0], 1e-12)
	assert.Equal(t, 0.0, dv[1])
}

func TestPut_TriggersOnInterval(t *testing.T) {
	i := New(2500*time.Microsecond, 0)
	i.Put(0, [3]float64{0, 0, 9.8})

	var fired int
	var lastDT time.Duration
	for k := 1; k <= 10; k++ {
		if _, dt, ok := i.Put(time.Duration(k)*time.Millisecond, [3]float64{0, 0, 9.8}); ok {
			fired++
			lastDT = dt
		}
	}
	// Fires at 3ms, 6ms, 9ms.
	assert.Equal(t, 3, fired)
	assert.Equal(t, 3*time.Millisecond, lastDT)
}

func TestPut_ContinuesAcrossWindows(t *testing.T) {
	i := New(0, 1)
	i.Put(0, [3]float64{4, 0, 0})

	dv, _, ok := i.Put(time.Second/2, [3]float64{0, 0, 0})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, dv[0], 1e-12)

	// The next window starts from the carried sample (0), not from scratch.
	dv, _, ok = i.Put(time.Second, [3]float64{2, 0, 0})
	assert.True(t, ok)
	assert.InDelta(t, 0.5, dv[0], 1e-12)
}

func TestPut_GapOrNonMonotonicReseeds(t *testing.T) {
	i := New(0, 1)
	i.Put(time.Second, [3]float64{1, 1, 1})

	_, _, ok := i.Put(time.Second, [3]float64{1, 1, 1})
	assert.False(t, ok, "equal timestamp reseeds")

	_, _, ok = i.Put(3*time.Second, [3]float64{1, 1, 1})
	assert.False(t, ok, "gap above maxGap reseeds")

	_, _, ok = i.Put(3*time.Second+time.Millisecond, [3]float64{1, 1, 1})
	assert.True(t, ok)
}
