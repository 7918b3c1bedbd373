package timer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneShotFiresOnce(t *testing.T) {
	var fired []uint8
	s := New(func(id uint8) { fired = append(fired, id) }, zerolog.Nop())

	require.True(t, s.StartOneShot(3, 100))
	s.Tick(99)
	assert.Empty(t, fired)

	s.Tick(100)
	assert.Equal(t, []uint8{3}, fired)
	assert.False(t, s.Armed(3))

	s.Tick(500)
	assert.Equal(t, []uint8{3}, fired)
}

func TestPeriodicRearms(t *testing.T) {
	count := 0
	s := New(func(id uint8) {
		if id == 9 {
			count++
		}
	}, zerolog.Nop())

	require.True(t, s.StartPeriodic(9, 10))
	for now := uint64(1); now <= 35; now++ {
		s.Tick(now)
	}
	assert.Equal(t, 3, count)
	assert.True(t, s.Armed(9))

	s.Stop(9)
	s.Tick(100)
	assert.Equal(t, 3, count)
}

func TestStartRejectsInvalid(t *testing.T) {
	s := New(nil, zerolog.Nop())
	assert.False(t, s.StartOneShot(MaxTimers, 1))
	assert.False(t, s.StartPeriodic(1, 0))
	s.Tick(10)
}

func TestFiresInIDOrder(t *testing.T) {
	var fired []uint8
	s := New(nil, zerolog.Nop())
	s.SetHandler(func(id uint8) { fired = append(fired, id) })

	s.StartOneShot(5, 0)
	s.StartOneShot(1, 0)
	s.Tick(1)
	assert.Equal(t, []uint8{1, 5}, fired)
}

func TestTickNeverGoesBackwards(t *testing.T) {
	s := New(nil, zerolog.Nop())
	s.Tick(50)
	s.Tick(10)
	assert.Equal(t, uint64(50), s.Now())
}
