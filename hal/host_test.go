//go:build !baremetal

package hal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileEEPROMPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.eeprom")

	e, err := OpenFileEEPROM(path, 64)
	require.NoError(t, err)
	assert.Equal(t, 64, e.SizeBytes())

	_, err = e.WriteAt([]byte("hello"), 10)
	require.NoError(t, err)
	require.NoError(t, e.Close())

	e, err = OpenFileEEPROM(path, 1024)
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, 64, e.SizeBytes())

	buf := make([]byte, 7)
	n, err := e.ReadAt(buf, 9)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte("\xffhello\xff"), buf)

	n, err = e.ReadAt(make([]byte, 10), 60)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = e.WriteAt([]byte{1}, 64)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestHostEEPROMFallsBackToMemory(t *testing.T) {
	t.Setenv("MOTE_EEPROM_PATH", filepath.Join(t.TempDir(), "missing", "x.eeprom"))
	l := &lines{}
	e := openHostEEPROM(l)
	_, ok := e.(*MemEEPROM)
	assert.True(t, ok)
	require.Len(t, l.got, 1)
}

func TestHostEEPROMUsesEnvPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.eeprom")
	t.Setenv("MOTE_EEPROM_PATH", path)
	e := openHostEEPROM(&lines{})
	fe, ok := e.(*FileEEPROM)
	require.True(t, ok)
	defer fe.Close()

	st, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(EEPROMSizeBytes), st.Size())
}

func TestHostLEDToggle(t *testing.T) {
	l := &lines{}
	led := &hostLED{color: LEDGreen, logger: l}
	led.Toggle()
	assert.True(t, led.IsOn())
	led.High()
	led.Toggle()
	assert.False(t, led.IsOn())
	assert.Equal(t, []string{"led green: HIGH", "led green: LOW"}, l.got)
}

func TestHostADC(t *testing.T) {
	a := newHostADC()
	v, err := a.Read(ADCTemp)
	require.NoError(t, err)
	assert.LessOrEqual(t, v, uint16(1023))

	a.Set(ADCLight, 300)
	v, _ = a.Read(ADCLight)
	assert.Equal(t, uint16(300), v)

	_, err = a.Read(NumADCChannels)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}

func TestHostFramebufferPresent(t *testing.T) {
	fb := newHostFramebuffer(4, 2)
	fb.ClearRGB(255, 0, 0)

	snap := make([]byte, len(fb.buf))
	assert.Equal(t, uint64(0), fb.snapshotRGB565(snap))
	assert.Equal(t, byte(0), snap[1])

	require.NoError(t, fb.Present())
	assert.Equal(t, uint64(1), fb.snapshotRGB565(snap))
	assert.Equal(t, byte(0xF8), snap[1])
}

func TestHostTimeCountsTicks(t *testing.T) {
	ht := newHostTime()
	ht.stepN(5)
	ht.stepN(3)
	assert.Equal(t, uint64(5), <-ht.Ticks())
	assert.Equal(t, uint64(8), <-ht.Ticks())
}

func TestRunHeadlessSimulatedClock(t *testing.T) {
	t.Setenv("MOTE_EEPROM_PATH", filepath.Join(t.TempDir(), "run.eeprom"))

	var ticks <-chan uint64
	steps := 0
	newApp := func(_ context.Context, h HAL) func() error {
		ticks = h.Time().Ticks()
		return func() error {
			steps++
			return nil
		}
	}
	err := RunHeadless(context.Background(), newApp, HeadlessConfig{Hz: 100, Frames: 5, Simulated: true})
	require.NoError(t, err)
	assert.Equal(t, 5, steps)

	var last uint64
	for len(ticks) > 0 {
		last = <-ticks
	}
	assert.Equal(t, uint64(50), last)
}

func TestRunHeadlessStepError(t *testing.T) {
	t.Setenv("MOTE_EEPROM_PATH", filepath.Join(t.TempDir(), "run.eeprom"))

	boom := errors.New("boom")
	newApp := func(context.Context, HAL) func() error {
		return func() error { return boom }
	}
	err := RunHeadless(context.Background(), newApp, HeadlessConfig{Hz: 50, Simulated: true})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "headless frame 0")
}
