package app

import (
	"context"
	"encoding/binary"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mote/hal"
	"mote/internal/nodecfg"
	"mote/kernel"
)

type testLED struct {
	mu      sync.Mutex
	on      bool
	toggles int
}

func (l *testLED) High() { l.mu.Lock(); l.on = true; l.mu.Unlock() }
func (l *testLED) Low()  { l.mu.Lock(); l.on = false; l.mu.Unlock() }
func (l *testLED) Toggle() {
	l.mu.Lock()
	l.on = !l.on
	l.toggles++
	l.mu.Unlock()
}
func (l *testLED) IsOn() bool { l.mu.Lock(); defer l.mu.Unlock(); return l.on }
func (l *testLED) count() int { l.mu.Lock(); defer l.mu.Unlock(); return l.toggles }

type testLEDs [hal.NumLEDs]testLED

func (t *testLEDs) LED(c hal.LEDColor) hal.LED {
	if c >= hal.NumLEDs {
		return nil
	}
	return &t[c]
}

type testADC struct{}

func (testADC) Read(ch hal.ADCChannel) (uint16, error) { return 100 + uint16(ch), nil }

type testTime struct{ ch chan uint64 }

func (t testTime) Ticks() <-chan uint64 { return t.ch }

type testLogger struct{}

func (testLogger) WriteLineString(string) {}
func (testLogger) WriteLineBytes([]byte)  {}

type testHAL struct {
	leds   testLEDs
	eeprom *hal.MemEEPROM
	time   testTime
}

func newTestHAL() *testHAL {
	return &testHAL{
		eeprom: hal.NewMemEEPROM(256),
		time:   testTime{ch: make(chan uint64, 16)},
	}
}

func (h *testHAL) Logger() hal.Logger   { return testLogger{} }
func (h *testHAL) LEDs() hal.LEDs       { return &h.leds }
func (h *testHAL) EEPROM() hal.EEPROM   { return h.eeprom }
func (h *testHAL) ADC() hal.ADC         { return testADC{} }
func (h *testHAL) Display() hal.Display { return nil }
func (h *testHAL) Time() hal.Time       { return h.time }

// pump feeds 5ms ticks until ctx is done.
func (h *testHAL) pump(ctx context.Context) {
	var now uint64
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			now += 5
			select {
			case h.time.ch <- now:
			default:
			}
		}
	}
}

func TestNodeRunsDemo(t *testing.T) {
	h := newTestHAL()
	cfg := DefaultConfig()
	cfg.UseEEPROM = false
	cfg.BeaconMs = 100
	n := NewNode(h, cfg)
	require.NoError(t, n.Boot())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	go h.pump(ctx)

	require.Eventually(t, func() bool {
		return h.leds[hal.LEDGreen].count() >= 2
	}, 10*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		var rec [4]byte
		_, _ = h.eeprom.ReadAt(rec[:], sampleOffset)
		return binary.LittleEndian.Uint16(rec[0:2]) == 100 &&
			binary.LittleEndian.Uint16(rec[2:4]) == 101
	}, 10*time.Second, 5*time.Millisecond)

	assert.True(t, h.leds[hal.LEDRed].IsOn())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop")
	}
}

func TestNodeAppliesEEPROMConfig(t *testing.T) {
	h := newTestHAL()
	_, err := h.eeprom.WriteAt(nodecfg.Encode(nodecfg.Config{
		NodeID:       42,
		TickPeriodMs: 20,
		Flags:        nodecfg.FlagReclaimCorrupted,
		Name:         "attic",
	}), 0)
	require.NoError(t, err)

	n := NewNode(h, DefaultConfig())
	assert.Equal(t, uint16(42), n.NodeID)
	assert.Equal(t, "attic", n.Name)
	assert.False(t, n.cfg.Demo)
	assert.Equal(t, kernel.ReclaimCorrupted, n.cfg.FaultPolicy)
	assert.Equal(t, uint16(20), n.cfg.TickPeriodMs)

	require.NoError(t, n.Boot())
	t.Cleanup(n.Kernel.Close)
	for _, ti := range n.Kernel.Snapshot() {
		assert.Equal(t, kernel.StateNull, ti.State)
	}
	assert.True(t, n.Timers.Armed(kernel.TickTimerID))
}

func TestOverrideWinsOverEEPROM(t *testing.T) {
	h := newTestHAL()
	_, err := h.eeprom.WriteAt(nodecfg.Encode(nodecfg.Config{
		NodeID:       7,
		TickPeriodMs: 20,
		Flags:        nodecfg.FlagDemo,
		Name:         "shed",
	}), 0)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Override = func(c *Config) {
		c.Demo = false
		c.FaultPolicy = kernel.ReclaimCorrupted
	}
	n := NewNode(h, cfg)
	t.Cleanup(n.Kernel.Close)

	assert.Equal(t, uint16(7), n.NodeID)
	assert.Equal(t, uint16(20), n.cfg.TickPeriodMs)
	assert.False(t, n.cfg.Demo)
	assert.Equal(t, kernel.ReclaimCorrupted, n.cfg.FaultPolicy)
}

func TestBeaconReachesReceiver(t *testing.T) {
	h := newTestHAL()
	cfg := DefaultConfig()
	cfg.UseEEPROM = false
	cfg.Demo = false
	cfg.BeaconMs = 0
	n := NewNode(h, cfg)
	n.NodeID = 0xBEEF
	t.Cleanup(n.Kernel.Close)

	var got []byte
	region := kernel.Region{Start: 0, End: 128}
	_, err := n.Spawn(func(ctx *kernel.Context) {
		id, ok := n.Sys.RegisterReceive(ctx, RadioPort, kernel.Region{Start: 64, End: 80})
		if !ok {
			return
		}
		size, _ := n.Sys.Receive(ctx, id)
		got = append([]byte(nil), ctx.Memory()[64:64+size]...)
	}, region, 16, 1, "rx")
	require.NoError(t, err)

	n.Tasks.RunPending(0)
	n.timerFired(BeaconTimerID)
	n.Tasks.RunPending(0)

	require.Len(t, got, 10)
	assert.Equal(t, uint16(0xBEEF), binary.LittleEndian.Uint16(got[0:2]))
}

func TestSpawnReportsFailure(t *testing.T) {
	n := NewNode(nil, Config{Log: zerolog.Nop()})
	t.Cleanup(n.Kernel.Close)
	_, err := n.Spawn(func(*kernel.Context) {}, kernel.Region{Start: 10, End: 5}, 0, 1, "bad")
	assert.ErrorContains(t, err, "bad memory region")
}

func TestTakeRunes(t *testing.T) {
	p, rest := takeRunes("héllo", 2)
	assert.Equal(t, "hé", p)
	assert.Equal(t, "llo", rest)
}
