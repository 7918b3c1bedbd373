package app

import (
	"encoding/binary"

	"mote/hal"
	"mote/internal/nodecfg"
	"mote/kernel"
)

// Demo thread memory layout.
var (
	blinkRegion = kernel.Region{Start: 0x000, End: 0x200}
	senseRegion = kernel.Region{Start: 0x200, End: 0x400}
	radioRegion = kernel.Region{Start: 0x400, End: 0x600}
)

const (
	demoStaticData = 32

	// RadioPort is the port the beacon is delivered on.
	RadioPort uint16 = 1

	// sampleOffset is where the sense thread keeps its last reading.
	sampleOffset = nodecfg.UserOffset
)

func (n *Node) startDemo() error {
	if _, err := n.Spawn(n.blink, blinkRegion, demoStaticData, 1, "blink"); err != nil {
		return err
	}
	if _, err := n.Spawn(n.sense, senseRegion, demoStaticData, 2, "sense"); err != nil {
		return err
	}
	if _, err := n.Spawn(n.radio, radioRegion, demoStaticData, 1, "radio"); err != nil {
		return err
	}
	return nil
}

// blink toggles the green LED twice a second.
func (n *Node) blink(ctx *kernel.Context) {
	for {
		_ = n.Sys.LEDToggle(hal.LEDGreen)
		n.Sys.Sleep(ctx, 500)
	}
}

// sense samples light and temperature once a second and stores the pair in
// EEPROM under the serial mutex.
func (n *Node) sense(ctx *kernel.Context) {
	log := n.log.With().Str("thread", ctx.Name()).Logger()
	m := n.Sys.SerialMutex()
	var rec [4]byte
	for {
		light, err := n.Sys.Light()
		if err != nil {
			log.Warn().Err(err).Msg("light sensor")
			n.Sys.Exit(ctx)
		}
		temp, err := n.Sys.Temp()
		if err != nil {
			log.Warn().Err(err).Msg("temperature sensor")
			n.Sys.Exit(ctx)
		}
		binary.LittleEndian.PutUint16(rec[0:2], light)
		binary.LittleEndian.PutUint16(rec[2:4], temp)

		n.Sys.Lock(ctx, m)
		if _, err := n.Sys.WriteEEPROM(rec[:], sampleOffset); err != nil {
			log.Warn().Err(err).Msg("store sample")
		}
		n.Sys.Unlock(ctx, m)

		if light < 200 {
			_ = n.Sys.LEDOn(hal.LEDRed)
		} else {
			_ = n.Sys.LEDOff(hal.LEDRed)
		}
		n.Sys.Sleep(ctx, 1000)
	}
}

// radio waits for beacons and flashes the yellow LED for each one.
func (n *Node) radio(ctx *kernel.Context) {
	buf := kernel.Region{Start: radioRegion.Start + demoStaticData + kernel.SentinelBytes, End: radioRegion.Start + 128}
	for {
		n.Sys.Lock(ctx, n.Sys.RadioMutex())
		id, ok := n.Sys.RegisterReceive(ctx, RadioPort, buf)
		n.Sys.Unlock(ctx, n.Sys.RadioMutex())
		if !ok {
			n.Sys.Sleep(ctx, 100)
			continue
		}
		size, ok := n.Sys.Receive(ctx, id)
		if !ok {
			continue
		}
		_ = n.Sys.LEDOn(hal.LEDYellow)
		n.log.Debug().Int("bytes", size).Msg("beacon received")
		n.Sys.Sleep(ctx, 50)
		_ = n.Sys.LEDOff(hal.LEDYellow)
	}
}

// beacon delivers a packet carrying the node id and the tick count. It runs
// on the timer goroutine.
func (n *Node) beacon() {
	var pkt [10]byte
	binary.LittleEndian.PutUint16(pkt[0:2], n.NodeID)
	binary.LittleEndian.PutUint64(pkt[2:10], n.Timers.Now())
	n.IO.Deliver(RadioPort, pkt[:])
}
