//go:build !tinygo

package main

import (
	"flag"
	"fmt"
	"os"

	"mote/hal"
	"mote/internal/nodecfg"
)

const defaultEEPROMPath = "mote.eeprom"

func main() {
	var (
		outPath string
		size    int
		nodeID  uint
		tickMs  uint
		name    string
		demo    bool
		reclaim bool
	)
	flag.StringVar(&outPath, "out", defaultEEPROMPath, "Output EEPROM image path.")
	flag.IntVar(&size, "size", hal.EEPROMSizeBytes, "EEPROM image size (bytes).")
	flag.UintVar(&nodeID, "id", 1, "Node id.")
	flag.UintVar(&tickMs, "tick", 50, "Scheduling tick period (ms, 0 = no tick).")
	flag.StringVar(&name, "name", "mote", "Node name (up to 16 bytes).")
	flag.BoolVar(&demo, "demo", true, "Start the demo threads at boot.")
	flag.BoolVar(&reclaim, "reclaim", false, "Free corrupted thread slots instead of retiring them.")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(2)
	}
	if nodeID > 0xFFFF || tickMs > 0xFFFF {
		fmt.Fprintln(os.Stderr, "error: -id and -tick must fit in 16 bits")
		os.Exit(2)
	}

	cfg := nodecfg.Config{NodeID: uint16(nodeID), TickPeriodMs: uint16(tickMs), Name: name}
	if demo {
		cfg.Flags |= nodecfg.FlagDemo
	}
	if reclaim {
		cfg.Flags |= nodecfg.FlagReclaimCorrupted
	}
	if err := run(outPath, size, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(outPath string, size int, cfg nodecfg.Config) error {
	if size < nodecfg.UserOffset {
		return fmt.Errorf("eeprom size %d smaller than %d", size, nodecfg.UserOffset)
	}
	if err := os.Remove(outPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove old image %q: %w", outPath, err)
	}
	e, err := hal.OpenFileEEPROM(outPath, size)
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	if _, err := e.WriteAt(nodecfg.Encode(cfg), 0); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
