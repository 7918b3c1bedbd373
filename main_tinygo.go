//go:build tinygo

package main

import (
	"mote/app"
	"mote/hal"
)

func main() {
	app.Run(hal.New())
}
