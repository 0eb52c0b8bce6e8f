// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package demux drives the 4-way demultiplexer on the digital interface
// board. Two GPIO lines carry the channel number in binary and steer the
// local I2C bus to one of four directly wired sensor groups.
package demux

import (
	"errors"
	"fmt"

	"periph.io/x/conn/v3/gpio"
)

// ErrInvalidChannel is returned for channels outside 0..3.
var ErrInvalidChannel = errors.New("demux: channel must be 0..3")

// Dev is the demultiplexer. s0 carries the channel's least significant
// bit. Not safe for concurrent use.
type Dev struct {
	s0, s1     gpio.PinOut
	configured bool
}

// New returns a Dev using the two select lines. No hardware is touched
// until Configure or the first Select.
func New(s0, s1 gpio.PinOut) *Dev {
	return &Dev{s0: s0, s1: s1}
}

// Configure performs the one-time select line setup, forcing both lines
// to driven outputs at channel 0. It is memoized: after the first
// success, repeat calls return nil without touching the hardware. A
// failure here means no channel can ever be selected and callers should
// treat it as a bus outage, not a per-sensor error.
func (d *Dev) Configure() error {
	if d.configured {
		return nil
	}
	if err := d.s0.Out(gpio.Low); err != nil {
		return fmt.Errorf("demux: configuring select line %s: %w", d.s0, err)
	}
	if err := d.s1.Out(gpio.Low); err != nil {
		return fmt.Errorf("demux: configuring select line %s: %w", d.s1, err)
	}
	d.configured = true
	return nil
}

// Select routes the demultiplexer to channel ch, configuring the select
// lines first if that has not happened yet.
func (d *Dev) Select(ch uint8) error {
	if ch > 3 {
		return ErrInvalidChannel
	}
	if err := d.Configure(); err != nil {
		return err
	}
	if err := d.s0.Out(gpio.Level(ch&1 != 0)); err != nil {
		return err
	}
	return d.s1.Out(gpio.Level(ch&2 != 0))
}
