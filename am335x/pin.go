// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package am335x

import (
	"errors"
	"strconv"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Pin is one GPIO line of a mapped bank. It implements gpio.PinIO.
//
// The SetOutput/SetInput/High/Low/Read primitives are raw register
// accesses with no failure path; a Pin obtained from Mem.Pin is always
// backed by a valid mapping.
type Pin struct {
	regs   []uint32
	mask   uint32
	number int
	out    bool
}

// SetOutput switches the line to output direction.
func (p *Pin) SetOutput() {
	p.regs[regOE] &^= p.mask
	p.out = true
}

// SetInput switches the line to input direction.
func (p *Pin) SetInput() {
	p.regs[regOE] |= p.mask
	p.out = false
}

// High drives the line high. The set register is write-1-to-act, so this
// is a plain store, not a read-modify-write.
func (p *Pin) High() {
	p.regs[regSetDataOut] = p.mask
}

// Low drives the line low.
func (p *Pin) Low() {
	p.regs[regClearDataOut] = p.mask
}

// Level returns the sampled input level.
func (p *Pin) Level() bool {
	return p.regs[regDataIn]&p.mask != 0
}

// Out implements gpio.PinOut.
func (p *Pin) Out(l gpio.Level) error {
	if !p.out {
		p.SetOutput()
	}
	if l {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

// In implements gpio.PinIn. The controller pull resistors are set by the
// pinmux at boot and are not touched here; edge detection is not wired.
func (p *Pin) In(pull gpio.Pull, edge gpio.Edge) error {
	if pull != gpio.Float && pull != gpio.PullNoChange {
		return errors.New("am335x: pull resistors are fixed by the pinmux")
	}
	if edge != gpio.NoEdge {
		return errors.New("am335x: edge detection not supported")
	}
	p.SetInput()
	return nil
}

// Read implements gpio.PinIn.
func (p *Pin) Read() gpio.Level {
	return gpio.Level(p.Level())
}

// WaitForEdge implements gpio.PinIn. Always returns false.
func (p *Pin) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Pull implements gpio.PinIn.
func (p *Pin) Pull() gpio.Pull {
	return gpio.Float
}

// DefaultPull implements gpio.PinIn.
func (p *Pin) DefaultPull() gpio.Pull {
	return gpio.Float
}

// PWM implements gpio.PinOut. Not supported.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return errors.New("am335x: PWM is not supported")
}

// Halt implements conn.Resource by releasing the drive, leaving the line
// as a high-impedance input.
func (p *Pin) Halt() error {
	p.SetInput()
	return nil
}

// Name implements pin.Pin.
func (p *Pin) Name() string {
	return "GPIO" + strconv.Itoa(p.number)
}

// Number implements pin.Pin.
func (p *Pin) Number() int {
	return p.number
}

// Function implements pin.Pin.
func (p *Pin) Function() string {
	if p.out {
		return "Out"
	}
	return "In"
}

func (p *Pin) String() string {
	return p.Name()
}

var _ gpio.PinIO = &Pin{}
