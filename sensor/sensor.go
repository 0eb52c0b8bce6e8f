// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sensor glues registered sensors to the switching fabric. The
// vendor compensation libraries consume an opaque register read/write
// pair plus a microsecond delay; Interface is that pair, with one variant
// per bus kind, picked at registration time. Dev wraps a variant so every
// register access routes the fabric first.
package sensor

import (
	"time"

	"periph.io/x/conn/v3/i2c"

	"github.com/cnpem-sei/simar-go/extmux"
	"github.com/cnpem-sei/simar-go/router"
)

// Interface is the register access a sensor driver runs on. reg 0 means
// the payload carries its own addressing (the Sensirion parts frame and
// checksum commands themselves), so nothing is prepended.
type Interface interface {
	ReadReg(reg uint8, buf []byte) error
	WriteReg(reg uint8, data []byte) error
}

// I2C accesses registers over an addressed I2C device.
type I2C struct {
	Dev *i2c.Dev
}

// ReadReg writes the register address, unless reg is 0, then reads
// len(buf) bytes.
func (c *I2C) ReadReg(reg uint8, buf []byte) error {
	if reg == 0 {
		return c.Dev.Tx(nil, buf)
	}
	return c.Dev.Tx([]byte{reg}, buf)
}

// WriteReg writes the register address followed by data, or data alone
// when reg is 0.
func (c *I2C) WriteReg(reg uint8, data []byte) error {
	w := data
	if reg != 0 {
		w = make([]byte, 0, len(data)+1)
		w = append(w, reg)
		w = append(w, data...)
	}
	return c.Dev.Tx(w, nil)
}

// Ext accesses registers through an extender board's payload path.
type Ext struct {
	Dev *extmux.Dev
}

// ReadReg sends the register address through the payload-write path,
// unless reg is 0, then reads len(buf) bytes back.
func (c *Ext) ReadReg(reg uint8, buf []byte) error {
	if reg != 0 {
		if _, err := c.Dev.Write([]byte{reg}); err != nil {
			return err
		}
	}
	_, err := c.Dev.Read(buf)
	return err
}

// WriteReg streams the register address and data through the
// payload-write path.
func (c *Ext) WriteReg(reg uint8, data []byte) error {
	w := data
	if reg != 0 {
		w = make([]byte, 0, len(data)+1)
		w = append(w, reg)
		w = append(w, data...)
	}
	_, err := c.Dev.Write(w)
	return err
}

// Dev is one registered sensor: its fixed identity on the fabric and the
// register access variant chosen for it.
type Dev struct {
	name   string
	id     router.Identity
	io     Interface
	router *router.Router
}

// New registers a sensor. The identity is fixed for the life of the
// process.
func New(name string, id router.Identity, io Interface, r *router.Router) *Dev {
	return &Dev{name: name, id: id, io: io, router: r}
}

// Identity returns the sensor's fixed fabric identity.
func (d *Dev) Identity() router.Identity {
	return d.id
}

// ReadReg routes the fabric to the sensor and reads a register. The route
// is re-established on every call; another sensor's transaction may have
// moved the fabric since the last one.
func (d *Dev) ReadReg(reg uint8, buf []byte) error {
	if err := d.router.Route(d.id); err != nil {
		return err
	}
	return d.io.ReadReg(reg, buf)
}

// WriteReg routes the fabric to the sensor and writes a register.
func (d *Dev) WriteReg(reg uint8, data []byte) error {
	if err := d.router.Route(d.id); err != nil {
		return err
	}
	return d.io.WriteReg(reg, data)
}

// Delay blocks for the given number of microseconds. Vendor drivers take
// it as their power-up and measurement delay callback; it is a plain
// bounded sleep with no cancellation.
func (d *Dev) Delay(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}

func (d *Dev) String() string {
	return d.name
}
