// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package spibus owns the spidev controller that the SIMAR hardware time
// shares between two kinds of traffic: module-select frames for the
// extender boards, and sensor payload bytes. The two use different
// electrical profiles, and the controller holds exactly one profile at a
// time, so module-select traffic runs inside a scope that swaps the
// profile in and restores the payload profile on every exit path.
//
// A Bus is not safe for concurrent use; routing and transfer form one
// atomic unit from the hardware's point of view and must be driven by a
// single caller.
package spibus

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Profile is the electrical configuration of the controller for one class
// of traffic. Only the CPOL/CPHA bits of Mode are programmed.
type Profile struct {
	Mode  spi.Mode
	Bits  uint8
	Speed physic.Frequency
}

// Bus is an open spidev controller plus the chip-enable line of the
// module-select path.
type Bus struct {
	dev     dev
	ce      gpio.PinOut
	payload Profile // configured at Open, restored after module-select scopes
	active  Profile // currently programmed
}

// Open opens the spidev device at path, programs p as the payload profile
// (each parameter is written and read back to confirm the controller
// accepted it) and deasserts the module-select enable line ce.
func Open(path string, p Profile, ce gpio.PinOut) (*Bus, error) {
	d, err := openDev(path)
	if err != nil {
		return nil, err
	}
	b, err := newBus(d, p, ce)
	if err != nil {
		d.Close()
		return nil, err
	}
	return b, nil
}

func newBus(d dev, p Profile, ce gpio.PinOut) (*Bus, error) {
	b := &Bus{dev: d, ce: ce}
	if err := b.program(p); err != nil {
		return nil, err
	}
	b.payload = p
	if err := ce.Out(gpio.High); err != nil {
		return nil, err
	}
	return b, nil
}

// Close releases the controller. Mapped GPIO state is untouched.
func (b *Bus) Close() error {
	return b.dev.Close()
}

// Profile returns the profile currently programmed into the controller.
func (b *Bus) Profile() Profile {
	return b.active
}

// Tx performs one fixed-length full-duplex exchange at the active profile.
// r may be nil to discard the received bytes; otherwise it must be the
// same length as w.
func (b *Bus) Tx(w, r []byte) error {
	if len(w) == 0 {
		return errors.New("spibus: empty transfer")
	}
	if r != nil && len(r) != len(w) {
		return errors.New("spibus: tx and rx lengths differ")
	}
	t := iocTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&w[0]))),
		length:      uint32(len(w)),
		speedHz:     uint32(b.active.Speed / physic.Hertz),
		bitsPerWord: b.active.Bits,
	}
	if r != nil {
		t.rxBuf = uint64(uintptr(unsafe.Pointer(&r[0])))
	}
	err := b.dev.ioctl(spiIOCMessage(1), unsafe.Pointer(&t))
	// The buffers only reach the kernel as raw addresses inside t; keep
	// them live until the ioctl has returned.
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	if err != nil {
		return fmt.Errorf("spibus: transfer failed: %w", err)
	}
	return nil
}

// Write writes payload bytes straight to the device at the active profile.
func (b *Bus) Write(p []byte) (int, error) {
	n, err := b.dev.Write(p)
	if err != nil {
		return n, fmt.Errorf("spibus: write failed: %w", err)
	}
	return n, nil
}

// Read reads payload bytes straight from the device at the active profile.
func (b *Bus) Read(p []byte) (int, error) {
	n, err := b.dev.Read(p)
	if err != nil {
		return n, fmt.Errorf("spibus: read failed: %w", err)
	}
	return n, nil
}

// moduleProfile is the fixed profile the extender boards listen for
// select frames with: clock mode 3, 8 bits per word, at the bus speed.
func (b *Bus) moduleProfile() Profile {
	return Profile{Mode: spi.Mode3, Bits: 8, Speed: b.payload.Speed}
}

// WithModuleProfile swaps the controller to the module-select profile if
// it is not already active, runs fn, and restores the previous profile.
// Restoration happens on every exit path, including when fn fails; a
// restore failure is reported only if fn itself succeeded.
func (b *Bus) WithModuleProfile(fn func() error) (err error) {
	prev := b.active
	if mod := b.moduleProfile(); prev != mod {
		if err := b.program(mod); err != nil {
			return err
		}
		defer func() {
			if rerr := b.program(prev); err == nil {
				err = rerr
			}
		}()
	}
	return fn()
}

// TxModule sends one module-select exchange: the profile is swapped in,
// the enable line pulsed low around the transfer, and the payload profile
// restored. The enable line is driven high again even when the transfer
// failed.
func (b *Bus) TxModule(w, r []byte) error {
	return b.WithModuleProfile(func() error {
		if err := b.ce.Out(gpio.Low); err != nil {
			return err
		}
		err := b.Tx(w, r)
		if herr := b.ce.Out(gpio.High); err == nil {
			err = herr
		}
		return err
	})
}

// program pushes every parameter of p to the controller, reading each one
// back to confirm acceptance, and records p as the active profile.
func (b *Bus) program(p Profile) error {
	if err := b.setU8(spiIOCWrMode, spiIOCRdMode, uint8(p.Mode&0x3), "mode"); err != nil {
		return err
	}
	if err := b.setU8(spiIOCWrBitsPerWord, spiIOCRdBitsPerWord, p.Bits, "bits per word"); err != nil {
		return err
	}
	if err := b.setU32(spiIOCWrMaxSpeedHz, spiIOCRdMaxSpeedHz, uint32(p.Speed/physic.Hertz), "speed"); err != nil {
		return err
	}
	b.active = p
	return nil
}

func (b *Bus) setU8(wr, rd uintptr, v uint8, what string) error {
	if err := b.dev.ioctl(wr, unsafe.Pointer(&v)); err != nil {
		return fmt.Errorf("spibus: setting %s: %w", what, err)
	}
	var got uint8
	if err := b.dev.ioctl(rd, unsafe.Pointer(&got)); err != nil {
		return fmt.Errorf("spibus: reading back %s: %w", what, err)
	}
	if got != v {
		return fmt.Errorf("spibus: %s %d not accepted, controller reports %d", what, v, got)
	}
	return nil
}

func (b *Bus) setU32(wr, rd uintptr, v uint32, what string) error {
	if err := b.dev.ioctl(wr, unsafe.Pointer(&v)); err != nil {
		return fmt.Errorf("spibus: setting %s: %w", what, err)
	}
	var got uint32
	if err := b.dev.ioctl(rd, unsafe.Pointer(&got)); err != nil {
		return fmt.Errorf("spibus: reading back %s: %w", what, err)
	}
	if got != v {
		return fmt.Errorf("spibus: %s %d not accepted, controller reports %d", what, v, got)
	}
	return nil
}
