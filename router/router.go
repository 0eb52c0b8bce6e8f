// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package router sequences the channel selections that must precede every
// sensor transaction: the local demultiplexer hop always, then the
// extender hop when the sensor sits behind an extender board.
//
// The switching fabric is shared, so a route is only valid until some
// other sensor's transaction moves it. Callers must Route immediately
// before every bus transaction and never cache the result. A Router is
// not safe for concurrent use: routing and the transaction that follows
// form one atomic unit from the bus's point of view, and interleaving
// another caller between them silently redirects the transfer.
package router

import "errors"

// Kind is the bus type of the final hop to a sensor. The router carries
// it for the transaction layer but does not interpret it.
type Kind int

const (
	I2C Kind = iota
	SPI
)

// Identity fixes how one sensor is physically reached. It is assigned at
// registration time and never changes.
type Identity struct {
	// Channel is the direct demultiplexer channel, 0..3.
	Channel uint8
	// Ext is the extender module selector; negative means the sensor is
	// wired directly and no extender hop happens.
	Ext int
	// Bus is the bus kind of the final hop.
	Bus Kind
}

// DirectMux selects a channel on the local demultiplexer.
type DirectMux interface {
	Select(ch uint8) error
}

// ExtMux selects a module on the extender board.
type ExtMux interface {
	Select(module uint8) error
}

// ErrNoExtender is returned when an identity asks for an extender hop but
// the router was built without one.
var ErrNoExtender = errors.New("router: no extender board registered")

// ErrInvalidModule is returned when an identity's extender module is
// outside the 3-bit selector range.
var ErrInvalidModule = errors.New("router: extender module must be 0..7")

// Router drives the two-level switching fabric.
type Router struct {
	direct DirectMux
	ext    ExtMux
}

// New returns a Router. ext may be nil on racks without extender boards.
func New(direct DirectMux, ext ExtMux) *Router {
	return &Router{direct: direct, ext: ext}
}

// Route prepares the fabric for a transaction with the sensor identified
// by id. The direct selection always runs; the extender selection runs
// only when id.Ext is non-negative. An identity with an out-of-range
// module is rejected before anything is driven. The first failure is
// returned and the second stage is not attempted, leaving the fabric in
// an indeterminate state the caller must not transact on.
func (r *Router) Route(id Identity) error {
	// Checked here, not after the narrowing below: a wide value such as
	// 256 would otherwise wrap into the valid selector window.
	if id.Ext > 7 {
		return ErrInvalidModule
	}
	if err := r.direct.Select(id.Channel); err != nil {
		return err
	}
	if id.Ext < 0 {
		return nil
	}
	if r.ext == nil {
		return ErrNoExtender
	}
	return r.ext.Select(uint8(id.Ext))
}
