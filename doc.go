// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package simar contains the bus routing layer for the SIMAR rack
// monitoring hardware.
//
// The sensors sit behind two levels of switching: a 4-way demultiplexer
// driven straight from GPIO (package demux), and optional SPI-addressed
// extender boards exposing further I2C channels (package extmux). Package
// router sequences the two selections before every bus transaction;
// package spibus owns the shared SPI controller and the profile swap
// between module-select and payload traffic; package am335x maps the GPIO
// register banks the select pins live in.
package simar
