// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package spibus

import (
	"fmt"
	"io"
	"unsafe"

	"golang.org/x/sys/unix"
)

// spidev ioctl requests, from linux/spi/spidev.h.
const (
	iocWrite    = 1
	iocRead     = 2
	spiIOCMagic = 'k'
)

func spiIOC(dir, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | spiIOCMagic<<8 | nr
}

var (
	spiIOCWrMode        = spiIOC(iocWrite, 1, 1)
	spiIOCRdMode        = spiIOC(iocRead, 1, 1)
	spiIOCWrBitsPerWord = spiIOC(iocWrite, 3, 1)
	spiIOCRdBitsPerWord = spiIOC(iocRead, 3, 1)
	spiIOCWrMaxSpeedHz  = spiIOC(iocWrite, 4, 4)
	spiIOCRdMaxSpeedHz  = spiIOC(iocRead, 4, 4)
)

func spiIOCMessage(n int) uintptr {
	return spiIOC(iocWrite, 0, uintptr(n)*unsafe.Sizeof(iocTransfer{}))
}

// iocTransfer mirrors struct spi_ioc_transfer.
type iocTransfer struct {
	txBuf          uint64
	rxBuf          uint64
	length         uint32
	speedHz        uint32
	delayUsecs     uint16
	bitsPerWord    uint8
	csChange       uint8
	txNBits        uint8
	rxNBits        uint8
	wordDelayUsecs uint8
	pad            uint8
}

// dev is the raw device underneath the transport. Tests substitute a fake
// that records profile writes and transfers.
type dev interface {
	ioctl(req uintptr, arg unsafe.Pointer) error
	io.ReadWriter
	io.Closer
}

type spidev struct {
	fd int
}

func openDev(path string) (dev, error) {
	fd, err := unix.Open(path, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("spibus: opening %s: %w", path, err)
	}
	return &spidev{fd: fd}, nil
}

func (d *spidev) ioctl(req uintptr, arg unsafe.Pointer) error {
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg)); errno != 0 {
		return errno
	}
	return nil
}

func (d *spidev) Read(p []byte) (int, error) {
	return unix.Read(d.fd, p)
}

func (d *spidev) Write(p []byte) (int, error) {
	return unix.Write(d.fd, p)
}

func (d *spidev) Close() error {
	return unix.Close(d.fd)
}
