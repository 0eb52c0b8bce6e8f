// Copyright 2026 CNPEM. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sensor

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2ctest"

	"github.com/cnpem-sei/simar-go/extmux"
	"github.com/cnpem-sei/simar-go/router"
)

func TestI2CReadRegWritesAddressFirst(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{Addr: 0x76, W: []byte{0xd0}, R: []byte{0x60, 0x00}}},
	}
	c := &I2C{Dev: &i2c.Dev{Bus: bus, Addr: 0x76}}
	buf := make([]byte, 2)
	if err := c.ReadReg(0xd0, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, []byte{0x60, 0x00}) {
		t.Errorf("read %#x", buf)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestI2CRegZeroMeansPreAddressedPayload(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{
			{Addr: 0x44, W: []byte{0xfd, 0x94}, R: nil},
			{Addr: 0x44, W: nil, R: []byte{0x5d, 0x11, 0x80}},
		},
	}
	c := &I2C{Dev: &i2c.Dev{Bus: bus, Addr: 0x44}}
	// The Sensirion parts frame commands themselves; nothing is prepended.
	if err := c.WriteReg(0, []byte{0xfd, 0x94}); err != nil {
		t.Fatal(err)
	}
	if err := c.ReadReg(0, make([]byte, 3)); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestI2CWriteRegPrependsAddress(t *testing.T) {
	bus := &i2ctest.Playback{
		Ops: []i2ctest.IO{{Addr: 0x76, W: []byte{0xf4, 0x27}, R: nil}},
	}
	c := &I2C{Dev: &i2c.Dev{Bus: bus, Addr: 0x76}}
	if err := c.WriteReg(0xf4, []byte{0x27}); err != nil {
		t.Fatal(err)
	}
	if err := bus.Close(); err != nil {
		t.Fatal(err)
	}
}

// fakeTransport records the extender traffic an Ext variant generates.
type fakeTransport struct {
	events []string
}

func (b *fakeTransport) Tx(w, r []byte) error {
	b.events = append(b.events, "tx")
	return nil
}

func (b *fakeTransport) TxModule(w, r []byte) error {
	b.events = append(b.events, fmt.Sprintf("module %#02x", w[0]))
	return nil
}

func (b *fakeTransport) WithModuleProfile(fn func() error) error {
	b.events = append(b.events, "scope+")
	err := fn()
	b.events = append(b.events, "scope-")
	return err
}

func (b *fakeTransport) Write(p []byte) (int, error) {
	b.events = append(b.events, fmt.Sprintf("write %x", p))
	return len(p), nil
}

func (b *fakeTransport) Read(p []byte) (int, error) {
	b.events = append(b.events, "read")
	return len(p), nil
}

func TestExtReadRegUsesPayloadPath(t *testing.T) {
	ft := &fakeTransport{}
	board, err := extmux.New(ft, 2)
	if err != nil {
		t.Fatal(err)
	}
	c := &Ext{Dev: board}
	if err := c.ReadReg(0xd0, make([]byte, 1)); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"module 0x91", "scope+", "write d0", "scope-",
		"module 0x92", "tx",
		"module 0x93", "tx",
		"scope+", "read", "scope-",
	}
	if diff := cmp.Diff(want, ft.events); diff != "" {
		t.Errorf("extender read sequence mismatch (-want +got):\n%s", diff)
	}
}

type fakeMux struct {
	events *[]string
	tag    string
	fail   error
}

func (m *fakeMux) Select(v uint8) error {
	if m.fail != nil {
		return m.fail
	}
	*m.events = append(*m.events, m.tag)
	return nil
}

type fakeIO struct {
	events *[]string
}

func (f *fakeIO) ReadReg(reg uint8, buf []byte) error {
	*f.events = append(*f.events, "read")
	return nil
}

func (f *fakeIO) WriteReg(reg uint8, data []byte) error {
	*f.events = append(*f.events, "write")
	return nil
}

func TestDevRoutesBeforeEveryAccess(t *testing.T) {
	events := &[]string{}
	r := router.New(&fakeMux{events: events, tag: "direct"}, &fakeMux{events: events, tag: "ext"})
	d := New("bme280-rack3", router.Identity{Channel: 1, Ext: 4, Bus: router.I2C}, &fakeIO{events: events}, r)

	if err := d.ReadReg(0xf7, make([]byte, 8)); err != nil {
		t.Fatal(err)
	}
	if err := d.WriteReg(0xf4, []byte{0x27}); err != nil {
		t.Fatal(err)
	}
	want := []string{"direct", "ext", "read", "direct", "ext", "write"}
	for i, e := range want {
		if i >= len(*events) || (*events)[i] != e {
			t.Fatalf("events = %v, want %v", *events, want)
		}
	}
}

func TestDevDoesNotTouchSensorAfterRouteFailure(t *testing.T) {
	events := &[]string{}
	fail := errors.New("demux outage")
	r := router.New(&fakeMux{events: events, fail: fail}, nil)
	d := New("sht40", router.Identity{Channel: 0, Ext: -1, Bus: router.I2C}, &fakeIO{events: events}, r)

	if err := d.ReadReg(0, make([]byte, 6)); !errors.Is(err, fail) {
		t.Fatalf("err = %v, want the routing failure", err)
	}
	if len(*events) != 0 {
		t.Errorf("sensor accessed on a failed route: %v", *events)
	}
}
