// Package devid encodes the 32-bit sensor device identifier.
//
// Bit layout (stable, shared with every consumer of published records):
//
//	bits  0-2   bus type
//	bits  3-7   bus number
//	bits  8-15  bus address
//	bits 16-23  device type
//	bits 24-31  unused, preserved as-is
package devid

import "fmt"

type BusType uint8

const (
	BusUnknown BusType = iota
	BusI2C
	BusSPI
	BusUAVCAN
	BusSimulation
	BusSerial
	BusMAVLink
)

func (b BusType) String() string {
	switch b {
	case BusUnknown:
		return "UNKNOWN"
	case BusI2C:
		return "I2C"
	case BusSPI:
		return "SPI"
	case BusUAVCAN:
		return "UAVCAN"
	case BusSimulation:
		return "SIMULATION"
	case BusSerial:
		return "SERIAL"
	case BusMAVLink:
		return "MAVLINK"
	default:
		return fmt.Sprintf("BUS(%d)", uint8(b))
	}
}

const (
	busTypeShift = 0
	busTypeMask  = 0x7
	busShift     = 3
	busMask      = 0x1F
	addressShift = 8
	addressMask  = 0xFF
	devTypeShift = 16
	devTypeMask  = 0xFF
)

// ID is a packed device identifier.
type ID uint32

// New packs the individual fields. Out-of-range bus type or bus values are
// truncated to their field width.
func New(busType BusType, bus uint8, address uint8, devType uint8) ID {
	var id ID
	id |= ID(uint32(busType)&busTypeMask) << busTypeShift
	id |= ID(uint32(bus)&busMask) << busShift
	id |= ID(uint32(address)&addressMask) << addressShift
	id |= ID(uint32(devType)&devTypeMask) << devTypeShift
	return id
}

func (id ID) BusType() BusType { return BusType((uint32(id) >> busTypeShift) & busTypeMask) }
func (id ID) Bus() uint8       { return uint8((uint32(id) >> busShift) & busMask) }
func (id ID) Address() uint8   { return uint8((uint32(id) >> addressShift) & addressMask) }
func (id ID) DevType() uint8   { return uint8((uint32(id) >> devTypeShift) & devTypeMask) }

// WithDevType returns id with only the device-type field replaced.
func (id ID) WithDevType(devType uint8) ID {
	cleared := uint32(id) &^ (devTypeMask << devTypeShift)
	return ID(cleared | (uint32(devType)&devTypeMask)<<devTypeShift)
}

func (id ID) String() string {
	return fmt.Sprintf("type: 0x%02X, %s:%d (0x%02X)", id.DevType(), id.BusType(), id.Bus(), id.Address())
}
