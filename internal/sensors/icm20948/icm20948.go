package icm20948

import (
	"errors"
	"fmt"
	"math"
	"time"

	"accel-ng/internal/i2c"
)

var sleep = time.Sleep

// Accelerometer-only ICM-20948 driver returning raw counts.
//
// The caller owns scaling: Range() and Scale() describe the configured
// full-scale so raw int16 samples can be conditioned downstream.

// DevType is the device-type byte used in device identifiers.
const DevType = 0x2B

const (
	addrDefault = 0x68

	regWhoAmI  = 0x00
	whoAmIVal  = 0xEA
	regBankSel = 0x7F

	// Bank 0.
	regUserCtrl   = 0x03
	bitFIFOEn     = 0x40
	regPwrMgmt1   = 0x06
	bitReset      = 0x80
	regPwrMgmt2   = 0x07
	regIntEnable1 = 0x11
	bitRawRdyEn   = 0x01
	regAccelXoutH = 0x2D
	regTempOutH   = 0x39
	regFIFOEn2    = 0x67
	bitAccelFIFO  = 0x10
	regFIFORst    = 0x68
	regFIFOCountH = 0x70
	regFIFORW     = 0x72

	// Bank 2.
	bank2           = 2
	regAccelSmplrt1 = 0x10
	regAccelSmplrt2 = 0x11
	regAccelConfig  = 0x14
	bitAccelFChoice = 0x01
	accelDLPF       = 0x03 << 3

	baseRateHz = 1125.0
	maxDivider = 0x0FFF

	// Hardware FIFO size in bytes, and bytes per accel-only record.
	fifoSize     = 512
	bytesPerSamp = 6

	tempSensitivity = 333.87 // LSB/degC
	tempOffset      = 21.0

	standardGravity = 9.80665
)

// ErrFIFOOverflow reports that the hardware FIFO filled before it was
// drained. The FIFO has been reset and its contents discarded.
var ErrFIFOOverflow = errors.New("icm20948: fifo overflow")

// Config selects the accelerometer full-scale and output data rate.
type Config struct {
	// RangeG is the full-scale in g: 2, 4, 8 or 16.
	RangeG int
	// RateHz is the requested output data rate; the nearest divider is used.
	RateHz float64
	FIFO   bool
	// DataReady routes raw-data-ready to INT1.
	DataReady bool
}

// Raw is one accelerometer sample in sensor counts.
type Raw struct {
	X, Y, Z int16
}

type Device struct {
	dev regIO

	curBank byte
	rangeG  int
	divider uint16
	fifo    bool
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	ReadRegBurst(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

func DefaultAddress() uint16 { return addrDefault }

func New(dev *i2c.Dev, cfg Config) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("icm20948: dev is nil")
	}
	return newWithIO(dev, cfg)
}

func newWithIO(dev regIO, cfg Config) (*Device, error) {
	if dev == nil {
		return nil, fmt.Errorf("icm20948: dev is nil")
	}
	fsSel, err := rangeSelect(cfg.RangeG)
	if err != nil {
		return nil, err
	}
	if !(cfg.RateHz > 0) {
		return nil, fmt.Errorf("icm20948: rate %v must be > 0", cfg.RateHz)
	}
	d := &Device{
		dev:     dev,
		curBank: 0xFF,
		rangeG:  cfg.RangeG,
		divider: rateDivider(cfg.RateHz),
		fifo:    cfg.FIFO,
	}

	if err := d.setBank(0); err != nil {
		return nil, err
	}
	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("icm20948: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return nil, fmt.Errorf("icm20948: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}

	if err := d.init(fsSel, cfg.DataReady); err != nil {
		return nil, err
	}
	return d, nil
}

func rangeSelect(g int) (byte, error) {
	switch g {
	case 2:
		return 0, nil
	case 4:
		return 1, nil
	case 8:
		return 2, nil
	case 16:
		return 3, nil
	}
	return 0, fmt.Errorf("icm20948: unsupported range %dg", g)
}

// rateDivider picks the divider whose rate 1125/(1+div) is closest to hz.
func rateDivider(hz float64) uint16 {
	div := math.Round(baseRateHz/hz - 1)
	if div < 0 {
		div = 0
	}
	if div > maxDivider {
		div = maxDivider
	}
	return uint16(div)
}

func (d *Device) init(fsSel byte, dataReady bool) error {
	if err := d.dev.WriteReg(regPwrMgmt1, bitReset); err != nil {
		return fmt.Errorf("icm20948: reset failed: %w", err)
	}
	sleep(100 * time.Millisecond)
	// Reset returns the part to bank 0.
	d.curBank = 0

	// Wake + auto clock select.
	if err := d.dev.WriteReg(regPwrMgmt1, 0x01); err != nil {
		return fmt.Errorf("icm20948: wake failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	// Accel on, gyro off.
	if err := d.dev.WriteReg(regPwrMgmt2, 0x07); err != nil {
		return fmt.Errorf("icm20948: power config failed: %w", err)
	}

	if err := d.setBank(bank2); err != nil {
		return err
	}
	if err := d.dev.WriteReg(regAccelSmplrt1, byte(d.divider>>8)); err != nil {
		return fmt.Errorf("icm20948: rate config failed: %w", err)
	}
	if err := d.dev.WriteReg(regAccelSmplrt2, byte(d.divider)); err != nil {
		return fmt.Errorf("icm20948: rate config failed: %w", err)
	}
	if err := d.dev.WriteReg(regAccelConfig, accelDLPF|fsSel<<1|bitAccelFChoice); err != nil {
		return fmt.Errorf("icm20948: accel config failed: %w", err)
	}
	if err := d.setBank(0); err != nil {
		return err
	}

	var intEn byte
	if dataReady {
		intEn = bitRawRdyEn
	}
	if err := d.dev.WriteReg(regIntEnable1, intEn); err != nil {
		return fmt.Errorf("icm20948: interrupt config failed: %w", err)
	}

	if d.fifo {
		if err := d.dev.WriteReg(regFIFOEn2, bitAccelFIFO); err != nil {
			return fmt.Errorf("icm20948: fifo config failed: %w", err)
		}
		if err := d.dev.WriteReg(regUserCtrl, bitFIFOEn); err != nil {
			return fmt.Errorf("icm20948: fifo enable failed: %w", err)
		}
		if err := d.ResetFIFO(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) setBank(bank byte) error {
	if d.curBank == bank {
		return nil
	}
	if err := d.dev.WriteReg(regBankSel, bank<<4); err != nil {
		return fmt.Errorf("icm20948: set bank %d failed: %w", bank, err)
	}
	d.curBank = bank
	return nil
}

// Range is the configured full-scale in m/s^2.
func (d *Device) Range() float64 { return float64(d.rangeG) * standardGravity }

// Scale converts one raw count to m/s^2.
func (d *Device) Scale() float64 { return d.Range() / 32768.0 }

// SampleRate is the effective output data rate in Hz.
func (d *Device) SampleRate() float64 { return baseRateHz / float64(1+int(d.divider)) }

// SamplePeriod is the spacing between consecutive samples.
func (d *Device) SamplePeriod() time.Duration {
	return time.Duration(float64(time.Second) / d.SampleRate())
}

func (d *Device) FIFOEnabled() bool { return d.fifo }

func be16(b []byte) int16 { return int16(uint16(b[0])<<8 | uint16(b[1])) }

func (d *Device) ReadRaw() (Raw, error) {
	if d == nil {
		return Raw{}, fmt.Errorf("icm20948: device is nil")
	}
	if err := d.setBank(0); err != nil {
		return Raw{}, err
	}
	var buf [6]byte
	if err := d.dev.ReadReg(regAccelXoutH, buf[:]); err != nil {
		return Raw{}, fmt.Errorf("icm20948: read accel failed: %w", err)
	}
	return Raw{X: be16(buf[0:]), Y: be16(buf[2:]), Z: be16(buf[4:])}, nil
}

// ReadTemperature returns the die temperature in degrees Celsius.
func (d *Device) ReadTemperature() (float64, error) {
	if d == nil {
		return 0, fmt.Errorf("icm20948: device is nil")
	}
	if err := d.setBank(0); err != nil {
		return 0, err
	}
	var buf [2]byte
	if err := d.dev.ReadReg(regTempOutH, buf[:]); err != nil {
		return 0, fmt.Errorf("icm20948: read temperature failed: %w", err)
	}
	return float64(be16(buf[:]))/tempSensitivity + tempOffset, nil
}

func (d *Device) ResetFIFO() error {
	if err := d.setBank(0); err != nil {
		return err
	}
	if err := d.dev.WriteReg(regFIFORst, 0x1F); err != nil {
		return fmt.Errorf("icm20948: fifo reset failed: %w", err)
	}
	if err := d.dev.WriteReg(regFIFORst, 0x00); err != nil {
		return fmt.Errorf("icm20948: fifo reset failed: %w", err)
	}
	return nil
}

// FIFOCount returns the number of complete samples waiting in the FIFO.
func (d *Device) FIFOCount() (int, error) {
	if err := d.setBank(0); err != nil {
		return 0, err
	}
	var buf [2]byte
	if err := d.dev.ReadReg(regFIFOCountH, buf[:]); err != nil {
		return 0, fmt.Errorf("icm20948: read fifo count failed: %w", err)
	}
	n := int(buf[0]&0x1F)<<8 | int(buf[1])
	if n >= fifoSize {
		if err := d.ResetFIFO(); err != nil {
			return 0, err
		}
		return 0, ErrFIFOOverflow
	}
	return n / bytesPerSamp, nil
}

// ReadFIFO drains up to len(dst) samples and returns how many were read.
func (d *Device) ReadFIFO(dst []Raw) (int, error) {
	if d == nil {
		return 0, fmt.Errorf("icm20948: device is nil")
	}
	if !d.fifo {
		return 0, fmt.Errorf("icm20948: fifo not enabled")
	}
	n, err := d.FIFOCount()
	if err != nil {
		return 0, err
	}
	if n > len(dst) {
		n = len(dst)
	}
	if n == 0 {
		return 0, nil
	}
	buf := make([]byte, n*bytesPerSamp)
	if err := d.dev.ReadRegBurst(regFIFORW, buf); err != nil {
		return 0, fmt.Errorf("icm20948: read fifo failed: %w", err)
	}
	for i := 0; i < n; i++ {
		b := buf[i*bytesPerSamp:]
		dst[i] = Raw{X: be16(b[0:]), Y: be16(b[2:]), Z: be16(b[4:])}
	}
	return n, nil
}
