// Command sensor-debug is a bench tool for talking to a WTVB01-485 sensor
// directly: read any register block, write configuration registers with the
// unlock/save sequence, and dump raw frames alongside decoded values.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ezraeffect/vibewatch/internal/serialport"
	"github.com/ezraeffect/vibewatch/internal/units"
	"github.com/ezraeffect/vibewatch/internal/wtvb"
)

var (
	portPath = flag.String("port", "/dev/ttyUSB0", "Serial port the sensor is attached to")
	baudRate = flag.Int("baud", 9600, "Baud rate")
	slaveID  = flag.Int("slave", wtvb.DefaultSlaveID, "Modbus slave address")
	readReg  = flag.Int("read", -1, "Register address to read (decimal or 0x hex via -read=0x3A)")
	count    = flag.Int("count", 1, "Number of registers to read")
	writeReg = flag.Int("write", -1, "Register address to write (requires -value)")
	value    = flag.Int("value", 0, "Value for -write")
	save     = flag.Bool("save", false, "Persist configuration after writing")
	poll     = flag.Bool("poll", false, "Poll the full measurement block and print decoded values")
	timeout  = flag.Duration("timeout", 500*time.Millisecond, "Response timeout")
	velUnits = flag.String("units", units.MMPS, "Velocity units for -poll output ("+units.GetValidUnitsString()+")")
)

func main() {
	flag.Parse()

	if !units.IsValid(*velUnits) {
		log.Fatalf("invalid -units %q, expected one of: %s", *velUnits, units.GetValidUnitsString())
	}

	mode := serialport.DefaultMode()
	mode.BaudRate = *baudRate
	port, err := serialport.Open(*portPath, mode)
	if err != nil {
		log.Fatalf("failed to open %s: %v", *portPath, err)
	}
	defer port.Close()
	if err := port.SetReadTimeout(50 * time.Millisecond); err != nil {
		log.Fatalf("failed to set read timeout: %v", err)
	}

	addr := byte(*slaveID)

	switch {
	case *poll:
		if err := pollOnce(port, addr); err != nil {
			log.Fatalf("poll failed: %v", err)
		}
	case *writeReg >= 0:
		if err := writeRegister(port, addr, uint16(*writeReg), uint16(*value), *save); err != nil {
			log.Fatalf("write failed: %v", err)
		}
	case *readReg >= 0:
		if err := readRegisters(port, addr, uint16(*readReg), uint16(*count)); err != nil {
			log.Fatalf("read failed: %v", err)
		}
	default:
		flag.Usage()
		os.Exit(2)
	}
}

func exchange(port serialport.TimeoutPorter, request []byte, respLen int) ([]byte, error) {
	fmt.Printf(">> %s\n", hex.EncodeToString(request))
	if _, err := port.Write(request); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	frame := make([]byte, 0, respLen)
	chunk := make([]byte, respLen)
	deadline := time.Now().Add(*timeout)
	for len(frame) < respLen {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("no response within %s (got %d of %d bytes)", *timeout, len(frame), respLen)
		}
		n, err := port.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		frame = append(frame, chunk[:n]...)
	}
	fmt.Printf("<< %s\n", hex.EncodeToString(frame))
	return frame, nil
}

func readRegisters(port serialport.TimeoutPorter, addr byte, reg, n uint16) error {
	req := wtvb.BuildReadRequest(addr, reg, n)
	frame, err := exchange(port, req, wtvb.ReadResponseLen(n))
	if err != nil {
		return err
	}
	regs, err := wtvb.ParseReadResponse(frame, addr, n)
	if err != nil {
		return err
	}
	for i, v := range regs {
		fmt.Printf("reg 0x%02X = 0x%04X (%d)\n", reg+uint16(i), v, int16(v))
	}
	return nil
}

// writeRegister performs the sensor's configuration write dance: unlock,
// write the target register, echo-check each step, then optionally save.
func writeRegister(port serialport.TimeoutPorter, addr byte, reg, val uint16, persist bool) error {
	steps := []struct {
		name string
		reg  uint16
		val  uint16
	}{
		{"unlock", wtvb.RegSave, wtvb.UnlockValue},
		{"write", reg, val},
	}
	if persist {
		steps = append(steps, struct {
			name string
			reg  uint16
			val  uint16
		}{"save", wtvb.RegSave, wtvb.SaveValue})
	}

	for _, step := range steps {
		req := wtvb.BuildWriteRequest(addr, step.reg, step.val)
		frame, err := exchange(port, req, len(req))
		if err != nil {
			return fmt.Errorf("%s step: %w", step.name, err)
		}
		if err := wtvb.ParseWriteEcho(frame, addr, step.reg, step.val); err != nil {
			return fmt.Errorf("%s step: %w", step.name, err)
		}
		fmt.Printf("%s ok: reg 0x%02X = 0x%04X\n", step.name, step.reg, step.val)
		// Register writes need settle time before the next command.
		time.Sleep(100 * time.Millisecond)
	}
	return nil
}

func pollOnce(port serialport.TimeoutPorter, addr byte) error {
	req := wtvb.BuildReadRequest(addr, wtvb.PollStart, wtvb.PollCount)
	frame, err := exchange(port, req, wtvb.ReadResponseLen(wtvb.PollCount))
	if err != nil {
		return err
	}
	regs, err := wtvb.ParseReadResponse(frame, addr, wtvb.PollCount)
	if err != nil {
		return err
	}
	s, err := wtvb.DecodeSample(regs, time.Now())
	if err != nil {
		return err
	}

	at := func(reg uint16) uint16 { return regs[reg-wtvb.PollStart] }
	fmt.Printf("acc   X=%.3f Y=%.3f Z=%.3f g\n", s.Acc[0], s.Acc[1], s.Acc[2])
	fmt.Printf("vel   X=%.3f Y=%.3f Z=%.3f %s\n",
		units.ConvertVelocity(s.Vel[0], *velUnits),
		units.ConvertVelocity(s.Vel[1], *velUnits),
		units.ConvertVelocity(s.Vel[2], *velUnits),
		*velUnits)
	fmt.Printf("disp  X=%.0f Y=%.0f Z=%.0f um\n", s.Disp[0], s.Disp[1], s.Disp[2])
	fmt.Printf("freq  X=%.1f Y=%.1f Z=%.1f Hz\n", s.Freq[0], s.Freq[1], s.Freq[2])
	fmt.Printf("angle X=%.2f Y=%.2f Z=%.2f deg\n",
		wtvb.Angle(at(wtvb.RegAngleX)), wtvb.Angle(at(wtvb.RegAngleY)), wtvb.Angle(at(wtvb.RegAngleZ)))
	fmt.Printf("temp  %.2f C\n", s.Temp)
	return nil
}
