package wtvb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Documented example exchange: reading 3 velocity registers from slave 0x50
// produces the request 50 03 00 3A 00 03 with CRC trailer 28 47.
func TestBuildReadRequestDocumentedExample(t *testing.T) {
	got := BuildReadRequest(0x50, RegVelX, 3)
	want := []byte{0x50, 0x03, 0x00, 0x3A, 0x00, 0x03, 0x28, 0x47}
	assert.Equal(t, want, got)
}

func TestCRC16DocumentedExample(t *testing.T) {
	crc := CRC16([]byte{0x50, 0x03, 0x00, 0x3A, 0x00, 0x03})
	assert.Equal(t, uint16(0x4728), crc)
}

func TestVerifyCRC(t *testing.T) {
	frame := AppendCRC([]byte{0x50, 0x03, 0x02, 0x00, 0x64})
	assert.True(t, VerifyCRC(frame))

	// Any single bit flip must invalidate the checksum.
	for i := range frame {
		for bit := 0; bit < 8; bit++ {
			corrupted := append([]byte(nil), frame...)
			corrupted[i] ^= 1 << bit
			assert.False(t, VerifyCRC(corrupted), "flip byte %d bit %d", i, bit)
		}
	}
}

func TestVerifyCRCShortFrame(t *testing.T) {
	assert.False(t, VerifyCRC(nil))
	assert.False(t, VerifyCRC([]byte{0x50, 0x03}))
}

func TestBuildWriteRequest(t *testing.T) {
	got := BuildWriteRequest(0x50, RegSave, UnlockValue)
	require.Len(t, got, 8)
	assert.Equal(t, byte(0x50), got[0])
	assert.Equal(t, byte(FuncWriteRegister), got[1])
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x69}, got[2:6])
	assert.True(t, VerifyCRC(got))
}

func TestParseReadResponseRoundTrip(t *testing.T) {
	regs := []uint16{0x0102, 0xFFFE, 0x0000}
	frame := BuildReadResponse(0x50, regs)
	require.Len(t, frame, ReadResponseLen(3))

	got, err := ParseReadResponse(frame, 0x50, 3)
	require.NoError(t, err)
	assert.Equal(t, regs, got)
}

func TestParseReadResponseRejections(t *testing.T) {
	good := BuildReadResponse(0x50, []uint16{0x0001, 0x0002})

	tests := []struct {
		name  string
		frame []byte
		addr  byte
		count uint16
		want  error
	}{
		{"truncated", good[:len(good)-1], 0x50, 2, ErrMalformedFrame},
		{"wrong count", good, 0x50, 3, ErrMalformedFrame},
		{"bad crc", func() []byte {
			f := append([]byte(nil), good...)
			f[3] ^= 0xFF
			return f
		}(), 0x50, 2, ErrChecksumMismatch},
		{"wrong address", func() []byte {
			f := append([]byte(nil), good...)
			f[0] = 0x51
			return AppendCRC(f[:len(f)-2])
		}(), 0x50, 2, ErrUnexpectedReply},
		{"wrong function", func() []byte {
			f := append([]byte(nil), good...)
			f[1] = FuncWriteRegister
			return AppendCRC(f[:len(f)-2])
		}(), 0x50, 2, ErrUnexpectedReply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReadResponse(tt.frame, tt.addr, tt.count)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var fe *FrameError
			assert.True(t, errors.As(err, &fe))
		})
	}
}

func TestParseWriteEcho(t *testing.T) {
	echo := BuildWriteRequest(0x50, RegSave, SaveValue)
	assert.NoError(t, ParseWriteEcho(echo, 0x50, RegSave, SaveValue))

	assert.ErrorIs(t, ParseWriteEcho(echo[:6], 0x50, RegSave, SaveValue), ErrMalformedFrame)
	assert.ErrorIs(t, ParseWriteEcho(echo, 0x50, RegSave, UnlockValue), ErrUnexpectedReply)
	assert.ErrorIs(t, ParseWriteEcho(echo, 0x51, RegSave, SaveValue), ErrUnexpectedReply)

	bad := append([]byte(nil), echo...)
	bad[7] ^= 0x01
	assert.ErrorIs(t, ParseWriteEcho(bad, 0x50, RegSave, SaveValue), ErrChecksumMismatch)
}

func TestReadResponseLen(t *testing.T) {
	assert.Equal(t, 7, ReadResponseLen(1))
	assert.Equal(t, 43, ReadResponseLen(PollCount))
}
