package crcutil

import (
	"testing"

	"github.com/pgregory.net/rapid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC8ResidueIsZero(t *testing.T) {
	// Appending a message's own CRC-8 and recomputing over the whole
	// thing yields zero for a non-reflected CRC with XOR-out 0 — the
	// quantified invariant from spec §8.
	rapid.Check(t, func(t *rapid.T) {
		msg := rapid.SliceOfN(rapid.Byte(), 1, 16).Draw(t, "msg")
		crc := CRC8(msg, 0x07, 0x00)
		withCRC := append(append([]byte{}, msg...), crc)
		require.Equal(t, byte(0), CRC8(withCRC, 0x07, 0x00))
	})
}

func TestReflectByteInvolution(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := rapid.Byte().Draw(t, "b")
		require.Equal(t, b, ReflectByte(ReflectByte(b)))
	})
}

func TestReflectByteKnownValues(t *testing.T) {
	assert.Equal(t, byte(0x00), ReflectByte(0x00))
	assert.Equal(t, byte(0xFF), ReflectByte(0xFF))
	assert.Equal(t, byte(0x01), ReflectByte(0x80))
	assert.Equal(t, byte(0xC0), ReflectByte(0x03))
}

func TestXORChecksumJascoSecurity(t *testing.T) {
	// spec §8 scenario 4: b0^b1^b2^b3 == 0 for a valid message. The
	// trailer is 0x12^0x34^0xEF == 0xC9, recomputed rather than the
	// scenario's literal 0x99, which is not that XOR.
	msg := []byte{0x12, 0x34, 0xEF, 0xC9}
	assert.Equal(t, byte(0x00), XORChecksum(msg))
}

func TestAddChecksumAcurite609TXC(t *testing.T) {
	// spec §8 scenario 1's first 4 bytes: their modulo-256 sum is 0xBC
	// (the scenario's literal trailer 0x1C is not their byte-sum).
	msg := []byte{0x8A, 0x25, 0xC8, 0x45}
	assert.Equal(t, byte(0xBC), AddChecksum(msg))
}

func TestEvenParity(t *testing.T) {
	assert.True(t, EvenParity(0x00))
	assert.True(t, EvenParity(0x03))
	assert.False(t, EvenParity(0x01))
	assert.False(t, EvenParity(0x07))
}

func TestLFSRDeterministic(t *testing.T) {
	a := NewLFSR(0xACE1, 0xB400)
	b := NewLFSR(0xACE1, 0xB400)
	for i := 0; i < 32; i++ {
		require.Equal(t, a.Next(), b.Next())
	}
}
