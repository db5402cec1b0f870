package codec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeHexString(t *testing.T) {
	data, err := DecodeHexString(" |2E44_B409 8686| ")
	require.NoError(t, err)
	require.Equal(t, []byte{0x2E, 0x44, 0xB4, 0x09, 0x86, 0x86}, data)
}

func TestDecodeHexStringOddLength(t *testing.T) {
	_, err := DecodeHexString("ABC")
	require.ErrorIs(t, err, ErrOddHexLength)
}

func TestDecodeHexStringBadDigit(t *testing.T) {
	_, err := DecodeHexString("GG")
	require.Error(t, err)
}

func TestUintLE(t *testing.T) {
	cases := []struct {
		in   []byte
		want uint64
	}{
		{[]byte{0x2A}, 42},
		{[]byte{0x39, 0x30}, 12345},
		{[]byte{0x01, 0x00, 0x01}, 65537},
		{[]byte{0x39, 0x30, 0x00, 0x00}, 12345},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, 0xFFFFFFFFFFFF},
		{[]byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x80}, 0x8000000000000001},
	}
	for _, tc := range cases {
		if got := UintLE(tc.in); got != tc.want {
			t.Fatalf("UintLE(% 02X) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestBCD(t *testing.T) {
	v, err := BCD([]byte{0x45, 0x23, 0x01})
	require.NoError(t, err)
	require.Equal(t, int64(12345), v)

	v, err = BCD([]byte{0x66, 0x38, 0x00, 0x00})
	require.NoError(t, err)
	require.Equal(t, int64(3866), v)
}

func TestBCDNegative(t *testing.T) {
	// A 0xF top nibble flags a negative number.
	v, err := BCD([]byte{0x45, 0xF3})
	require.NoError(t, err)
	require.Equal(t, int64(-345), v)
}

func TestBCDInvalid(t *testing.T) {
	_, err := BCD([]byte{0x4A})
	require.Error(t, err)
}

func TestXorChecksum(t *testing.T) {
	msg := []byte{0xFF, 0x0B, 0x01, 0xC1}
	require.Equal(t, byte(0xF5), XorChecksum(msg, 3))
}

func TestChecksum16(t *testing.T) {
	// EN 13757 polynomial without the final complement: the standard
	// check value 0xC2B7 inverted.
	got := Checksum16([]byte("123456789"))
	require.Equal(t, uint16(0x3D48), got)
}

func TestChecksum16Empty(t *testing.T) {
	require.Equal(t, uint16(0x0000), Checksum16(nil))
}
