package frame

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/require"

	"gitlab.com/d21d3q/wmbusdecode/internal/codec"
	"gitlab.com/d21d3q/wmbusdecode/internal/crypto"
)

var testKey = []byte{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
}

// Sentinel plus two records plus filler: exactly one AES block.
const plaintextBlock = "2F2F 0404 39300000 042B 1A000000 2F2F"

func cbcEncrypt(t *testing.T, key, iv, data []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := append([]byte(nil), data...)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, out)
	return out
}

func buildMode5Frame(t *testing.T, key []byte) []byte {
	t.Helper()
	header := decodeHex(t, "2C44 2D2C 78563412 3002 7A 42 00 0005")
	plain := decodeHex(t, plaintextBlock)
	iv := crypto.BuildTPLIV(0x2C2D, [4]byte{0x78, 0x56, 0x34, 0x12}, 0x30, 0x02, 0x42)
	return append(header, cbcEncrypt(t, key, iv, plain)...)
}

func TestMode5DecryptionRoundTrip(t *testing.T) {
	raw := buildMode5Frame(t, testKey)
	tg, err := Parse(raw, MeterKeys{ConfidentialityKey: testKey}, NewSignatureCache())
	require.NoError(t, err)

	require.Len(t, tg.Records, 2)
	v, ok := tg.ExtractDouble("0404")
	require.True(t, ok)
	require.InDelta(t, 123.45, v, 1e-9)
	requireFullCoverage(t, tg)
}

func TestMode5WrongKey(t *testing.T) {
	raw := buildMode5Frame(t, testKey)

	badKey := append([]byte(nil), testKey...)
	badKey[0] ^= 0x01
	tg, err := Parse(raw, MeterKeys{ConfidentialityKey: badKey}, NewSignatureCache())

	require.ErrorIs(t, err, ErrWrongKey)
	require.Empty(t, tg.Records)
}

func TestMode5MissingKey(t *testing.T) {
	raw := buildMode5Frame(t, testKey)
	_, err := Parse(raw, MeterKeys{}, NewSignatureCache())
	require.ErrorIs(t, err, crypto.ErrKeyRequired)
}

func TestMode5SimulationAcceptsPlaintext(t *testing.T) {
	// Replay fixtures carry the payload already decrypted: the sentinel
	// must be accepted without a key in simulation mode.
	header := decodeHex(t, "2C44 2D2C 78563412 3002 7A 42 00 0005")
	raw := append(header, decodeHex(t, plaintextBlock)...)

	tg, err := Parse(raw, MeterKeys{IsSimulation: true}, NewSignatureCache())
	require.NoError(t, err)
	require.Len(t, tg.Records, 2)
}

// buildMode7Frame assembles an AFL + TPL security mode 7 telegram. The
// MAC and ciphertext are produced with the same KDF and CMAC the parser
// uses, so a correct parse proves the full chain.
func buildMode7Frame(t *testing.T, key []byte) []byte {
	t.Helper()
	counter := [4]byte{0x49, 0xEE, 0x0A, 0x00}
	id := [4]byte{0x78, 0x56, 0x34, 0x12}

	kenc, kmac, err := crypto.DeriveKeys(key, counter, id)
	require.NoError(t, err)

	ciphertext := cbcEncrypt(t, kenc, make([]byte, 16), decodeHex(t, plaintextBlock))

	frame := decodeHex(t, "2E44 2D2C 78563412 3002")
	frame = append(frame, decodeHex(t, "90 0F 002C 25 49EE0A00")...)
	macOffset := len(frame)
	frame = append(frame, make([]byte, 8)...) // MAC placeholder
	tplStart := len(frame)
	frame = append(frame, decodeHex(t, "7A 00 00 1007 10")...)
	frame = append(frame, ciphertext...)

	macInput := []byte{0x25}
	macInput = append(macInput, counter[:]...)
	macInput = append(macInput, frame[tplStart:]...)
	mac, err := crypto.CMAC(kmac, macInput)
	require.NoError(t, err)
	copy(frame[macOffset:macOffset+8], mac[:8])

	return frame
}

func TestMode7MACAndDecryption(t *testing.T) {
	raw := buildMode7Frame(t, testKey)
	tg, err := Parse(raw, MeterKeys{ConfidentialityKey: testKey}, NewSignatureCache())
	require.NoError(t, err)

	require.True(t, tg.AFL.HasCounter)
	require.Len(t, tg.AFL.MAC, 8)
	require.Equal(t, 1, tg.TPL.EncryptedBlocks)
	require.Equal(t, 1, tg.TPL.KDFSelection)

	require.Len(t, tg.Records, 2)
	v, ok := tg.ExtractDouble("042B")
	require.True(t, ok)
	require.InDelta(t, 0.026, v, 1e-9)
	requireFullCoverage(t, tg)
}

func TestMode7FlippedMAC(t *testing.T) {
	raw := buildMode7Frame(t, testKey)
	raw[19] ^= 0x01 // first MAC byte
	tg, err := Parse(raw, MeterKeys{ConfidentialityKey: testKey}, NewSignatureCache())

	require.ErrorIs(t, err, ErrBadMAC)
	require.Empty(t, tg.Records)
}

func TestMode7FlippedCoveredByte(t *testing.T) {
	raw := buildMode7Frame(t, testKey)
	raw[len(raw)-1] ^= 0x80 // inside the MAC-covered ciphertext
	_, err := Parse(raw, MeterKeys{ConfidentialityKey: testKey}, NewSignatureCache())
	require.ErrorIs(t, err, ErrBadMAC)
}

func TestMode7SimulationWithoutKey(t *testing.T) {
	// In simulation mode the payload arrives decrypted; the check bytes
	// are consumed without any MAC verification.
	frame := decodeHex(t, "2E44 2D2C 78563412 3002")
	frame = append(frame, decodeHex(t, "90 0F 002C 25 49EE0A00")...)
	frame = append(frame, make([]byte, 8)...)
	frame = append(frame, decodeHex(t, "7A 00 00 1007 10")...)
	frame = append(frame, decodeHex(t, plaintextBlock)...)

	tg, err := Parse(frame, MeterKeys{IsSimulation: true}, NewSignatureCache())
	require.NoError(t, err)
	require.Len(t, tg.Records, 2)
}

func buildELLCTRFrame(t *testing.T, key []byte, corruptCRC bool) []byte {
	t.Helper()
	frame := decodeHex(t, "1E44 2D2C 78563412 3002")
	frame = append(frame, decodeHex(t, "8D 20 01 00000020")...)
	crcOffset := len(frame)

	payload := decodeHex(t, "78 0404 39300000 042B 1A000000")
	crc := codec.Checksum16(payload)
	if corruptCRC {
		crc ^= 0xFFFF
	}
	frame = append(frame, byte(crc), byte(crc>>8))
	frame = append(frame, payload...)

	// CTR is symmetric: running the decryption over the plaintext
	// produces the ciphertext the radio would carry.
	addr := crypto.CTRAddress{
		Manufacturer: 0x2C2D,
		ID:           [4]byte{0x78, 0x56, 0x34, 0x12},
		Version:      0x30,
		DeviceType:   0x02,
		CC:           0x20,
		SN:           [4]byte{0x00, 0x00, 0x00, 0x20},
	}
	require.NoError(t, crypto.DecryptELLAESCTR(frame, crcOffset, key, addr))
	return frame
}

func TestELLAESCTRDecryption(t *testing.T) {
	raw := buildELLCTRFrame(t, testKey, false)
	tg, err := Parse(raw, MeterKeys{ConfidentialityKey: testKey}, NewSignatureCache())
	require.NoError(t, err)

	require.Equal(t, byte(0x8D), tg.ELL.CI)
	require.True(t, tg.ELL.HasSN)
	require.Len(t, tg.Records, 2)
	requireFullCoverage(t, tg)
}

func TestELLPayloadCRCMismatch(t *testing.T) {
	raw := buildELLCTRFrame(t, testKey, true)
	tg, err := Parse(raw, MeterKeys{ConfidentialityKey: testKey}, NewSignatureCache())

	var badCRC *BadCRCError
	require.ErrorAs(t, err, &badCRC)
	require.Empty(t, tg.Records)
}

func TestELLIPlainHeader(t *testing.T) {
	raw := decodeHex(t, "1344 2D2C 78563412 3002 8C 20 01 78 0404 39300000")
	tg, err := Parse(raw, MeterKeys{}, NewSignatureCache())
	require.NoError(t, err)
	require.Equal(t, byte(0x8C), tg.ELL.CI)
	require.False(t, tg.ELL.HasSN)
	require.Len(t, tg.Records, 1)
	requireFullCoverage(t, tg)
}
