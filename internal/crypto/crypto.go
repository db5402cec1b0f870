// Package crypto implements the EN 13757-4 payload protection modes:
// ELL AES-CTR, TPL AES-CBC with and without IV, AES-CMAC and the
// CMAC-based ephemeral key derivation.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
)

var (
	ErrKeyRequired = errors.New("encrypted telegram: AES key required (use --key)")
	ErrInvalidKey  = errors.New("encrypted telegram: AES key rejected (bad plaintext)")
)

// CTRAddress carries the address fields that seed the ELL counter block.
type CTRAddress struct {
	Manufacturer uint16
	ID           [4]byte
	Version      byte
	DeviceType   byte
	CC           byte
	SN           [4]byte
}

// DecryptELLAESCTR decrypts frame[offset:] in place. The counter block is
// M(2) ID(4) VER TYPE CC SN(4) FN(2) BC, with FN fixed to zero and BC
// incremented per 16-byte block.
func DecryptELLAESCTR(frame []byte, offset int, key []byte, addr CTRAddress) error {
	if len(key) != 16 {
		return ErrKeyRequired
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("invalid AES key: %w", err)
	}
	iv := make([]byte, 16)
	iv[0] = byte(addr.Manufacturer)
	iv[1] = byte(addr.Manufacturer >> 8)
	copy(iv[2:6], addr.ID[:])
	iv[6] = addr.Version
	iv[7] = addr.DeviceType
	iv[8] = addr.CC
	copy(iv[9:13], addr.SN[:])
	// iv[13:15] frame number, zero. iv[15] block counter.
	keystream := make([]byte, 16)
	for i := offset; i < len(frame); i += 16 {
		block.Encrypt(keystream, iv)
		n := len(frame) - i
		if n > 16 {
			n = 16
		}
		for j := 0; j < n; j++ {
			frame[i+j] ^= keystream[j]
		}
		iv[15]++
	}
	return nil
}

// BuildTPLIV assembles the mode-5 CBC IV: M(2) ID(4) VER TYPE and the
// access number repeated over the last eight bytes.
func BuildTPLIV(mfct uint16, id [4]byte, version, deviceType, access byte) []byte {
	iv := make([]byte, 16)
	iv[0] = byte(mfct)
	iv[1] = byte(mfct >> 8)
	copy(iv[2:6], id[:])
	iv[6] = version
	iv[7] = deviceType
	for i := 8; i < 16; i++ {
		iv[i] = access
	}
	return iv
}

// DecryptTPLAESCBCIV decrypts frame[offset:] in place with the given IV.
// The length is rounded down to a whole number of AES blocks; trailing
// bytes stay untouched.
func DecryptTPLAESCBCIV(frame []byte, offset int, key, iv []byte) error {
	if len(key) != 16 {
		return ErrKeyRequired
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("invalid AES key: %w", err)
	}
	n := (len(frame) - offset) &^ (aes.BlockSize - 1)
	if n <= 0 {
		return ErrInvalidKey
	}
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(frame[offset:offset+n], frame[offset:offset+n])
	return nil
}

// DecryptTPLAESCBCNoIV decrypts exactly blocks*16 bytes of frame[offset:]
// in place with an all-zero IV. The block count comes from the TPL
// configuration word.
func DecryptTPLAESCBCNoIV(frame []byte, offset, blocks int, key []byte) error {
	if len(key) != 16 {
		return ErrKeyRequired
	}
	n := blocks * aes.BlockSize
	if n <= 0 || offset+n > len(frame) {
		return fmt.Errorf("encrypted section exceeds payload length (%d > %d)", n, len(frame)-offset)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("invalid AES key: %w", err)
	}
	iv := make([]byte, 16)
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(frame[offset:offset+n], frame[offset:offset+n])
	return nil
}
