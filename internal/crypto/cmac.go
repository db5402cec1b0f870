package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// CMAC computes the AES-128 CMAC (NIST SP 800-38B) of msg.
func CMAC(key, msg []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("CMAC requires a 16 byte key, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid AES key: %w", err)
	}

	k1, k2 := generateSubkeys(block)

	n := (len(msg) + 15) / 16
	complete := n > 0 && len(msg)%16 == 0
	if n == 0 {
		n = 1
	}

	last := make([]byte, 16)
	if complete {
		copy(last, msg[(n-1)*16:])
		xorBlock(last, k1)
	} else {
		rem := msg[(n-1)*16:]
		copy(last, rem)
		last[len(rem)] = 0x80
		xorBlock(last, k2)
	}

	x := make([]byte, 16)
	y := make([]byte, 16)
	for i := 0; i < n-1; i++ {
		xorInto(y, x, msg[i*16:(i+1)*16])
		block.Encrypt(x, y)
	}
	xorInto(y, x, last)
	mac := make([]byte, 16)
	block.Encrypt(mac, y)
	return mac, nil
}

func generateSubkeys(block cipher.Block) (k1, k2 []byte) {
	l := make([]byte, 16)
	block.Encrypt(l, make([]byte, 16))
	k1 = shiftLeftOne(l)
	if l[0]&0x80 != 0 {
		k1[15] ^= 0x87
	}
	k2 = shiftLeftOne(k1)
	if k1[0]&0x80 != 0 {
		k2[15] ^= 0x87
	}
	return k1, k2
}

func shiftLeftOne(in []byte) []byte {
	out := make([]byte, 16)
	var carry byte
	for i := 15; i >= 0; i-- {
		out[i] = in[i]<<1 | carry
		carry = in[i] >> 7
	}
	return out
}

func xorBlock(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

func xorInto(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}

// DeriveKeys runs the KDF with selector 1 (CMAC based): the ephemeral
// encryption and MAC keys are CMACs over DC, the AFL message counter, the
// meter id and seven 0x07 pad bytes. DC is 0x00 for Kenc and 0x01 for
// Kmac.
func DeriveKeys(kconf []byte, counter [4]byte, id [4]byte) (kenc, kmac []byte, err error) {
	input := make([]byte, 16)
	input[0] = 0x00
	copy(input[1:5], counter[:])
	copy(input[5:9], id[:])
	for i := 9; i < 16; i++ {
		input[i] = 0x07
	}
	kenc, err = CMAC(kconf, input)
	if err != nil {
		return nil, nil, err
	}
	input[0] = 0x01
	kmac, err = CMAC(kconf, input)
	if err != nil {
		return nil, nil, err
	}
	return kenc, kmac, nil
}
