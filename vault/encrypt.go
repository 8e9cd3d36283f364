// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/bitmark-inc/go-argon2"

	"github.com/bitmark-inc/confidentiald/fault"
)

const saltSize = 16

type salt [saltSize]byte

func makeSalt() (*salt, error) {
	s := new(salt)
	if _, err := io.ReadFull(rand.Reader, s[:]); nil != err {
		return nil, err
	}
	return s, nil
}

// generateKey - derive the vault AES key from the passphrase
func generateKey(passphrase string, s *salt) ([]byte, error) {

	ctx := &argon2.Context{
		Iterations:  5,
		Memory:      1 << 16,
		Parallelism: 4,
		HashLen:     32,
		Mode:        argon2.ModeArgon2i,
		Version:     argon2.Version13,
	}

	return argon2.Hash(ctx, []byte(passphrase), s[:])
}

// encryptSecret - AES-CBC with a random IV and a two byte length
// header inside the padding
func encryptSecret(plaintext []byte, key []byte) ([]byte, error) {

	block, err := aes.NewCipher(key)
	if nil != err {
		return nil, err
	}

	n := len(plaintext)
	if n > 1024 {
		return nil, fault.ErrKeyLength
	}

	const countBytes = 2
	padding := aes.BlockSize - (n+countBytes)%aes.BlockSize

	padded := make([]byte, n+countBytes+padding)
	padded[0] = byte(n / 256)
	padded[1] = byte(n % 256)
	copy(padded[2:], plaintext)

	ciphertext := make([]byte, aes.BlockSize+len(padded))
	iv := ciphertext[:aes.BlockSize]
	if _, err = io.ReadFull(rand.Reader, iv); nil != err {
		return nil, err
	}
	mode := cipher.NewCBCEncrypter(block, iv)
	mode.CryptBlocks(ciphertext[aes.BlockSize:], padded)

	// wipe the padded plaintext copy
	for i := range padded {
		padded[i] = 0
	}

	return ciphertext, nil
}

func decryptSecret(ciphertext []byte, key []byte) ([]byte, error) {

	block, err := aes.NewCipher(key)
	if nil != err {
		return nil, err
	}

	if len(ciphertext) <= aes.BlockSize || 0 != len(ciphertext)%aes.BlockSize {
		return nil, fault.ErrWrongPassword
	}

	iv := ciphertext[:aes.BlockSize]
	body := make([]byte, len(ciphertext)-aes.BlockSize)
	copy(body, ciphertext[aes.BlockSize:])
	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(body, body)

	n := int(body[0])<<8 + int(body[1])
	if n+2 > len(body) {
		return nil, fault.ErrWrongPassword
	}

	out := make([]byte, n)
	copy(out, body[2:n+2])
	for i := range body {
		body[i] = 0
	}
	return out, nil
}
