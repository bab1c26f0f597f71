/*
Copyright (c) Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package aes encrypts station credentials at rest with AES-256-CTR.
// The key is the base64 encoded 32 byte service secret, ciphertexts
// carry their random IV as prefix and are base64 encoded as a whole.
package aes

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
)

func Encrypt(b64key string, plaintext string) (string, error) {
	slog.Debug("Encrypting data with AES-256-CTR")

	key, err := decodeKey(b64key)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, []byte(plaintext))

	return base64.StdEncoding.EncodeToString(append(iv, ciphertext...)), nil
}

func Decrypt(b64key string, encoded string) (string, error) {
	slog.Debug("Decrypting data with AES-256-CTR")

	key, err := decodeKey(b64key)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	if len(data) < aes.BlockSize {
		return "", errors.New("ciphertext too short")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	plaintext := make([]byte, len(data)-aes.BlockSize)
	cipher.NewCTR(block, data[:aes.BlockSize]).XORKeyStream(plaintext, data[aes.BlockSize:])

	return string(plaintext), nil
}

func decodeKey(b64key string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(b64key)
	if err != nil {
		return nil, err
	}
	if len(key) != 32 {
		return nil, errors.New("AES key must be 32 bytes")
	}

	return key, nil
}
