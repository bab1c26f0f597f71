/*
Copyright (c) Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package manager

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rsaustro/gpdpick/internal/config"
)

// writeWeightsFile stores a minimal detection network container, a
// single tap convolution followed by a softmax readout.
func writeWeightsFile(t *testing.T) string {
	t.Helper()

	header := `{
		"name": "tiny",
		"sample_rate": 100.0,
		"window_samples": 4,
		"channels": 1,
		"classes": ["P", "S", "N"],
		"layers": [
			{"type": "conv", "filters": 1, "kernel": 1, "pool": 2},
			{"type": "dense", "units": 3, "activation": "softmax"}
		]
	}`
	tensors := []float32{
		1,
		0,
		1, 0,
		0, 1,
		0, 0,
		0, 0, 0,
	}

	var buf bytes.Buffer
	buf.WriteString("GPDW")
	buf.WriteByte(1)

	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(header)))
	buf.Write(lenBuf[:])
	buf.WriteString(header)

	var f32 [4]byte
	for _, v := range tensors {
		binary.LittleEndian.PutUint32(f32[:], math.Float32bits(v))
		buf.Write(f32[:])
	}

	path := t.TempDir() + "/tiny.gpdw"
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	return path
}

func createConfigFile(t *testing.T, data any) string {
	json, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		t.Fatal(err)
	}

	tmpDir := t.TempDir()
	cfgFile := tmpDir + "/gpdpick.json"
	err = os.WriteFile(cfgFile, json, 0644)
	if err != nil {
		t.Fatal(err)
	}

	return cfgFile
}

func testData(t *testing.T) config.Data {
	return config.Data{
		CreatedAt: "2026-01-01T00:00:00Z",
		Database:  "sqlite://:memory:",
		Hostname:  "gpdpick.example.com",
		Id:        "8d134b24c2541730",
		Secret:    "C7LVMO6YY0ZfZvlEayQJR0zOE7JF8g+nrYgrcvetIbU=",
		Version:   "1.0.0",
		Credentials: config.Credentials{
			Username: "test-user",
			Password: "test-password",
		},
		Source:  config.Source{URL: "fdsn+http://service.example.com"},
		Weights: config.Weights{Path: writeWeightsFile(t)},
	}
}

func Test_NewReturnsManager(t *testing.T) {
	cfgFile := createConfigFile(t, testData(t))
	m, err := New(cfgFile)
	assert.NoError(t, err)
	assert.NotNil(t, m)
}

func Test_NewReturnsError_MissingConfigFile(t *testing.T) {
	_, err := New("/nonexistent/gpdpick.json")
	assert.Error(t, err)
}

func Test_NewReturnsError_InvalidConfigFile(t *testing.T) {
	cfgFile := createConfigFile(t, "invalid json")
	m, err := New(cfgFile)
	assert.Nil(t, m)
	assert.Error(t, err)
}

func Test_NewReturnsError_InvalidDatabaseURL(t *testing.T) {
	data := testData(t)
	data.Database = "invalid_db_url"
	cfgFile := createConfigFile(t, data)
	m, err := New(cfgFile)
	assert.Nil(t, m)
	assert.Error(t, err)
}

func Test_NewReturnsError_MissingWeightsFile(t *testing.T) {
	data := testData(t)
	data.Weights.Path = "/nonexistent/weights.gpdw"
	cfgFile := createConfigFile(t, data)
	m, err := New(cfgFile)
	assert.Nil(t, m)
	assert.Error(t, err)
}

func Test_RunSucceeds(t *testing.T) {
	cfgFile := createConfigFile(t, testData(t))
	m, err := New(cfgFile)
	assert.NoError(t, err)
	assert.NotNil(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NoError(t, err, "allocate port")
	listenAddr := listener.Addr().String()
	_ = listener.Close()

	go m.Run(ctx, listenAddr)

	var conn net.Conn
	for range 50 {
		conn, err = net.Dial("tcp", listenAddr)
		if conn != nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	assert.NoError(t, err)
	assert.NotNil(t, conn)
	_ = conn.Close()

	cancel()
	time.Sleep(100 * time.Millisecond)
}
