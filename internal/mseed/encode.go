/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package mseed

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/rsaustro/gpdpick/internal/waveform"
)

const (
	recordLen    = 4096
	recordLenLog = 12
	dataOffset   = 64

	steimWordBudget   = (recordLen-dataOffset)/frameLen*steimFrameData - 2
	float64sPerRecord = (recordLen - dataOffset) / 8
)

// Encode writes the stream as big endian 4096 byte records. Traces
// with purely integral samples are compressed with Steim1, everything
// else is written as FLOAT64.
func Encode(s waveform.Stream, w io.Writer) error {
	seq := 1
	for _, t := range s {
		if len(t.Data) == 0 || t.SampleRate <= 0 {
			continue
		}

		var err error
		if isIntegral(t.Data) {
			err = encodeSteim1Trace(t, w, &seq)
		} else {
			err = encodeFloat64Trace(t, w, &seq)
		}
		if err != nil {
			return fmt.Errorf("trace %s: %w", t.ID(), err)
		}
	}
	return nil
}

// EncodeBytes encodes the stream into a fresh buffer.
func EncodeBytes(s waveform.Stream) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(s, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isIntegral(data []float64) bool {
	for _, v := range data {
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return false
		}
	}
	return true
}

func encodeSteim1Trace(t *waveform.Trace, w io.Writer, seq *int) error {
	vals := make([]int32, len(t.Data))
	for i, v := range t.Data {
		vals[i] = int32(v)
	}

	numFrames := (recordLen - dataOffset) / frameLen

	pos := 0
	for pos < len(vals) {
		diffs := make([]int32, len(vals)-pos)
		for i := range diffs {
			if pos+i == 0 {
				continue
			}
			diffs[i] = vals[pos+i] - vals[pos+i-1]
		}

		words, consumed := packSteim1Words(diffs, steimWordBudget)
		payload := layoutSteim1(words, vals[pos], vals[pos+consumed-1], numFrames)

		if err := writeRecord(w, t, *seq, pos, consumed, EncodingSteim1, payload); err != nil {
			return err
		}
		*seq++
		pos += consumed
	}

	return nil
}

func encodeFloat64Trace(t *waveform.Trace, w io.Writer, seq *int) error {
	pos := 0
	for pos < len(t.Data) {
		n := len(t.Data) - pos
		if n > float64sPerRecord {
			n = float64sPerRecord
		}

		payload := make([]byte, n*8)
		for i := 0; i < n; i++ {
			binary.BigEndian.PutUint64(payload[i*8:], math.Float64bits(t.Data[pos+i]))
		}

		if err := writeRecord(w, t, *seq, pos, n, EncodingFloat64, payload); err != nil {
			return err
		}
		*seq++
		pos += n
	}

	return nil
}

func writeRecord(w io.Writer, t *waveform.Trace, seq, firstSample, numSamples, encoding int, payload []byte) error {
	rec := make([]byte, recordLen)

	copy(rec[0:6], fmt.Sprintf("%06d", seq%1000000))
	rec[6] = 'D'
	rec[7] = ' '
	copy(rec[8:13], pad(t.Station, 5))
	copy(rec[13:15], pad(t.Location, 2))
	copy(rec[15:18], pad(t.Channel, 3))
	copy(rec[18:20], pad(t.Network, 2))

	writeBTime(rec[20:30], t.TimeAt(firstSample))

	binary.BigEndian.PutUint16(rec[30:32], uint16(numSamples))

	factor, multiplier := rateFields(t.SampleRate)
	binary.BigEndian.PutUint16(rec[32:34], uint16(factor))
	binary.BigEndian.PutUint16(rec[34:36], uint16(multiplier))

	rec[39] = 1
	binary.BigEndian.PutUint16(rec[44:46], dataOffset)
	binary.BigEndian.PutUint16(rec[46:48], fixedHeaderLen)

	// Blockette 1000.
	binary.BigEndian.PutUint16(rec[48:50], 1000)
	binary.BigEndian.PutUint16(rec[50:52], 0)
	rec[52] = byte(encoding)
	rec[53] = 1
	rec[54] = recordLenLog

	if len(payload) > recordLen-dataOffset {
		return fmt.Errorf("payload of %d bytes exceeds record capacity", len(payload))
	}
	copy(rec[dataOffset:], payload)

	_, err := w.Write(rec)
	return err
}

func pad(s string, n int) string {
	return fmt.Sprintf("%-*s", n, s)[:n]
}

func writeBTime(buf []byte, at time.Time) {
	at = at.UTC()
	binary.BigEndian.PutUint16(buf[0:2], uint16(at.Year()))
	binary.BigEndian.PutUint16(buf[2:4], uint16(at.YearDay()))
	buf[4] = byte(at.Hour())
	buf[5] = byte(at.Minute())
	buf[6] = byte(at.Second())
	buf[7] = 0
	binary.BigEndian.PutUint16(buf[8:10], uint16(at.Nanosecond()/100000))
}

func rateFields(rate float64) (int16, int16) {
	if rate >= 1 && rate == math.Trunc(rate) && rate <= math.MaxInt16 {
		return int16(rate), 1
	}
	if rate > 0 && rate < 1 {
		period := 1 / rate
		if period == math.Trunc(period) && period <= math.MaxInt16 {
			return int16(-period), 1
		}
	}
	// Centi-Hertz approximation for fractional rates.
	return int16(math.Round(rate * 100)), -100
}
