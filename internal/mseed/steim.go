/*
Copyright (c) 2026 Red Sísmica del Austro. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package mseed

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Steim frames are 64 bytes, one control word and 15 data words. The
// first frame of a record reserves two words for the forward and
// reverse integration constants.
const (
	frameLen       = 64
	wordsPerFrame  = 16
	steimFrameData = wordsPerFrame - 1
)

var ErrSteimIntegrity = errors.New("steim reverse integration mismatch")

func decodeSteim(data []byte, order binary.ByteOrder, n, version int) ([]float64, error) {
	if len(data) < frameLen {
		return nil, ErrShortRecord
	}

	samples := make([]float64, 0, n)
	var x0, xn, last int32
	first := true

	for f := 0; (f+1)*frameLen <= len(data) && len(samples) < n; f++ {
		frame := data[f*frameLen : (f+1)*frameLen]
		ctrl := order.Uint32(frame[0:4])

		for w := 1; w < wordsPerFrame && len(samples) < n; w++ {
			word := frame[w*4 : w*4+4]
			if f == 0 && w == 1 {
				x0 = int32(order.Uint32(word))
				continue
			}
			if f == 0 && w == 2 {
				xn = int32(order.Uint32(word))
				continue
			}

			nibble := (ctrl >> uint(2*(steimFrameData-w))) & 0x3
			if nibble == 0 {
				continue
			}

			diffs, err := unpackSteimWord(order.Uint32(word), nibble, version)
			if err != nil {
				return nil, err
			}

			for _, d := range diffs {
				if len(samples) == n {
					break
				}
				if first {
					// The first difference spans records and is
					// replaced by the forward integration constant.
					last = x0
					first = false
				} else {
					last += d
				}
				samples = append(samples, float64(last))
			}
		}
	}

	if len(samples) < n {
		return nil, fmt.Errorf("steim payload ends after %d of %d samples: %w", len(samples), n, ErrShortRecord)
	}
	if last != xn {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrSteimIntegrity, last, xn)
	}

	return samples, nil
}

func unpackSteimWord(w uint32, nibble uint32, version int) ([]int32, error) {
	switch nibble {
	case 1:
		return []int32{
			int32(int8(w >> 24)),
			int32(int8(w >> 16)),
			int32(int8(w >> 8)),
			int32(int8(w)),
		}, nil
	case 2:
		if version == 1 {
			return []int32{
				int32(int16(w >> 16)),
				int32(int16(w)),
			}, nil
		}
		switch w >> 30 {
		case 1:
			return []int32{signExtend(w, 30)}, nil
		case 2:
			return []int32{
				signExtend(w>>15, 15),
				signExtend(w, 15),
			}, nil
		case 3:
			return []int32{
				signExtend(w>>20, 10),
				signExtend(w>>10, 10),
				signExtend(w, 10),
			}, nil
		}
		return nil, fmt.Errorf("steim2 nibble 2 with reserved decode code %d", w>>30)
	case 3:
		if version == 1 {
			return []int32{int32(w)}, nil
		}
		switch w >> 30 {
		case 0:
			return []int32{
				signExtend(w>>24, 6),
				signExtend(w>>18, 6),
				signExtend(w>>12, 6),
				signExtend(w>>6, 6),
				signExtend(w, 6),
			}, nil
		case 1:
			return []int32{
				signExtend(w>>25, 5),
				signExtend(w>>20, 5),
				signExtend(w>>15, 5),
				signExtend(w>>10, 5),
				signExtend(w>>5, 5),
				signExtend(w, 5),
			}, nil
		case 2:
			return []int32{
				signExtend(w>>24, 4),
				signExtend(w>>20, 4),
				signExtend(w>>16, 4),
				signExtend(w>>12, 4),
				signExtend(w>>8, 4),
				signExtend(w>>4, 4),
				signExtend(w, 4),
			}, nil
		}
		return nil, fmt.Errorf("steim2 nibble 3 with reserved decode code %d", w>>30)
	}
	return nil, fmt.Errorf("unknown steim nibble %d", nibble)
}

func signExtend(v uint32, bits uint) int32 {
	shift := 32 - bits
	return int32(v<<shift) >> shift
}

type steimWord struct {
	value  uint32
	nibble uint32
}

// packSteim1Words greedily packs differences into Steim1 words until
// either the differences or the word budget are exhausted. It returns
// the packed words and the number of differences consumed.
func packSteim1Words(diffs []int32, maxWords int) ([]steimWord, int) {
	var words []steimWord
	pos := 0

	fits := func(off int, lo, hi int32) bool {
		if pos+off >= len(diffs) {
			return false
		}
		d := diffs[pos+off]
		return d >= lo && d <= hi
	}

	for pos < len(diffs) && len(words) < maxWords {
		switch {
		case fits(0, -128, 127) && fits(1, -128, 127) && fits(2, -128, 127) && fits(3, -128, 127):
			w := uint32(uint8(diffs[pos]))<<24 |
				uint32(uint8(diffs[pos+1]))<<16 |
				uint32(uint8(diffs[pos+2]))<<8 |
				uint32(uint8(diffs[pos+3]))
			words = append(words, steimWord{w, 1})
			pos += 4
		case fits(0, -32768, 32767) && fits(1, -32768, 32767):
			w := uint32(uint16(diffs[pos]))<<16 | uint32(uint16(diffs[pos+1]))
			words = append(words, steimWord{w, 2})
			pos += 2
		default:
			words = append(words, steimWord{uint32(diffs[pos]), 3})
			pos++
		}
	}

	return words, pos
}

// layoutSteim1 arranges packed words into big endian frames with the
// integration constants in the first frame.
func layoutSteim1(words []steimWord, x0, xn int32, numFrames int) []byte {
	buf := make([]byte, numFrames*frameLen)

	idx := 0
	for f := 0; f < numFrames; f++ {
		frame := buf[f*frameLen : (f+1)*frameLen]
		var ctrl uint32

		for w := 1; w < wordsPerFrame; w++ {
			if f == 0 && w == 1 {
				binary.BigEndian.PutUint32(frame[4:8], uint32(x0))
				continue
			}
			if f == 0 && w == 2 {
				binary.BigEndian.PutUint32(frame[8:12], uint32(xn))
				continue
			}
			if idx >= len(words) {
				continue
			}

			ctrl |= words[idx].nibble << uint(2*(steimFrameData-w))
			binary.BigEndian.PutUint32(frame[w*4:w*4+4], words[idx].value)
			idx++
		}

		binary.BigEndian.PutUint32(frame[0:4], ctrl)
	}

	return buf
}
