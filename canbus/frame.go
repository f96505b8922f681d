// Package canbus reassembles segmented CAN bus responses as emitted by
// ELM327-style adapters in raw line mode.
//
// Each response line is exactly 19 hex characters:
//
//	7EC 1 03D 6101FFFFFFFF
//	 |  |  |  |
//	 |  |  |  data
//	 |  |  declared payload length (first frame: 3 digits, single: 1)
//	 |  frame type: 0 single, 1 first, 2 consecutive
//	 identifier
//
// Consecutive frames carry a 1-digit index cycling 1..15 (mod 16) and up to
// 7 payload bytes; trailing bytes past the declared length are padding.
package canbus

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Raw line length in hex characters, fixed by the adapter wire format.
const LineLength = 19

const (
	frameSingle      = 0
	frameFirst       = 1
	frameConsecutive = 2
)

type FormatError struct {
	Line   string
	Length int
}

func (e FormatError) Error() string {
	return fmt.Sprintf("canbus: error parsing response line %q: invalid line length %d!=%d", e.Line, e.Length, LineLength)
}

type SequenceError struct {
	Last uint8
	Idx  uint8
}

func (e SequenceError) Error() string {
	return fmt.Sprintf("canbus: bad frame order: last_idx(%d) idx(%d)", e.Last, e.Idx)
}

type UnexpectedFrameType struct {
	Type uint8
}

func (e UnexpectedFrameType) Error() string {
	return fmt.Sprintf("canbus: unexpected frame type %d", e.Type)
}

type IncompleteMessage struct {
	Want int
	Got  int
}

func (e IncompleteMessage) Error() string {
	return fmt.Sprintf("canbus: incomplete message: declared %d bytes, got %d", e.Want, e.Got)
}

// Reassemble parses the ordered raw lines of one command response into a
// contiguous payload of exactly the declared length.
//
// TODO verify identifier continuity between first and consecutive frames;
// with the adapter receive-address filter active only one ECU talks at a
// time, so interleaving has not been observed on the wire.
func Reassemble(lines []string) ([]byte, error) {
	var data []byte
	dataLen := 0
	lastIdx := uint8(0)
	started := false

	for _, line := range lines {
		if len(line) != LineLength {
			return nil, FormatError{Line: line, Length: len(line)}
		}
		// line[0:3] is the identifier, unused below, still must be hex
		if _, err := strconv.ParseUint(line[0:3], 16, 16); err != nil {
			return nil, FormatError{Line: line, Length: len(line)}
		}
		frameType, err := strconv.ParseUint(line[3:4], 16, 8)
		if err != nil {
			return nil, FormatError{Line: line, Length: len(line)}
		}

		switch frameType {
		case frameSingle:
			n, err := strconv.ParseUint(line[4:5], 16, 8)
			if err != nil {
				return nil, FormatError{Line: line, Length: len(line)}
			}
			dataLen = int(n)
			if 5+dataLen*2 > LineLength {
				return nil, FormatError{Line: line, Length: len(line)}
			}
			data, err = hex.DecodeString(line[5 : 5+dataLen*2])
			if err != nil {
				return nil, FormatError{Line: line, Length: len(line)}
			}
			return data, nil

		case frameFirst:
			n, err := strconv.ParseUint(line[4:7], 16, 12)
			if err != nil {
				return nil, FormatError{Line: line, Length: len(line)}
			}
			dataLen = int(n)
			started = true
			chunk, err := hex.DecodeString(line[7:])
			if err != nil {
				return nil, FormatError{Line: line, Length: len(line)}
			}
			data = append(data[:0], chunk...)
			if len(data) >= dataLen {
				return data[:dataLen], nil
			}
			lastIdx = 0

		case frameConsecutive:
			// a consecutive frame makes no sense before a first frame
			// declared data_len
			if !started {
				return nil, UnexpectedFrameType{Type: uint8(frameType)}
			}
			n, err := strconv.ParseUint(line[4:5], 16, 8)
			if err != nil {
				return nil, FormatError{Line: line, Length: len(line)}
			}
			idx := uint8(n)
			if (lastIdx+1)%0x10 != idx {
				return nil, SequenceError{Last: lastIdx, Idx: idx}
			}
			frameLen := dataLen - len(data)
			if frameLen > 7 {
				frameLen = 7
			}
			if frameLen < 0 {
				frameLen = 0
			}
			chunk, err := hex.DecodeString(line[5 : 5+frameLen*2])
			if err != nil {
				return nil, FormatError{Line: line, Length: len(line)}
			}
			data = append(data, chunk...)
			lastIdx = idx
			if len(data) == dataLen {
				return data, nil
			}

		default:
			return nil, UnexpectedFrameType{Type: uint8(frameType)}
		}
	}

	if !started || len(data) != dataLen {
		return nil, IncompleteMessage{Want: dataLen, Got: len(data)}
	}
	return data, nil
}

// ReassembleString splits a raw multi-line adapter response and reassembles it.
func ReassembleString(raw string) ([]byte, error) {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "\r", "\n"))
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return Reassemble(lines)
}
