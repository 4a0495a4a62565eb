// file: internal/marker/png.go
// version: 1.0.0
// guid: 2e8c4a6b-9f1d-4c3e-b5a7-d8e9f0a1b2c3

package marker

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// PNG chunk layout: 4-byte length, 4-byte type, data, 4-byte CRC over
// type+data. The marker lives in a tEXt chunk inserted directly after
// IHDR; any pre-existing marker tEXt chunk is dropped on encode.

var errMalformedPNG = errors.New("malformed png")

func encodePNG(raw, payload []byte) ([]byte, error) {
	out := bytes.NewBuffer(make([]byte, 0, len(raw)+len(payload)+64))
	out.Write(pngSignature)

	inserted := false
	pos := len(pngSignature)
	for pos < len(raw) {
		chunkType, chunk, next, err := pngChunk(raw, pos)
		if err != nil {
			return nil, err
		}
		if chunkType == "tEXt" && bytes.HasPrefix(chunk[8:], append([]byte(Keyword), 0)) {
			pos = next // stale marker, drop it
			continue
		}
		out.Write(chunk)
		if chunkType == "IHDR" && !inserted {
			out.Write(pngTextChunk(payload))
			inserted = true
		}
		pos = next
		if chunkType == "IEND" {
			break
		}
	}
	if !inserted {
		return nil, errMalformedPNG
	}
	// Trailing bytes after IEND are preserved as-is.
	if pos < len(raw) {
		out.Write(raw[pos:])
	}
	return out.Bytes(), nil
}

func decodePNG(raw []byte) []byte {
	pos := len(pngSignature)
	for pos < len(raw) {
		chunkType, chunk, next, err := pngChunk(raw, pos)
		if err != nil {
			return nil
		}
		if chunkType == "tEXt" {
			data := chunk[8 : len(chunk)-4]
			if idx := bytes.IndexByte(data, 0); idx >= 0 && string(data[:idx]) == Keyword {
				return data[idx+1:]
			}
		}
		if chunkType == "IEND" {
			return nil
		}
		pos = next
	}
	return nil
}

// pngChunk parses the chunk starting at pos, returning its type, the
// full raw chunk (length+type+data+crc), and the next offset.
func pngChunk(raw []byte, pos int) (string, []byte, int, error) {
	if pos+8 > len(raw) {
		return "", nil, 0, errMalformedPNG
	}
	length := int(binary.BigEndian.Uint32(raw[pos : pos+4]))
	end := pos + 8 + length + 4
	if end > len(raw) || end < pos {
		return "", nil, 0, errMalformedPNG
	}
	chunkType := string(raw[pos+4 : pos+8])
	return chunkType, raw[pos:end], end, nil
}

func pngTextChunk(payload []byte) []byte {
	data := make([]byte, 0, len(Keyword)+1+len(payload))
	data = append(data, Keyword...)
	data = append(data, 0)
	data = append(data, payload...)

	chunk := make([]byte, 8, 8+len(data)+4)
	binary.BigEndian.PutUint32(chunk[:4], uint32(len(data)))
	copy(chunk[4:8], "tEXt")
	chunk = append(chunk, data...)

	crc := crc32.NewIEEE()
	crc.Write(chunk[4:])
	chunk = binary.BigEndian.AppendUint32(chunk, crc.Sum32())
	return chunk
}
