// file: internal/marker/jpeg.go
// version: 1.0.0
// guid: 7a1b3c5d-2e4f-4a6b-8c0d-e1f2a3b4c5d6

package marker

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// The JPEG marker lives in a COM segment whose payload starts with
// "sonarr_metadata_marker:". The segment is inserted right after SOI and
// any APPn segments, so decoders that expect JFIF/Exif headers first are
// unaffected. Existing marker COM segments are dropped on encode.

var errMalformedJPEG = errors.New("malformed jpeg")

var jpegPayloadPrefix = []byte(Keyword + ":")

func encodeJPEG(raw, payload []byte) ([]byte, error) {
	out := bytes.NewBuffer(make([]byte, 0, len(raw)+len(payload)+32))
	out.Write(raw[:2]) // SOI

	inserted := false
	pos := 2
	for pos+2 <= len(raw) {
		if raw[pos] != 0xFF {
			return nil, errMalformedJPEG
		}
		m := raw[pos+1]

		// Entropy-coded data begins after SOS. Everything from here on is
		// copied verbatim.
		if m == 0xDA {
			if !inserted {
				out.Write(jpegComSegment(payload))
			}
			out.Write(raw[pos:])
			return out.Bytes(), nil
		}

		seg, next, err := jpegSegment(raw, pos)
		if err != nil {
			return nil, err
		}

		if m == 0xFE && bytes.HasPrefix(seg[4:], jpegPayloadPrefix) {
			pos = next // stale marker, drop it
			continue
		}

		// Insert after the leading APPn run, before the first table or
		// frame segment.
		if !inserted && (m < 0xE0 || m > 0xEF) {
			out.Write(jpegComSegment(payload))
			inserted = true
		}
		out.Write(seg)
		pos = next
	}
	return nil, errMalformedJPEG
}

func decodeJPEG(raw []byte) []byte {
	pos := 2
	for pos+4 <= len(raw) {
		if raw[pos] != 0xFF {
			return nil
		}
		m := raw[pos+1]
		if m == 0xDA || m == 0xD9 {
			return nil
		}
		seg, next, err := jpegSegment(raw, pos)
		if err != nil {
			return nil
		}
		if m == 0xFE && bytes.HasPrefix(seg[4:], jpegPayloadPrefix) {
			return seg[4+len(jpegPayloadPrefix):]
		}
		pos = next
	}
	return nil
}

// jpegSegment parses the length-prefixed segment at pos, returning the
// full segment bytes (marker+length+payload) and the next offset.
func jpegSegment(raw []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(raw) {
		return nil, 0, errMalformedJPEG
	}
	length := int(binary.BigEndian.Uint16(raw[pos+2 : pos+4]))
	end := pos + 2 + length
	if length < 2 || end > len(raw) {
		return nil, 0, errMalformedJPEG
	}
	return raw[pos:end], end, nil
}

func jpegComSegment(payload []byte) []byte {
	data := make([]byte, 0, len(jpegPayloadPrefix)+len(payload))
	data = append(data, jpegPayloadPrefix...)
	data = append(data, payload...)

	seg := make([]byte, 4, 4+len(data))
	seg[0], seg[1] = 0xFF, 0xFE
	binary.BigEndian.PutUint16(seg[2:4], uint16(len(data)+2))
	return append(seg, data...)
}
