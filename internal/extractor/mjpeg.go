package extractor

import (
	"bytes"
	"image"
	_ "image/jpeg"
)

// splitJPEGStream cuts a concatenated MJPEG byte stream into individual JPEG
// files. It walks the marker structure rather than scanning for 0xFFD9, since
// the end-of-image byte pair can appear inside entropy-coded data.
func splitJPEGStream(stream []byte) [][]byte {
	var frames [][]byte
	for len(stream) >= 2 {
		end, ok := jpegLength(stream)
		if !ok {
			break
		}
		frames = append(frames, stream[:end])
		stream = stream[end:]
	}
	return frames
}

// jpegLength returns the length of the JPEG file at the start of data, parsing
// segment headers up to and through the entropy-coded scan.
func jpegLength(data []byte) (int, bool) {
	if len(data) < 2 || data[0] != 0xFF || data[1] != 0xD8 {
		return 0, false
	}
	i := 2
	for i+1 < len(data) {
		if data[i] != 0xFF {
			return 0, false
		}
		marker := data[i+1]
		switch {
		case marker == 0xD9: // EOI
			return i + 2, true
		case marker == 0xD8 || (marker >= 0xD0 && marker <= 0xD7): // standalone
			i += 2
		case marker == 0xDA: // SOS, entropy data follows
			segLen, ok := segmentLength(data, i)
			if !ok {
				return 0, false
			}
			i += segLen
			end, ok := skipEntropy(data, i)
			if !ok {
				return 0, false
			}
			i = end
		default:
			segLen, ok := segmentLength(data, i)
			if !ok {
				return 0, false
			}
			i += segLen
		}
	}
	return 0, false
}

// segmentLength returns the full length of the marker segment at i, marker
// bytes included.
func segmentLength(data []byte, i int) (int, bool) {
	if i+3 >= len(data) {
		return 0, false
	}
	payload := int(data[i+2])<<8 | int(data[i+3])
	if payload < 2 || i+2+payload > len(data) {
		return 0, false
	}
	return 2 + payload, true
}

// skipEntropy advances past entropy-coded data starting at i, treating 0xFF00
// escapes and restart markers as data, and stops at the next real marker.
func skipEntropy(data []byte, i int) (int, bool) {
	for i+1 < len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		next := data[i+1]
		if next == 0x00 || (next >= 0xD0 && next <= 0xD7) {
			i += 2
			continue
		}
		return i, true
	}
	return 0, false
}

// decodeCheck verifies a JPEG buffer decodes, returning its dimensions.
func decodeCheck(jpg []byte) (image.Point, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(jpg))
	if err != nil {
		return image.Point{}, err
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}
