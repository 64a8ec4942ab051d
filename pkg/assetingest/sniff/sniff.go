// Package sniff decides whether a file's leading bytes are consistent with
// a declared MIME type. The decision table is closed: a claimed type outside
// it is rejected, never guessed at.
package sniff

import "strings"

// HeaderLen is the number of leading bytes the decision table needs. 64 is
// sufficient for every supported format, including ftyp boxes preceded by
// other ISO-BMFF data.
const HeaderLen = 64

// Matches reports whether header's magic signature is consistent with the
// claimed MIME type. Unrecognized claimed types always fail.
func Matches(header []byte, claimedMime string) bool {
	switch strings.ToLower(strings.TrimSpace(claimedMime)) {
	case "image/jpeg":
		return isJPEG(header)
	case "image/png":
		return isPNG(header)
	case "image/heic", "image/heif":
		return isHEICFamily(header)
	case "audio/mpeg":
		return isMP3(header)
	case "audio/mp4", "audio/x-m4a", "video/mp4":
		return isMP4Family(header)
	case "audio/wav":
		return isWAV(header)
	}
	return false
}

func isJPEG(h []byte) bool {
	return len(h) >= 3 && h[0] == 0xFF && h[1] == 0xD8 && h[2] == 0xFF
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func isPNG(h []byte) bool {
	if len(h) < len(pngSignature) {
		return false
	}
	for i, b := range pngSignature {
		if h[i] != b {
			return false
		}
	}
	return true
}

func isWAV(h []byte) bool {
	return len(h) >= 12 &&
		h[0] == 'R' && h[1] == 'I' && h[2] == 'F' && h[3] == 'F' &&
		h[8] == 'W' && h[9] == 'A' && h[10] == 'V' && h[11] == 'E'
}

func isMP3(h []byte) bool {
	if len(h) >= 3 && h[0] == 'I' && h[1] == 'D' && h[2] == '3' {
		return true
	}
	// Raw frame sync: FF followed by a byte with the top 3 bits set.
	return len(h) >= 2 && h[0] == 0xFF && h[1]&0xE0 == 0xE0
}

// findFtyp returns the offset of an ISO-BMFF ftyp box marker, or -1.
func findFtyp(h []byte) int {
	for i := 0; i+8 <= len(h); i++ {
		if h[i] == 'f' && h[i+1] == 't' && h[i+2] == 'y' && h[i+3] == 'p' {
			return i
		}
	}
	return -1
}

func isMP4Family(h []byte) bool {
	if len(h) < 12 {
		return false
	}
	// Any ISO-BMFF brand is accepted for the MP4 family (mp41, mp42, isom,
	// iso2, M4A and friends).
	return findFtyp(h) >= 0
}

var heicBrands = map[string]struct{}{
	"heic": {},
	"heif": {},
	"mif1": {},
	"msf1": {},
}

func isHEICFamily(h []byte) bool {
	if len(h) < 16 {
		return false
	}
	i := findFtyp(h)
	if i < 0 || i+8 > len(h) {
		return false
	}
	brand := strings.ToLower(string(h[i+4 : i+8]))
	_, ok := heicBrands[brand]
	return ok
}
