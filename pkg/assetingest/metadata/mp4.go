package metadata

import (
	"encoding/binary"
	"io"
	"os"
	"time"

	gomp4 "github.com/abema/go-mp4"

	"github.com/sessionkit/asset-ingest/pkg/assetingest"
)

// ISO-BMFF timestamps count seconds from 1904-01-01T00:00:00Z.
var mp4Epoch = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)

// udtaScanLimit caps how much of the user-data box is read when hunting for
// location atoms.
const udtaScanLimit = 64 * 1024

// fromContainer parses MP4-family metadata: the mvhd creation time and a
// location taken from the 3GPP loci box when present, else from an
// ISO-6709 string in the QuickTime location atom. Explicit numeric fields
// win over the ISO string.
func (e *Extractor) fromContainer(path string) *assetingest.ExtractedMetadata {
	f, err := os.Open(path)
	if err != nil {
		logExtractionFailure(path, err)
		return nil
	}
	defer f.Close()

	var meta assetingest.ExtractedMetadata
	if takenAt, ok := containerCreationTime(f); ok {
		meta.TakenAt = &takenAt
	}
	if lat, lng, ok := containerLocation(f); ok {
		meta.Lat = &lat
		meta.Lng = &lng
	}
	return &meta
}

func containerCreationTime(f *os.File) (time.Time, bool) {
	boxes, err := gomp4.ExtractBoxWithPayload(f, nil,
		gomp4.BoxPath{gomp4.BoxTypeMoov(), gomp4.BoxTypeMvhd()})
	if err != nil || len(boxes) == 0 {
		return time.Time{}, false
	}
	mvhd, ok := boxes[0].Payload.(*gomp4.Mvhd)
	if !ok {
		return time.Time{}, false
	}

	var seconds uint64
	if mvhd.Version == 0 {
		seconds = uint64(mvhd.CreationTimeV0)
	} else {
		seconds = mvhd.CreationTimeV1
	}
	if seconds == 0 {
		return time.Time{}, false
	}
	return mp4Epoch.Add(time.Duration(seconds) * time.Second), true
}

// containerLocation scans the raw moov/udta payload. Parsing the user-data
// atoms structurally is not worthwhile: writers disagree about nesting, so
// both known location atoms are located by their fourcc.
func containerLocation(f *os.File) (float64, float64, bool) {
	boxes, err := gomp4.ExtractBox(f, nil,
		gomp4.BoxPath{gomp4.BoxTypeMoov(), gomp4.BoxTypeUdta()})
	if err != nil || len(boxes) == 0 {
		return 0, 0, false
	}

	info := boxes[0]
	if _, err := info.SeekToPayload(f); err != nil {
		return 0, 0, false
	}
	size := info.Size - uint64(info.HeaderSize)
	if size > udtaScanLimit {
		size = udtaScanLimit
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(f, payload); err != nil {
		return 0, 0, false
	}

	if lat, lng, ok := scanLoci(payload); ok {
		return lat, lng, true
	}
	if lat, lng, ok := scanXYZ(payload); ok {
		return lat, lng, true
	}
	return 0, 0, false
}

// scanLoci finds a 3GPP loci atom and reads its fixed-point 16.16
// longitude/latitude fields.
func scanLoci(b []byte) (float64, float64, bool) {
	i := indexFourCC(b, 'l', 'o', 'c', 'i')
	if i < 0 {
		return 0, 0, false
	}
	// fourcc, fullbox version+flags (4), language (2), then a
	// null-terminated name, one role byte, longitude, latitude.
	p := i + 4 + 4 + 2
	for p < len(b) && b[p] != 0 {
		p++
	}
	p += 2 // terminator + role
	if p+8 > len(b) {
		return 0, 0, false
	}
	lng := fixed1616(binary.BigEndian.Uint32(b[p : p+4]))
	lat := fixed1616(binary.BigEndian.Uint32(b[p+4 : p+8]))
	return lat, lng, true
}

// scanXYZ finds a QuickTime location atom (0xA9 'xyz') and regex-parses its
// ISO-6709 string.
func scanXYZ(b []byte) (float64, float64, bool) {
	i := indexFourCC(b, 0xA9, 'x', 'y', 'z')
	if i < 0 {
		return 0, 0, false
	}
	p := i + 4
	if p+4 > len(b) {
		return 0, 0, false
	}
	strLen := int(binary.BigEndian.Uint16(b[p : p+2]))
	p += 4 // length + language code
	if p+strLen > len(b) {
		strLen = len(b) - p
	}
	lat, lng, ok := ParseISO6709(string(b[p : p+strLen]))
	if !ok {
		return 0, 0, false
	}
	return lat, lng, true
}

func indexFourCC(b []byte, a0, a1, a2, a3 byte) int {
	for i := 0; i+4 <= len(b); i++ {
		if b[i] == a0 && b[i+1] == a1 && b[i+2] == a2 && b[i+3] == a3 {
			return i
		}
	}
	return -1
}

func fixed1616(v uint32) float64 {
	return float64(int32(v)) / 65536.0
}
