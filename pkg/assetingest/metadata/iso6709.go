package metadata

import (
	"regexp"
	"strconv"
)

// iso6709Pattern matches the two-sign-prefixed-decimal shape, e.g.
// "+52.2297+021.0122/". Signed strings outside this exact shape yield no
// location, which is acceptable under the best-effort contract.
var iso6709Pattern = regexp.MustCompile(`([+-]\d+\.\d+)([+-]\d+\.\d+)`)

// ParseISO6709 extracts a signed latitude/longitude pair from an ISO-6709
// location string.
func ParseISO6709(s string) (lat, lng float64, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	m := iso6709Pattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	lat, errLat := strconv.ParseFloat(m[1], 64)
	lng, errLng := strconv.ParseFloat(m[2], 64)
	if errLat != nil || errLng != nil {
		return 0, 0, false
	}
	return lat, lng, true
}
