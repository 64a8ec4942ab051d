package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseISO6709(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantLat float64
		wantLng float64
		wantOK  bool
	}{
		{"warsaw with trailing slash", "+52.2297+021.0122/", 52.2297, 21.0122, true},
		{"southern western hemisphere", "-33.8688-151.2093/", -33.8688, -151.2093, true},
		{"with altitude suffix", "+48.8577+002.2950+036.000/", 48.8577, 2.2950, true},
		{"no trailing slash", "+52.2297+021.0122", 52.2297, 21.0122, true},
		{"integer degrees rejected", "+52+021/", 0, 0, false},
		{"unsigned rejected", "52.2297 21.0122", 0, 0, false},
		{"empty", "", 0, 0, false},
		{"garbage", "not a location", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lng, ok := ParseISO6709(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantLat, lat, 1e-9)
				assert.InDelta(t, tt.wantLng, lng, 1e-9)
			}
		})
	}
}
