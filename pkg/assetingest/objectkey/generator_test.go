package objectkey

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var publicIDPattern = regexp.MustCompile(`^asset_2025_3_original_[0-9a-f-]{8}$`)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2025, time.March, 14, 9, 26, 53, 0, time.UTC)
	}
}

func TestGenerateKeyShape(t *testing.T) {
	g := NewDateShardedGeneratorAt(fixedClock())

	key, publicID := g.GenerateKey("IMAGE", "jpg")

	assert.Regexp(t, publicIDPattern, publicID)
	assert.Equal(t, fmt.Sprintf("image/2025/3/%s.jpg", publicID), key)
}

func TestGenerateKeyLowercasesInputs(t *testing.T) {
	g := NewDateShardedGeneratorAt(fixedClock())

	key, publicID := g.GenerateKey("AUDIO", "M4A")

	assert.Equal(t, fmt.Sprintf("audio/2025/3/%s.m4a", publicID), key)
}

func TestGenerateKeyUniquePublicIDs(t *testing.T) {
	g := NewDateShardedGenerator()

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		_, publicID := g.GenerateKey("IMAGE", "jpg")
		_, dup := seen[publicID]
		require.False(t, dup, "duplicate public id %s", publicID)
		seen[publicID] = struct{}{}
	}
}

func TestThumbnailKey(t *testing.T) {
	g := NewDateShardedGenerator()

	key := g.ThumbnailKey("asset_2025_3_original_ab12cd34", "THUMB_320")
	assert.Equal(t, "thumbnails/asset_2025_3_original_ab12cd34_thumb_320.jpg", key)
}
