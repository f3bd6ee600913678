package readiness

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rrrhhh38/phytiumpi-project/internal/fsutil"
)

// PublishImage writes the camera status artifact announcing imagePath.
func PublishImage(statusPath, imagePath string, ts time.Time) error {
	imagePath = strings.TrimSpace(imagePath)
	if imagePath == "" {
		return fmt.Errorf("image path is required")
	}
	if ts.IsZero() {
		ts = time.Now()
	}

	b, err := json.Marshal(captureStatus{
		ImageReady: true,
		ImagePath:  imagePath,
		Timestamp:  float64(ts.Unix()),
	})
	if err != nil {
		return fmt.Errorf("marshal capture status: %w", err)
	}
	return fsutil.WriteFileAtomic(statusPath, append(b, '\n'), 0644)
}

// PublishWeight writes the scale artifact with grams as plain text.
func PublishWeight(path string, grams float64) error {
	if math.IsNaN(grams) || math.IsInf(grams, 0) {
		return fmt.Errorf("weight must be a finite number")
	}
	line := strconv.FormatFloat(grams, 'f', -1, 64) + "\n"
	return fsutil.WriteFileAtomic(path, []byte(line), 0644)
}
