package readiness

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestImageStatusSource(t *testing.T) {
	tests := []struct {
		name     string
		content  *string
		wantErr  error
		wantPath string
		wantTS   int64
	}{
		{name: "missing file", content: nil, wantErr: ErrNotReady},
		{name: "empty file", content: strPtr(""), wantErr: ErrNotReady},
		{name: "not ready flag", content: strPtr(`{"image_ready": false, "image_path": "food_1.jpg"}`), wantErr: ErrNotReady},
		{name: "empty path", content: strPtr(`{"image_ready": true, "image_path": " "}`), wantErr: ErrNotReady},
		{
			name:     "ready",
			content:  strPtr(`{"image_ready": true, "image_path": "food_123.jpg", "timestamp": 1700000000}`),
			wantPath: "food_123.jpg",
			wantTS:   1700000000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "capture_status.json")
			if tt.content != nil {
				writeFile(t, path, *tt.content)
			}
			src := NewImageStatusSource(path)
			assert.Equal(t, SignalImage, src.Name())

			v, err := src.TryRead()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, v.Path)
			assert.Equal(t, tt.wantTS, v.Timestamp.Unix())
		})
	}
}

func TestImageStatusSource_CorruptJSONIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture_status.json")
	writeFile(t, path, `{"image_ready": tr`)

	_, err := NewImageStatusSource(path).TryRead()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotReady)
}

func TestWeightSource(t *testing.T) {
	tests := []struct {
		name      string
		content   *string
		wantErr   bool
		wantGrams float64
	}{
		{name: "missing file", content: nil, wantErr: true},
		{name: "garbage", content: strPtr("heavy"), wantErr: true},
		{name: "nan", content: strPtr("NaN"), wantErr: true},
		{name: "integer", content: strPtr("450\n"), wantGrams: 450},
		{name: "fraction", content: strPtr("  12.5 "), wantGrams: 12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "weight_data.txt")
			if tt.content != nil {
				writeFile(t, path, *tt.content)
			}
			v, err := NewWeightSource(path).TryRead()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SignalWeight, v.Name)
			assert.InDelta(t, tt.wantGrams, v.Grams, 1e-9)
			assert.False(t, v.Timestamp.IsZero())
		})
	}
}

func TestGlobSource(t *testing.T) {
	root := t.TempDir()
	src, err := NewGlobSource("", root, "captures/food_*.jpg")
	require.NoError(t, err)
	assert.Equal(t, SignalImage, src.Name())

	_, err = src.TryRead()
	assert.ErrorIs(t, err, ErrNotReady)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "captures"), 0755))
	older := filepath.Join(root, "captures", "food_1.jpg")
	newer := filepath.Join(root, "captures", "food_2.jpg")
	writeFile(t, older, "a")
	writeFile(t, newer, "b")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	v, err := src.TryRead()
	require.NoError(t, err)
	assert.Equal(t, newer, v.Path)
}

func TestNewGlobSource_InvalidPattern(t *testing.T) {
	_, err := NewGlobSource("image", ".", "food_[.jpg")
	require.Error(t, err)

	_, err = NewGlobSource("image", ".", "")
	require.Error(t, err)
}

func TestPublishRoundTrip(t *testing.T) {
	dir := t.TempDir()
	statusPath := filepath.Join(dir, "capture_status.json")
	weightPath := filepath.Join(dir, "weight_data.txt")
	ts := time.Unix(1700000123, 0)

	require.NoError(t, PublishImage(statusPath, "food_123.jpg", ts))
	require.NoError(t, PublishWeight(weightPath, 450))

	img, err := NewImageStatusSource(statusPath).TryRead()
	require.NoError(t, err)
	assert.Equal(t, "food_123.jpg", img.Path)
	assert.Equal(t, ts.Unix(), img.Timestamp.Unix())

	w, err := NewWeightSource(weightPath).TryRead()
	require.NoError(t, err)
	assert.Equal(t, float64(450), w.Grams)
	assert.Equal(t, "450", w.String())
}

func TestPublishValidation(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, PublishImage(filepath.Join(dir, "s.json"), "", time.Now()))
	assert.Error(t, PublishWeight(filepath.Join(dir, "w.txt"), mathInf()))
}

func strPtr(s string) *string { return &s }
