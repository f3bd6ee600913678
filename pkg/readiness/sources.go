package readiness

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// captureStatus is the camera producer's artifact.
//
// NOTE: the field names are the producer's on-disk contract.
type captureStatus struct {
	ImageReady bool    `json:"image_ready"`
	ImagePath  string  `json:"image_path"`
	Timestamp  float64 `json:"timestamp"`
}

// ImageStatusSource reads the camera status artifact, a JSON record
// announcing the path of the captured image.
type ImageStatusSource struct {
	name string
	path string
}

func NewImageStatusSource(path string) *ImageStatusSource {
	return &ImageStatusSource{name: SignalImage, path: strings.TrimSpace(path)}
}

func (s *ImageStatusSource) Name() string { return s.name }

func (s *ImageStatusSource) Path() string { return s.path }

func (s *ImageStatusSource) TryRead() (Value, error) {
	b, info, err := readArtifact(s.path)
	if err != nil {
		return Value{}, err
	}

	var status captureStatus
	if err := json.Unmarshal(b, &status); err != nil {
		return Value{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	imagePath := strings.TrimSpace(status.ImagePath)
	if !status.ImageReady || imagePath == "" {
		return Value{}, ErrNotReady
	}

	ts := info.ModTime().UTC()
	if status.Timestamp > 0 {
		sec, frac := math.Modf(status.Timestamp)
		ts = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	}
	return Value{Name: s.name, Path: imagePath, Timestamp: ts}, nil
}

// WeightSource reads the scale artifact: the weight in grams as plain text.
type WeightSource struct {
	name string
	path string
}

func NewWeightSource(path string) *WeightSource {
	return &WeightSource{name: SignalWeight, path: strings.TrimSpace(path)}
}

func (s *WeightSource) Name() string { return s.name }

func (s *WeightSource) Path() string { return s.path }

func (s *WeightSource) TryRead() (Value, error) {
	b, info, err := readArtifact(s.path)
	if err != nil {
		return Value{}, err
	}

	grams, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return Value{}, fmt.Errorf("parse %s: %w", s.path, err)
	}
	if math.IsNaN(grams) || math.IsInf(grams, 0) {
		return Value{}, fmt.Errorf("parse %s: weight is not finite", s.path)
	}
	return Value{Name: s.name, Grams: grams, Timestamp: info.ModTime().UTC()}, nil
}

// readArtifact returns the trimmed artifact content. Missing and empty files
// both report ErrNotReady: producers may truncate before writing.
func readArtifact(path string) ([]byte, fs.FileInfo, error) {
	if path == "" {
		return nil, nil, ErrNotReady
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotReady
		}
		return nil, nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, nil, fmt.Errorf("%s is not a regular file", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, ErrNotReady
		}
		return nil, nil, err
	}
	trimmed := strings.TrimSpace(string(b))
	if trimmed == "" {
		return nil, nil, ErrNotReady
	}
	return []byte(trimmed), info, nil
}
