// Package training fits pilot models from recorded tubs.
package training

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/vehicle/pkg/domain"
	"github.com/aretw0/vehicle/pkg/parts/pilot"
	"github.com/aretw0/vehicle/pkg/ports"
)

// Keys read from every record: the frame is the input, the user's commands
// are the labels.
var (
	InputKey  = domain.KeyImage
	LabelKeys = []string{domain.KeyUserAngle, domain.KeyUserThrottle}
)

// Sample is one labeled feature vector.
type Sample struct {
	X        []float64
	Angle    float64
	Throttle float64
}

// ResolveTubs expands a comma separated list of tub paths and glob patterns
// ("~/tubs/*") into existing directories. An empty list means every tub under
// dataPath.
func ResolveTubs(list, dataPath string) ([]string, error) {
	if strings.TrimSpace(list) == "" {
		list = filepath.Join(dataPath, "*")
	}

	var tubs []string
	for _, pattern := range strings.Split(list, ",") {
		pattern = expandHome(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("tub pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() && !slices.Contains(tubs, m) {
				tubs = append(tubs, m)
			}
		}
	}
	if len(tubs) == 0 {
		return nil, fmt.Errorf("no tubs match %q", list)
	}
	return tubs, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// LoadSamples reads every usable record of stores, reducing frames with spec.
// Records missing the frame or a label are skipped and counted.
func LoadSamples(ctx context.Context, stores []ports.RecordStore, spec pilot.FeatureSpec) ([]Sample, int, error) {
	var samples []Sample
	skipped := 0
	for _, s := range stores {
		err := s.Scan(ctx, func(rec domain.Record) error {
			sample, ok := toSample(rec, spec)
			if !ok {
				skipped++
				return nil
			}
			samples = append(samples, sample)
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("read tub: %w", err)
		}
	}
	if len(samples) == 0 {
		return nil, skipped, errors.New("no usable records")
	}
	return samples, skipped, nil
}

func toSample(rec domain.Record, spec pilot.FeatureSpec) (Sample, bool) {
	f, ok := rec.Values[InputKey].Frame()
	if !ok {
		return Sample{}, false
	}
	angle, ok := rec.Values[LabelKeys[0]].Number()
	if !ok {
		return Sample{}, false
	}
	throttle, ok := rec.Values[LabelKeys[1]].Number()
	if !ok {
		return Sample{}, false
	}
	return Sample{X: pilot.Extract(f, spec), Angle: angle, Throttle: throttle}, true
}

// Split shuffles samples with seed and returns the first trainFrac of them
// for training and the rest for validation.
func Split(samples []Sample, trainFrac float64, seed uint64) (train, val []Sample) {
	shuffled := slices.Clone(samples)
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	r.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	n := int(float64(len(shuffled)) * trainFrac)
	return shuffled[:n], shuffled[n:]
}
