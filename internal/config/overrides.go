package config

import (
	"fmt"
	"strconv"
	"time"

	"AlertMate/go-backend/internal/drowsiness"
)

// Override keys shared by WebSocket query parameters, gRPC metadata and CLI
// flags.
const (
	KeyEARThreshold = "earThreshold"
	KeyEARTime      = "earTime"
	KeyMARThreshold = "marThreshold"
	KeyMARTime      = "marTime"
	KeyDrowsyFrames = "drowsyFrames"
	KeyEmitInterval = "emitInterval"
)

// Getter is satisfied by url.Values and by the metadata adapter in the gRPC
// handler.
type Getter interface {
	Get(key string) string
}

// ApplyOverrides returns base with every present key applied, validated.
func ApplyOverrides(base drowsiness.Config, src Getter) (drowsiness.Config, error) {
	cfg := base
	th := &cfg.Thresholds

	floatKeys := map[string]*float64{
		KeyEARThreshold: &th.EAR,
		KeyMARThreshold: &th.MAR,
	}
	for key, dst := range floatKeys {
		if v := src.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return base, fmt.Errorf("%s: %w", key, err)
			}
			*dst = f
		}
	}

	durationKeys := map[string]*time.Duration{
		KeyEARTime: &th.EARHold,
		KeyMARTime: &th.MARHold,
	}
	for key, dst := range durationKeys {
		if v := src.Get(key); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				return base, fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}

	if v := src.Get(KeyEmitInterval); v != "" {
		if d, ok := drowsiness.EmitIntervalPreset(v); ok {
			cfg.EmitInterval = d
		} else {
			d, err := parseDuration(v)
			if err != nil {
				return base, fmt.Errorf("%s: %w", KeyEmitInterval, err)
			}
			cfg.EmitInterval = d
		}
	}

	if v := src.Get(KeyDrowsyFrames); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return base, fmt.Errorf("%s: %w", KeyDrowsyFrames, err)
		}
		th.DrowsyFrames = n
	}

	if err := ValidateDetection(cfg); err != nil {
		return base, err
	}
	return cfg, nil
}
