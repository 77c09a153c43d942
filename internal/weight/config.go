package weight

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/accord/internal/model"
)

// Config holds the weighting constants.
type Config struct {
	// CohesionFactor divides the feature value; must be positive and finite.
	CohesionFactor float64 `yaml:"cohesion_factor"`
	// OverrideBonus is added for override-class intents.
	OverrideBonus   uint64         `yaml:"override_bonus"`
	OverrideIntents []model.Intent `yaml:"override_intents"`
	// InvalidFeatureFloor replaces NaN, infinite or negative feature values.
	InvalidFeatureFloor uint64 `yaml:"invalid_feature_floor"`
	// HashKey keys the submission hash. Changing it changes every weight.
	HashKey string `yaml:"hash_key"`
}

// DefaultConfig returns the built-in weighting constants.
func DefaultConfig() Config {
	return Config{
		CohesionFactor:      0.005,
		OverrideBonus:       9_000_000_000,
		OverrideIntents:     []model.Intent{model.IntentOverride},
		InvalidFeatureFloor: 10_000_000,
		HashKey:             "accord-svt-v1",
	}
}

// Validate rejects constants that would make the feature component undefined.
func (c Config) Validate() error {
	if c.CohesionFactor <= 0 || math.IsNaN(c.CohesionFactor) || math.IsInf(c.CohesionFactor, 0) {
		return fmt.Errorf("weight: cohesion_factor must be positive and finite, got %v", c.CohesionFactor)
	}
	if c.HashKey == "" {
		return errors.New("weight: hash_key must not be empty")
	}
	return nil
}
