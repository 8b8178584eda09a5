package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// RatingConfig carries the tunables of the rating engine.
type RatingConfig struct {
	LegalEntityServiceID int64   `mapstructure:"legalEntityServiceId"`
	BiometricServiceID   int64   `mapstructure:"biometricServiceId"`
	FailedStatusIDs      []int64 `mapstructure:"failedStatusIds"`
	StrictFilters        bool    `mapstructure:"strictFilters"`
	RenewalEnabled       bool    `mapstructure:"renewalEnabled"`
}

func DefaultRatingConfig() RatingConfig {
	return RatingConfig{
		LegalEntityServiceID: 36,
		BiometricServiceID:   50,
		FailedStatusIDs:      []int64{5},
		StrictFilters:        true,
		RenewalEnabled:       false,
	}
}

// IsFailedStatus reports whether status is configured as a failed transaction status.
func (c RatingConfig) IsFailedStatus(status int64) bool {
	for _, id := range c.FailedStatusIDs {
		if id == status {
			return true
		}
	}
	return false
}

type RatingConfigHolder struct {
	current atomic.Value // holds RatingConfig
}

// NewStaticRatingConfig returns a holder that never reloads.
func NewStaticRatingConfig(cfg RatingConfig) *RatingConfigHolder {
	holder := &RatingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewRatingConfigHolder() (*RatingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("rating")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/signbilling")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SIGNBILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultRatingConfig()
	v.SetDefault("rating.legalEntityServiceId", defaults.LegalEntityServiceID)
	v.SetDefault("rating.biometricServiceId", defaults.BiometricServiceID)
	v.SetDefault("rating.failedStatusIds", toInts(defaults.FailedStatusIDs))
	v.SetDefault("rating.strictFilters", defaults.StrictFilters)
	v.SetDefault("rating.renewalEnabled", defaults.RenewalEnabled)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	cfg := readRatingConfig(v)
	if err := validateRatingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &RatingConfigHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := readRatingConfig(v)
		if err := validateRatingConfig(updated); err != nil {
			log.Printf("[rating-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[rating-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// readRatingConfig reads key by key so SIGNBILLING_RATING_* variables win over the file.
func readRatingConfig(v *viper.Viper) RatingConfig {
	failed := v.GetIntSlice("rating.failedStatusIds")
	ids := make([]int64, 0, len(failed))
	for _, id := range failed {
		ids = append(ids, int64(id))
	}
	return RatingConfig{
		LegalEntityServiceID: v.GetInt64("rating.legalEntityServiceId"),
		BiometricServiceID:   v.GetInt64("rating.biometricServiceId"),
		FailedStatusIDs:      ids,
		StrictFilters:        v.GetBool("rating.strictFilters"),
		RenewalEnabled:       v.GetBool("rating.renewalEnabled"),
	}
}

func toInts(ids []int64) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		out = append(out, int(id))
	}
	return out
}

func (h *RatingConfigHolder) Get() RatingConfig {
	return h.current.Load().(RatingConfig)
}

func validateRatingConfig(cfg RatingConfig) error {
	if cfg.LegalEntityServiceID <= 0 {
		return errors.New("rating.legalEntityServiceId must be positive")
	}
	if cfg.BiometricServiceID <= 0 {
		return errors.New("rating.biometricServiceId must be positive")
	}
	if cfg.LegalEntityServiceID == cfg.BiometricServiceID {
		return errors.New("rating.legalEntityServiceId and rating.biometricServiceId must differ")
	}
	return nil
}
