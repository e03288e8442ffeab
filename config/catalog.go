package config

import (
	"fmt"

	"github.com/spf13/viper"

	"modguard/model"
	"modguard/rules"
	"modguard/utils"
)

// catalogFile mirrors the on-disk rule catalog layout.
type catalogFile struct {
	Rules  []model.Rule      `mapstructure:"rules"`
	Ladder []ladderEntryFile `mapstructure:"general_punishment_ladder"`
}

type ladderEntryFile struct {
	Threshold           int    `mapstructure:"threshold"`
	Action              string `mapstructure:"action"`
	Duration            string `mapstructure:"duration"`
	CanRejoin           bool   `mapstructure:"can_rejoin"`
	DescriptionTemplate string `mapstructure:"description_template"`
}

// LoadCatalog reads and validates the rule catalog and punishment ladder.
// Any schema violation is a ConfigError; callers treat it as fatal at
// startup rather than running with an inconsistent ladder.
func LoadCatalog(path string) (*rules.Catalog, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &model.ConfigError{Field: "catalog", Reason: fmt.Sprintf("read %s: %v", path, err)}
	}

	var file catalogFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, &model.ConfigError{Field: "catalog", Reason: fmt.Sprintf("decode %s: %v", path, err)}
	}

	ladder := make([]model.LadderEntry, 0, len(file.Ladder))
	for _, e := range file.Ladder {
		entry := model.LadderEntry{
			Threshold:           e.Threshold,
			Action:              model.LadderAction(e.Action),
			CanRejoin:           e.CanRejoin,
			DescriptionTemplate: e.DescriptionTemplate,
		}
		if e.Duration != "" {
			d, err := utils.ParseDuration(e.Duration)
			if err != nil {
				return nil, &model.ConfigError{
					Field:  "general_punishment_ladder",
					Reason: fmt.Sprintf("threshold %d: bad duration %q: %v", e.Threshold, e.Duration, err),
				}
			}
			entry.Duration = d
		}
		ladder = append(ladder, entry)
	}

	return rules.NewCatalog(file.Rules, ladder)
}
