package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modguard/config"
	"modguard/model"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalog(t, `
general_punishment_ladder:
  - threshold: 1
    action: mute
    duration: 15m
    description_template: "Violation #{count}: muted for {duration}"
  - threshold: 2
    action: mute
    duration: 3h
  - threshold: 3
    action: remove_temporary
    can_rejoin: true
rules:
  - id: "7"
    text: "No off-topic content"
    action_type: general_violation
  - id: "12"
    text: "Nickname must match account name"
    action_type: specific_action
    actions:
      - type: monitor_nickname_compliance
        reason_template: "Comply within {days} days"
        deadline_days: 30
`)

	catalog, err := config.LoadCatalog(path)
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.Len())
	assert.Equal(t, 3, catalog.Ladder().MaxThreshold())

	rule, err := catalog.Lookup("12")
	require.NoError(t, err)
	require.Len(t, rule.Actions, 1)
	assert.Equal(t, model.ActionMonitorNickname, rule.Actions[0].Kind)
	assert.Equal(t, 30, rule.Actions[0].DeadlineDays)
}

func TestLoadCatalogLadderGapFails(t *testing.T) {
	path := writeCatalog(t, `
general_punishment_ladder:
  - threshold: 1
    action: mute
    duration: 15m
  - threshold: 2
    action: mute
    duration: 3h
  - threshold: 4
    action: ban_permanent
rules:
  - id: "1"
    text: "Be respectful"
    action_type: general_violation
`)

	_, err := config.LoadCatalog(path)
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadCatalogDayDurations(t *testing.T) {
	path := writeCatalog(t, `
general_punishment_ladder:
  - threshold: 1
    action: remove_temporary
    duration: 7d
    can_rejoin: true
rules:
  - id: "1"
    text: "Be respectful"
    action_type: general_violation
`)

	catalog, err := config.LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 7*24*60*60, int(catalog.Ladder().TierFor(1).Duration.Seconds()))
}

func TestLoadCatalogBadDurationFails(t *testing.T) {
	path := writeCatalog(t, `
general_punishment_ladder:
  - threshold: 1
    action: mute
    duration: soon
rules: []
`)

	_, err := config.LoadCatalog(path)
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadCatalogMissingFileFails(t *testing.T) {
	_, err := config.LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml"))
	var cfgErr *model.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
