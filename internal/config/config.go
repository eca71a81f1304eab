// Package config loads the Jira connection settings from the process
// environment. The server refuses to start without complete
// credentials; there is no partially configured mode.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Default custom field ids for Jira Cloud instances. Story points and
// sprint references live in instance-specific custom fields, so both
// are overridable through the environment.
const (
	DefaultStoryPointsField = "customfield_10002"
	DefaultSprintField      = "customfield_10001"
)

// Config holds the Jira connection settings for the server.
type Config struct {
	// URL is the root URL of the Jira instance.
	URL string

	// Username is the account the server authenticates as.
	Username string

	// APIToken is the API token paired with Username.
	APIToken string

	// StoryPointsField is the custom field id carrying story point
	// estimates.
	StoryPointsField string

	// SprintField is the custom field id carrying sprint assignments.
	SprintField string
}

// Load reads the configuration from the environment:
// JIRA_URL, JIRA_USERNAME, JIRA_API_TOKEN (required),
// JIRA_STORY_POINTS_FIELD, JIRA_SPRINT_FIELD (optional).
func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("story_points_field", DefaultStoryPointsField)
	v.SetDefault("sprint_field", DefaultSprintField)

	_ = v.BindEnv("url", "JIRA_URL")
	_ = v.BindEnv("username", "JIRA_USERNAME")
	_ = v.BindEnv("api_token", "JIRA_API_TOKEN")
	_ = v.BindEnv("story_points_field", "JIRA_STORY_POINTS_FIELD")
	_ = v.BindEnv("sprint_field", "JIRA_SPRINT_FIELD")

	cfg := &Config{
		URL:              v.GetString("url"),
		Username:         v.GetString("username"),
		APIToken:         v.GetString("api_token"),
		StoryPointsField: v.GetString("story_points_field"),
		SprintField:      v.GetString("sprint_field"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every required credential is present.
func (c *Config) Validate() error {
	var missing []string
	if c.URL == "" {
		missing = append(missing, "JIRA_URL")
	}
	if c.Username == "" {
		missing = append(missing, "JIRA_USERNAME")
	}
	if c.APIToken == "" {
		missing = append(missing, "JIRA_API_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing Jira credentials in environment: %s", strings.Join(missing, ", "))
	}
	return nil
}
