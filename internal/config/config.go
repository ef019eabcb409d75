package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Fetching struct {
		IntervalMinutes int     `yaml:"interval_minutes"`
		TimeoutSeconds  int     `yaml:"timeout_seconds"`
		HostReqPerSec   float64 `yaml:"host_req_per_sec"`
		HostBurst       int     `yaml:"host_burst"`
	} `yaml:"fetching"`

	Sources struct {
		JustJoin struct {
			Enabled bool   `yaml:"enabled"`
			City    string `yaml:"city"`
			MaxJobs int    `yaml:"max_jobs"`
		} `yaml:"justjoin"`

		NoFluff struct {
			Enabled bool   `yaml:"enabled"`
			Region  string `yaml:"region"`
			MaxJobs int    `yaml:"max_jobs"`
		} `yaml:"nofluff"`

		EmailAlerts struct {
			Enabled     bool     `yaml:"enabled"`
			IMAPHost    string   `yaml:"imap_host"`
			IMAPPort    int      `yaml:"imap_port"`
			Username    string   `yaml:"username"`
			Mailbox     string   `yaml:"mailbox"`
			SenderAllow []string `yaml:"sender_allow"`
			// Substrings an anchor href must contain to count as a
			// job link, e.g. "/jobs/view/", "/offers/".
			LinkMarkers []string `yaml:"link_markers"`
		} `yaml:"email_alerts"`
	} `yaml:"sources"`

	Matching struct {
		// Jobs must score strictly above this to survive filtering.
		ScoreThreshold int `yaml:"score_threshold"`
		MaxResults     int `yaml:"max_results"`
	} `yaml:"matching"`

	Limits struct {
		DailyRefreshes int `yaml:"daily_refreshes"`
		DailyVacancies int `yaml:"daily_vacancies"`
	} `yaml:"limits"`

	Telegram struct {
		Enabled bool `yaml:"enabled"`
		// The bot token lives in the OS keychain under this account
		// name, never in this file.
		KeyringAccount string `yaml:"keyring_account"`
	} `yaml:"telegram"`

	Retention struct {
		ArchiveAfterDays int `yaml:"archive_after_days"`
		DeleteAfterDays  int `yaml:"delete_after_days"`
	} `yaml:"retention"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
