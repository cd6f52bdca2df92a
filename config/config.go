/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/clidecoder/promptforge/agents/analyzer"
	"github.com/clidecoder/promptforge/policy"
	"gopkg.in/yaml.v3"
)

// DefaultMarkerLabel is applied to issues once they have been analyzed.
const DefaultMarkerLabel = "clide-analyzed"

// Settings is the application configuration loaded from YAML.
type Settings struct {
	Server                Server                `yaml:"server"`
	GitHub                GitHub                `yaml:"github"`
	Claude                Claude                `yaml:"claude"`
	Generation            Generation            `yaml:"generation"`
	Repositories          []Repository          `yaml:"repositories"`
	Prompts               Prompts               `yaml:"prompts"`
	Outputs               Outputs               `yaml:"outputs"`
	Features              Features              `yaml:"features"`
	CronAnalysis          CronAnalysis          `yaml:"cron_analysis"`
	AutoAcceptInvitations AutoAcceptInvitations `yaml:"auto_accept_invitations"`
}

type Server struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	WebhookPath string `yaml:"webhook_path"`
}

// GitHub holds API credentials. Either Token or the App fields are used.
type GitHub struct {
	Token          string `yaml:"token"`
	WebhookSecret  string `yaml:"webhook_secret"`
	AppID          int64  `yaml:"app_id,omitempty"`
	InstallationID int64  `yaml:"installation_id,omitempty"`
	PrivateKeyPath string `yaml:"private_key_path,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty" jsonschema:"description=GitHub Enterprise API URL"`
}

type Claude struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Generation selects and tunes the text-generation backend.
type Generation struct {
	Backend         string `yaml:"backend" jsonschema:"enum=cli,enum=anthropic,enum=openai,enum=gemini"`
	Model           string `yaml:"model,omitempty"`
	APIKey          string `yaml:"api_key,omitempty"`
	BaseURL         string `yaml:"base_url,omitempty"`
	Command         string `yaml:"command,omitempty"`
	TimeoutSeconds  int    `yaml:"timeout_seconds,omitempty"`
	IntervalSeconds int    `yaml:"interval_seconds,omitempty"`
	ProjectID       string `yaml:"project_id,omitempty"`
	Region          string `yaml:"region,omitempty"`
}

type Repository struct {
	Name      string             `yaml:"name" jsonschema:"required"`
	Enabled   bool               `yaml:"enabled"`
	LocalPath string             `yaml:"local_path,omitempty"`
	Events    []string           `yaml:"events"`
	Settings  RepositorySettings `yaml:"settings"`
}

// UnmarshalYAML defaults Enabled, ApplyLabels and PostAnalysisComments to
// true.
func (r *Repository) UnmarshalYAML(n *yaml.Node) error {
	type plain Repository
	p := plain{
		Enabled:  true,
		Settings: RepositorySettings{ApplyLabels: true, PostAnalysisComments: true},
	}
	if err := n.Decode(&p); err != nil {
		return err
	}
	*r = Repository(p)
	return nil
}

// Listens reports whether the repository has kind in its event list.
func (r *Repository) Listens(kind string) bool {
	return slices.Contains(r.Events, kind)
}

// RepositorySettings toggles the side effects applied after analysis.
type RepositorySettings struct {
	ApplyLabels          bool `yaml:"apply_labels"`
	PostAnalysisComments bool `yaml:"post_analysis_comments"`
	AutoCloseInvalid     bool `yaml:"auto_close_invalid"`
}

type Prompts struct {
	BaseDir   string                       `yaml:"base_dir"`
	Templates map[string]map[string]string `yaml:"templates"`
}

type Outputs struct {
	BaseDir     string            `yaml:"base_dir"`
	Bucket      string            `yaml:"bucket,omitempty" jsonschema:"description=Write records to this GCS bucket instead of the local filesystem"`
	Directories map[string]string `yaml:"directories"`
}

// Directory returns the configured directory for a record kind.
func (o Outputs) Directory(kind string) string {
	if d := o.Directories[kind]; d != "" {
		return d
	}
	return kind
}

type Features struct {
	SignatureValidation bool `yaml:"signature_validation"`
	PayloadLogging      bool `yaml:"payload_logging"`
}

type CronAnalysis struct {
	Enabled                   bool   `yaml:"enabled"`
	MinAgeMinutes             int    `yaml:"min_age_minutes"`
	MaxIssuesPerRepo          int    `yaml:"max_issues_per_repo"`
	DelayBetweenIssuesSeconds int    `yaml:"delay_between_issues"`
	AnalyzedLabel             string `yaml:"analyzed_label"`
}

type AutoAcceptInvitations struct {
	Enabled              bool            `yaml:"enabled"`
	CheckIntervalMinutes int             `yaml:"check_interval_minutes"`
	DelaySeconds         int             `yaml:"delay_between_invitations"`
	Criteria             policy.Criteria `yaml:"criteria"`
	PostAcceptance       PostAcceptance  `yaml:"post_acceptance"`
}

type PostAcceptance struct {
	CloneRepository bool     `yaml:"clone_repository"`
	CloneBaseDir    string   `yaml:"clone_base_dir"`
	UpdateConfig    bool     `yaml:"update_config"`
	RegisterWebhook bool     `yaml:"register_webhook"`
	WebhookURL      string   `yaml:"webhook_url"`
	WebhookEvents   []string `yaml:"webhook_events"`
	ReloadCommand   []string `yaml:"reload_command"`
}

// Default returns the settings used for any key a file leaves unset.
func Default() *Settings {
	return &Settings{
		Server: Server{Host: "0.0.0.0", Port: 9000, WebhookPath: "/github-webhook"},
		Claude: Claude{Model: "claude-sonnet-4-5", MaxTokens: 4000},
		Generation: Generation{
			Backend:         "cli",
			TimeoutSeconds:  int(analyzer.DefaultCLITimeout / time.Second),
			IntervalSeconds: int(analyzer.DefaultInterval / time.Second),
		},
		Prompts: Prompts{BaseDir: "./prompts"},
		Outputs: Outputs{
			BaseDir: "./outputs",
			Directories: map[string]string{
				"issues":        "issues",
				"pull_requests": "pull_requests",
				"reviews":       "reviews",
				"workflows":     "workflows",
				"pushes":        "pushes",
				"releases":      "releases",
				"forks":         "forks",
				"deployments":   "deployments",
				"stars":         "stars",
				"watches":       "watches",
				"generic":       "generic_events",
			},
		},
		Features: Features{SignatureValidation: true},
		CronAnalysis: CronAnalysis{
			Enabled:                   true,
			MinAgeMinutes:             30,
			MaxIssuesPerRepo:          10,
			DelayBetweenIssuesSeconds: 2,
			AnalyzedLabel:             DefaultMarkerLabel,
		},
		AutoAcceptInvitations: AutoAcceptInvitations{
			Enabled:              true,
			CheckIntervalMinutes: 10,
			DelaySeconds:         1,
			Criteria:             policy.Criteria{RepositoryPatterns: []string{"*"}},
			PostAcceptance: PostAcceptance{
				CloneRepository: true,
				CloneBaseDir:    "/var/lib/promptforge/repos",
				UpdateConfig:    true,
				RegisterWebhook: true,
				WebhookURL:      "https://clidecoder.com/hooks/github-webhook",
				WebhookEvents:   []string{"issues", "pull_request", "pull_request_review"},
				ReloadCommand:   []string{"systemctl", "restart", "github-webhook"},
			},
		},
	}
}

// Load reads settings from path.
func Load(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	s, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML on top of Default. A scalar written entirely as
// "${VAR}" is replaced with the environment value; unset variables are left
// as written. Other text, including a bare "$", is taken literally.
func Parse(b []byte) (*Settings, error) {
	s := Default()
	var doc yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(b)).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		return nil, err
	}
	substituteEnv(&doc)
	if err := doc.Decode(s); err != nil {
		return nil, err
	}
	return s, nil
}

var envRef = regexp.MustCompile(`^\$\{([A-Za-z_][A-Za-z0-9_]*)\}$`)

// substituteEnv rewrites scalar values after parsing, so an environment
// value is always a single string and never YAML structure.
func substituteEnv(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode {
		m := envRef.FindStringSubmatch(n.Value)
		if m == nil {
			return
		}
		if v, ok := os.LookupEnv(m[1]); ok {
			// Cleared so numeric and boolean fields still resolve.
			n.Value, n.Tag, n.Style = v, "", 0
		}
		return
	}
	for _, c := range n.Content {
		substituteEnv(c)
	}
}

// Repository returns the entry named fullName.
func (s *Settings) Repository(fullName string) (*Repository, bool) {
	for i := range s.Repositories {
		if s.Repositories[i].Name == fullName {
			return &s.Repositories[i], true
		}
	}
	return nil, false
}

// MarkerLabel is the label that marks an issue as analyzed.
func (s *Settings) MarkerLabel() string {
	if s.CronAnalysis.AnalyzedLabel != "" {
		return s.CronAnalysis.AnalyzedLabel
	}
	return DefaultMarkerLabel
}

// AnalyzerConfig maps the generation settings onto the analyzer's. For the
// anthropic backend the claude block fills in an empty model or API key.
func (s *Settings) AnalyzerConfig() analyzer.Config {
	g := s.Generation
	cfg := analyzer.Config{
		Backend:   g.Backend,
		Model:     g.Model,
		MaxTokens: s.Claude.MaxTokens,
		APIKey:    g.APIKey,
		BaseURL:   g.BaseURL,
		Command:   g.Command,
		Timeout:   time.Duration(g.TimeoutSeconds) * time.Second,
		Interval:  time.Duration(g.IntervalSeconds) * time.Second,
		ProjectID: g.ProjectID,
		Region:    g.Region,
	}
	if cfg.Backend == "anthropic" {
		if cfg.Model == "" {
			cfg.Model = s.Claude.Model
		}
		if cfg.APIKey == "" {
			cfg.APIKey = s.Claude.APIKey
		}
	}
	return cfg
}
