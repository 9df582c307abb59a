package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/tfischer/inboxpilot/internal/classify"
	"github.com/tfischer/inboxpilot/internal/template"
)

// ValidationError is a fatal configuration error raised at startup.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// RuleConfig is one classification rule as written in the config file.
// Rules are evaluated in file order; the first match wins.
type RuleConfig struct {
	// Name is the category label, e.g. "Work". It doubles as the Gmail
	// label name applied to matching messages.
	Name string `mapstructure:"name" yaml:"name"`

	// Keywords are matched case-insensitively against subject+body.
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`

	// SenderDomains are matched against the sender's domain suffix.
	SenderDomains []string `mapstructure:"sender_domains" yaml:"sender_domains"`

	// SubjectPattern is an optional regular expression matched against the
	// subject (unanchored, case-insensitive).
	SubjectPattern string `mapstructure:"subject_pattern" yaml:"subject_pattern"`

	// ReplyTemplate names a template to send as an automatic reply when
	// this rule matches. Empty means no auto-reply for this category.
	ReplyTemplate string `mapstructure:"reply_template" yaml:"reply_template"`
}

// TemplateConfig is a named subject/body template with {{placeholder}}
// markers.
type TemplateConfig struct {
	Subject string `mapstructure:"subject" yaml:"subject"`
	Body    string `mapstructure:"body" yaml:"body"`
}

// ReplyConfig holds settings for automatic replies.
type ReplyConfig struct {
	// SenderName fills the {{sender_name}} placeholder in reply templates.
	SenderName string `mapstructure:"sender_name" yaml:"sender_name"`
}

// Config is the top-level application configuration.
type Config struct {
	// Query is the Gmail search query used when polling.
	Query string `mapstructure:"query" yaml:"query"`

	// MaxResults caps how many messages one cycle fetches.
	MaxResults int64 `mapstructure:"max_results" yaml:"max_results"`

	// AttachmentsDir is where attachment content is saved. Created on
	// demand.
	AttachmentsDir string `mapstructure:"attachments_dir" yaml:"attachments_dir"`

	Rules     []RuleConfig              `mapstructure:"rules" yaml:"rules"`
	Templates map[string]TemplateConfig `mapstructure:"templates" yaml:"templates"`
	Reply     ReplyConfig               `mapstructure:"reply" yaml:"reply"`

	compiled []classify.Rule
}

// ReplyContextKeys are the placeholder values the orchestrator provides when
// rendering an auto-reply. Reply templates may only reference these; the
// check happens at load time so rendering cannot fail mid-batch for a
// configuration mistake.
var ReplyContextKeys = []string{"original_subject", "sender", "sender_name", "category"}

// DefaultConfigPath returns the default config file location,
// ~/.config/inboxpilot/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "inboxpilot", "config.yaml")
}

// Load reads and validates the configuration at path. A missing file yields
// the built-in defaults; anything else that goes wrong is a
// *ValidationError and should abort startup.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			// No file: run with the built-in rule and template set.
			if err := cfg.compile(); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, &ValidationError{Field: "file", Err: err}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, &ValidationError{Field: "file", Err: err}
	}

	if err := cfg.compile(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-checks the configuration and rebuilds the compiled rule set.
// Callers that mutate a loaded Config, such as applying command-line
// overrides, must call it again before using the result.
func (c *Config) Validate() error {
	return c.compile()
}

// compile validates the configuration and builds the immutable rule set.
func (c *Config) compile() error {
	if c.MaxResults <= 0 {
		return &ValidationError{Field: "max_results", Err: fmt.Errorf("must be positive, got %d", c.MaxResults)}
	}
	if c.AttachmentsDir == "" {
		return &ValidationError{Field: "attachments_dir", Err: fmt.Errorf("must not be empty")}
	}
	if len(c.Rules) == 0 {
		return &ValidationError{Field: "rules", Err: fmt.Errorf("at least one rule is required")}
	}

	c.compiled = make([]classify.Rule, 0, len(c.Rules))
	seen := make(map[string]bool)
	for i, rc := range c.Rules {
		if seen[rc.Name] {
			return &ValidationError{
				Field: fmt.Sprintf("rules[%d]", i),
				Err:   fmt.Errorf("duplicate rule name %q", rc.Name),
			}
		}
		seen[rc.Name] = true

		rule, err := classify.CompileRule(rc.Name, rc.Keywords, rc.SenderDomains, rc.SubjectPattern)
		if err != nil {
			return &ValidationError{Field: fmt.Sprintf("rules[%d]", i), Err: err}
		}
		c.compiled = append(c.compiled, rule)

		if rc.ReplyTemplate != "" {
			if err := c.validateReplyTemplate(rc.ReplyTemplate); err != nil {
				return &ValidationError{Field: fmt.Sprintf("rules[%d].reply_template", i), Err: err}
			}
		}
	}

	return nil
}

func (c *Config) validateReplyTemplate(name string) error {
	tc, ok := c.Templates[name]
	if !ok {
		return fmt.Errorf("references unknown template %q", name)
	}

	allowed := make(map[string]bool, len(ReplyContextKeys))
	for _, k := range ReplyContextKeys {
		allowed[k] = true
	}
	for _, key := range template.Placeholders(template.Template{Name: name, Subject: tc.Subject, Body: tc.Body}) {
		if !allowed[key] {
			return fmt.Errorf("template %q uses placeholder %q not provided for replies (available: %v)",
				name, key, ReplyContextKeys)
		}
	}
	return nil
}

// CompiledRules returns the validated rules in priority order.
func (c *Config) CompiledRules() []classify.Rule {
	return c.compiled
}

// Template returns the named template, or false when it does not exist.
func (c *Config) Template(name string) (template.Template, bool) {
	tc, ok := c.Templates[name]
	if !ok {
		return template.Template{}, false
	}
	return template.Template{Name: name, Subject: tc.Subject, Body: tc.Body}, true
}

// ReplyTemplateFor returns the reply template name configured for the
// category, or empty when the category sends no automatic reply.
func (c *Config) ReplyTemplateFor(category classify.Category) string {
	for _, rc := range c.Rules {
		if classify.Category(rc.Name) == category {
			return rc.ReplyTemplate
		}
	}
	return ""
}
