package config

import (
	"time"

	"git-actions/internal/rules"
)

// APIVersion is the only accepted configuration schema version.
const APIVersion = "git-actions/v1"

// Document kinds.
const (
	KindServer  = "Server"
	KindWebhook = "Webhook"
	KindRules   = "Rules"
)

// Config is everything derived from configuration at startup. It is built
// once and immutable while the service runs.
type Config struct {
	Server   ServerSpec
	Webhooks []Webhook
	Rules    []*rules.Rule

	// TemplateEnv holds only the environment variables referenced by
	// *FromEnv keys; it is the entire `env` visible to templates.
	TemplateEnv map[string]string
}

// ServerSpec is the Server document's spec section.
type ServerSpec struct {
	Host         string
	Port         int
	Logging      LoggingSpec
	Configs      []string // globs naming Webhook and Rules documents
	DrainTimeout time.Duration
}

// LoggingSpec configures the logger.
type LoggingSpec struct {
	Level  string
	Format string // console or json
}

// Webhook is a resolved webhook configuration.
type Webhook struct {
	Name  string
	Path  string
	Kind  string // provider kind; currently "bitbucket"
	Token string // resolved shared secret, empty when none configured
	API   *BitbucketAPI
}

// BitbucketAPI holds resolved provider-API coordinates for enrichment.
type BitbucketAPI struct {
	BaseURL string
	Project string
	Repo    string
	Token   string
}

// --- raw YAML document shapes ---

type metadata struct {
	Name string `yaml:"name"`
}

// probe reads just enough of a document to dispatch on kind.
type probe struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Metadata   metadata `yaml:"metadata"`
}

type webhookDocument struct {
	APIVersion string      `yaml:"apiVersion"`
	Kind       string      `yaml:"kind"`
	Metadata   metadata    `yaml:"metadata"`
	Spec       webhookSpec `yaml:"spec"`
}

type webhookSpec struct {
	Path      string         `yaml:"path"`
	Bitbucket *bitbucketSpec `yaml:"bitbucket"`
}

type bitbucketSpec struct {
	TokenFromEnv string            `yaml:"tokenFromEnv"`
	API          *bitbucketAPISpec `yaml:"api"`
}

type bitbucketAPISpec struct {
	BaseURL string            `yaml:"baseUrl"`
	Project string            `yaml:"project"`
	Repo    string            `yaml:"repo"`
	Auth    bitbucketAuthSpec `yaml:"auth"`
}

type bitbucketAuthSpec struct {
	Type         string `yaml:"type"`
	TokenFromEnv string `yaml:"tokenFromEnv"`
}

type rulesDocument struct {
	APIVersion string    `yaml:"apiVersion"`
	Kind       string    `yaml:"kind"`
	Metadata   metadata  `yaml:"metadata"`
	Spec       rulesSpec `yaml:"spec"`
}

type rulesSpec struct {
	Rules []ruleSpec `yaml:"rules"`
}

type ruleSpec struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Webhooks    []string     `yaml:"webhooks"`
	EventTypes  []string     `yaml:"event_types"`
	Branches    []filterSpec `yaml:"branches"`
	Paths       []filterSpec `yaml:"paths"`
	Actions     []actionSpec `yaml:"actions"`
}

// filterSpec is one filter list item: exactly one key set.
type filterSpec struct {
	Exact   string `yaml:"exact"`
	Pattern string `yaml:"pattern"`
	Regex   string `yaml:"regex"`
}

type actionSpec struct {
	HTTP  *httpActionSpec  `yaml:"http"`
	Shell *shellActionSpec `yaml:"shell"`
}

type httpActionSpec struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
	Timeout string            `yaml:"timeout"`
}

type shellActionSpec struct {
	Command     string            `yaml:"command"`
	WorkingDir  string            `yaml:"working_dir"`
	Environment map[string]string `yaml:"environment"`
	Timeout     string            `yaml:"timeout"`
}
