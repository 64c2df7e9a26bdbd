package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// expandConfigGlobs resolves the Server document's config globs. Relative
// globs are evaluated against the Server document's directory. Matches are
// sorted so load order is deterministic.
func expandConfigGlobs(baseDir string, globs []string) ([]string, error) {
	var files []string
	for _, g := range globs {
		if !filepath.IsAbs(g) {
			g = filepath.Join(baseDir, g)
		}
		matches, err := doublestar.FilepathGlob(g)
		if err != nil {
			return nil, fmt.Errorf("invalid config glob %q: %w", g, err)
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// documentLoader accumulates Webhook and Rules documents and runs the
// cross-document validation once everything is read.
type documentLoader struct {
	cfg       *Config
	names     map[string]map[string]string // kind -> metadata.name -> file
	ruleSpecs []ruleSpec
}

func newDocumentLoader(cfg *Config) *documentLoader {
	return &documentLoader{
		cfg: cfg,
		names: map[string]map[string]string{
			KindWebhook: {},
			KindRules:   {},
		},
	}
}

// loadFile parses one configuration document and dispatches on its kind.
func (dl *documentLoader) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var p probe
	if err := yaml.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if p.APIVersion != APIVersion {
		return fmt.Errorf("%s: unsupported apiVersion %q", path, p.APIVersion)
	}

	switch p.Kind {
	case KindWebhook, KindRules:
		if err := dl.recordName(p.Kind, p.Metadata.Name, path); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%s: unknown kind %q", path, p.Kind)
	}

	switch p.Kind {
	case KindWebhook:
		var doc webhookDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		return dl.addWebhook(path, &doc)
	default:
		var doc rulesDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		dl.ruleSpecs = append(dl.ruleSpecs, doc.Spec.Rules...)
		return nil
	}
}

func (dl *documentLoader) recordName(kind, name, path string) error {
	if name == "" {
		return fmt.Errorf("%s: metadata.name is required", path)
	}
	if prev, dup := dl.names[kind][name]; dup {
		return fmt.Errorf("%s: duplicate %s name %q (already defined in %s)", path, kind, name, prev)
	}
	dl.names[kind][name] = path
	return nil
}

// addWebhook resolves one Webhook document, including its environment
// references.
func (dl *documentLoader) addWebhook(path string, doc *webhookDocument) error {
	spec := doc.Spec
	if spec.Path == "" {
		return fmt.Errorf("%s: webhook %s: spec.path is required", path, doc.Metadata.Name)
	}
	if spec.Bitbucket == nil {
		return fmt.Errorf("%s: webhook %s: a provider section (bitbucket) is required", path, doc.Metadata.Name)
	}

	wh := Webhook{
		Name: doc.Metadata.Name,
		Path: spec.Path,
		Kind: "bitbucket",
	}

	where := fmt.Sprintf("webhook %s", wh.Name)
	if env := spec.Bitbucket.TokenFromEnv; env != "" {
		token, err := dl.cfg.resolveEnv(env, where)
		if err != nil {
			return err
		}
		wh.Token = token
	}

	if api := spec.Bitbucket.API; api != nil {
		if api.BaseURL == "" || api.Project == "" || api.Repo == "" {
			return fmt.Errorf("%s: webhook %s: api requires baseUrl, project and repo", path, wh.Name)
		}
		token, err := dl.cfg.resolveEnv(api.Auth.TokenFromEnv, where+" api auth")
		if err != nil {
			return err
		}
		wh.API = &BitbucketAPI{
			BaseURL: api.BaseURL,
			Project: api.Project,
			Repo:    api.Repo,
			Token:   token,
		}
	}

	dl.cfg.Webhooks = append(dl.cfg.Webhooks, wh)
	return nil
}

// finish runs the validation that needs every document loaded: path
// uniqueness, reserved paths, and rule compilation against the known
// webhook names.
func (dl *documentLoader) finish() error {
	paths := map[string]string{}
	webhookNames := map[string]struct{}{}
	for _, wh := range dl.cfg.Webhooks {
		if wh.Path == "/health" || wh.Path == "/metrics" {
			return fmt.Errorf("webhook %s: path %s collides with a reserved route", wh.Name, wh.Path)
		}
		if prev, dup := paths[wh.Path]; dup {
			return fmt.Errorf("webhook %s: path %s already used by webhook %s", wh.Name, wh.Path, prev)
		}
		paths[wh.Path] = wh.Name
		webhookNames[wh.Name] = struct{}{}
	}

	ruleNames := map[string]struct{}{}
	for i := range dl.ruleSpecs {
		rule, err := buildRule(&dl.ruleSpecs[i], webhookNames)
		if err != nil {
			return err
		}
		if _, dup := ruleNames[rule.Name]; dup {
			return fmt.Errorf("duplicate rule name %q", rule.Name)
		}
		ruleNames[rule.Name] = struct{}{}
		dl.cfg.Rules = append(dl.cfg.Rules, rule)
	}
	return nil
}
