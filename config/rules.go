package config

import (
	"fmt"
	"time"

	"git-actions/internal/action"
	"git-actions/internal/model"
	"git-actions/internal/rules"
)

// buildRule compiles one raw rule spec: event type strings, filters
// (including regex compilation) and actions. All defects fail the load.
func buildRule(spec *ruleSpec, webhookNames map[string]struct{}) (*rules.Rule, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("rule without a name")
	}
	if len(spec.Webhooks) == 0 {
		return nil, fmt.Errorf("rule %s: webhooks must not be empty", spec.Name)
	}
	if len(spec.EventTypes) == 0 {
		return nil, fmt.Errorf("rule %s: event_types must not be empty", spec.Name)
	}
	if len(spec.Actions) == 0 {
		return nil, fmt.Errorf("rule %s: actions must not be empty", spec.Name)
	}

	for _, name := range spec.Webhooks {
		if _, ok := webhookNames[name]; !ok {
			return nil, fmt.Errorf("rule %s: unknown webhook %q", spec.Name, name)
		}
	}

	eventTypes := make(map[model.EventType]struct{}, len(spec.EventTypes))
	for _, s := range spec.EventTypes {
		et, ok := model.ParseEventType(s)
		if !ok {
			return nil, fmt.Errorf("rule %s: unknown event type %q", spec.Name, s)
		}
		eventTypes[et] = struct{}{}
	}

	branches, err := buildFilter(spec.Branches)
	if err != nil {
		return nil, fmt.Errorf("rule %s: branches: %w", spec.Name, err)
	}
	paths, err := buildFilter(spec.Paths)
	if err != nil {
		return nil, fmt.Errorf("rule %s: paths: %w", spec.Name, err)
	}

	actions := make([]action.Action, 0, len(spec.Actions))
	for i, as := range spec.Actions {
		a, err := buildAction(&as)
		if err != nil {
			return nil, fmt.Errorf("rule %s: action %d: %w", spec.Name, i, err)
		}
		actions = append(actions, a)
	}

	return &rules.Rule{
		Name:        spec.Name,
		Description: spec.Description,
		Webhooks:    spec.Webhooks,
		EventTypes:  eventTypes,
		Branches:    branches,
		Paths:       paths,
		Actions:     actions,
	}, nil
}

// buildFilter compiles a filter list. Each item must set exactly one of
// exact, pattern, regex.
func buildFilter(specs []filterSpec) (rules.Filter, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	filter := make(rules.Filter, 0, len(specs))
	for i, fs := range specs {
		set := 0
		for _, v := range []string{fs.Exact, fs.Pattern, fs.Regex} {
			if v != "" {
				set++
			}
		}
		if set != 1 {
			return nil, fmt.Errorf("filter %d must set exactly one of exact, pattern, regex", i)
		}

		switch {
		case fs.Exact != "":
			filter = append(filter, rules.NewExact(fs.Exact))
		case fs.Pattern != "":
			p, err := rules.NewGlob(fs.Pattern)
			if err != nil {
				return nil, err
			}
			filter = append(filter, p)
		default:
			p, err := rules.NewRegex(fs.Regex)
			if err != nil {
				return nil, err
			}
			filter = append(filter, p)
		}
	}
	return filter, nil
}

func buildAction(spec *actionSpec) (action.Action, error) {
	var a action.Action

	if spec.HTTP != nil {
		timeout, err := parseTimeout(spec.HTTP.Timeout)
		if err != nil {
			return a, err
		}
		a.HTTP = &action.HTTPAction{
			Method:  spec.HTTP.Method,
			URL:     spec.HTTP.URL,
			Headers: spec.HTTP.Headers,
			Body:    spec.HTTP.Body,
			Timeout: timeout,
		}
	}
	if spec.Shell != nil {
		timeout, err := parseTimeout(spec.Shell.Timeout)
		if err != nil {
			return a, err
		}
		a.Shell = &action.ShellAction{
			Command:     spec.Shell.Command,
			WorkingDir:  spec.Shell.WorkingDir,
			Environment: spec.Shell.Environment,
			Timeout:     timeout,
		}
	}

	if err := a.Validate(); err != nil {
		return a, err
	}
	return a, nil
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return d, nil
}
