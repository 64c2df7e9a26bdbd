package template

import (
	"encoding/json"
	"fmt"

	"github.com/flosch/pongo2/v6"

	"git-actions/internal/model"
)

func init() {
	// Templates render raw strings for shell commands and JSON bodies;
	// HTML autoescaping would corrupt both.
	pongo2.SetAutoescape(false)
}

// Context carries everything a template may reference: the JSON-shaped
// view of the event (payload included) and the restricted environment map.
type Context struct {
	Event map[string]any
	Env   map[string]string
}

// NewContext builds the render context for one event. Only the environment
// variables named by the configuration's *FromEnv keys are exposed.
func NewContext(ev *model.Event, env map[string]string) (Context, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return Context{}, fmt.Errorf("serialize event: %w", err)
	}

	var view map[string]any
	if err := json.Unmarshal(data, &view); err != nil {
		return Context{}, fmt.Errorf("build event view: %w", err)
	}
	if view["changed_files"] == nil {
		view["changed_files"] = []any{}
	}

	if env == nil {
		env = map[string]string{}
	}
	return Context{Event: view, Env: env}, nil
}

// Render evaluates one template string against the context. Rendering is a
// pure function of (template, event, env). Any compile or execution problem
// is returned as an error; there is no silent passthrough.
func Render(tmpl string, c Context) (string, error) {
	t, err := pongo2.FromString(tmpl)
	if err != nil {
		return "", fmt.Errorf("template compile: %w", err)
	}

	out, err := t.Execute(pongo2.Context{
		"event": c.Event,
		"env":   c.Env,
	})
	if err != nil {
		return "", fmt.Errorf("template render: %w", err)
	}
	return out, nil
}

// RenderMap renders every key and value of a map. The first failure aborts.
func RenderMap(m map[string]string, c Context) (map[string]string, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		rk, err := Render(k, c)
		if err != nil {
			return nil, err
		}
		rv, err := Render(v, c)
		if err != nil {
			return nil, err
		}
		out[rk] = rv
	}
	return out, nil
}
