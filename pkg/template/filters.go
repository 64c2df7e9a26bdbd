package template

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"
)

func init() {
	if err := pongo2.RegisterFilter("json_encode", filterJSONEncode); err != nil {
		panic(err)
	}
	// pongo2 ships a Django-style rune slice; actions need byte-prefix
	// semantics for truncating commit hashes and similar values.
	if err := pongo2.ReplaceFilter("slice", filterSlice); err != nil {
		panic(err)
	}
}

// filterJSONEncode emits the JSON literal of the input value, so templated
// bodies can embed lists and objects without hand-quoting.
func filterJSONEncode(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	data, err := json.Marshal(in.Interface())
	if err != nil {
		return nil, &pongo2.Error{Sender: "filter:json_encode", OrigError: err}
	}
	return pongo2.AsSafeValue(string(data)), nil
}

// filterSlice returns a byte range of the input string. The parameter is
// either an end index (`slice:8`) or a `start:end` pair (`slice:"2:8"`);
// out-of-range indexes clamp instead of failing.
func filterSlice(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	s := in.String()

	start, end := 0, len(s)
	switch {
	case param == nil:
	case param.IsInteger():
		end = param.Integer()
	case param.IsString():
		spec := param.String()
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) == 1 {
			if n, err := strconv.Atoi(parts[0]); err == nil {
				end = n
			}
		} else {
			if parts[0] != "" {
				if n, err := strconv.Atoi(parts[0]); err == nil {
					start = n
				}
			}
			if parts[1] != "" {
				if n, err := strconv.Atoi(parts[1]); err == nil {
					end = n
				}
			}
		}
	}

	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start > end {
		start = end
	}
	return pongo2.AsValue(s[start:end]), nil
}
