// SPDX-License-Identifier: GPL-3.0-or-later

package confopt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// FlexBool is a boolean that also accepts the spellings people put in hand-written
// configuration files: yes/no, y/n, on/off, t/f, 1/0 (any case, quoted or not).
type FlexBool bool

func (b FlexBool) Bool() bool { return bool(b) }

func (b *FlexBool) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	v, err := parseFlexBool(raw)
	if err != nil {
		return err
	}
	*b = FlexBool(v)
	return nil
}

func (b FlexBool) MarshalYAML() (any, error) {
	return bool(b), nil
}

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := parseFlexBool(raw)
	if err != nil {
		return err
	}
	*b = FlexBool(v)
	return nil
}

func (b FlexBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(bool(b))
}

// JSONSchema describes every spelling the unmarshalers accept.
func (FlexBool) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{
			{Type: "boolean"},
			{Type: "string", Enum: flexBoolSpellings()},
			{Type: "integer", Enum: []any{0, 1}},
		},
		Default: false,
	}
}

func flexBoolSpellings() []any {
	var enum []any
	seen := make(map[string]bool)
	for _, s := range []string{"true", "false", "yes", "no", "y", "n", "on", "off", "t", "f", "1", "0"} {
		for _, v := range []string{s, strings.ToUpper(s[:1]) + s[1:], strings.ToUpper(s)} {
			if !seen[v] {
				seen[v] = true
				enum = append(enum, v)
			}
		}
	}
	return enum
}

func parseFlexBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		return parseFlexBoolString(v)
	case int:
		return parseFlexBoolInt(int64(v))
	case int64:
		return parseFlexBoolInt(v)
	case uint64:
		if v > 1 {
			return false, fmt.Errorf("invalid boolean value '%d'", v)
		}
		return v == 1, nil
	case float64:
		if v != 0 && v != 1 {
			return false, fmt.Errorf("invalid boolean value '%v'", v)
		}
		return v == 1, nil
	case nil:
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value of type %T", raw)
	}
}

func parseFlexBoolInt(v int64) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("invalid boolean value '%d'", v)
	}
}

func parseFlexBoolString(s string) (bool, error) {
	v := strings.TrimSpace(s)
	v = strings.Trim(v, `"'`)
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "y", "on", "t", "1":
		return true, nil
	case "false", "no", "n", "off", "f", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean value '%s'", s)
	}
}
