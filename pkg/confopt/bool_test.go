// SPDX-License-Identifier: GPL-3.0-or-later

package confopt

import (
	"encoding/json"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexBool_UnmarshalYAML(t *testing.T) {
	tests := map[string]struct {
		input     string
		want      FlexBool
		wantError bool
	}{
		"native_true":     {input: "value: true", want: true},
		"native_false":    {input: "value: false", want: false},
		"yes_lower":       {input: "value: yes", want: true},
		"no_upper":        {input: "value: NO", want: false},
		"y_lower":         {input: "value: y", want: true},
		"on_mixed":        {input: "value: On", want: true},
		"off_upper":       {input: "value: OFF", want: false},
		"t_upper":         {input: "value: T", want: true},
		"number_0":        {input: "value: 0", want: false},
		"number_1":        {input: "value: 1", want: true},
		"string_1":        {input: "value: '1'", want: true},
		"quoted_false_dq": {input: "value: \"false\"", want: false},
		"whitespace_yes":  {input: "value: ' yes '", want: true},
		"flow_style_yes":  {input: "{value: yes}", want: true},
		"multiline":       {input: "value: |\n  yes", want: true},

		"invalid_string":   {input: "value: maybe", wantError: true},
		"invalid_number_2": {input: "value: 2", wantError: true},
		"invalid_neg":      {input: "value: -1", wantError: true},
		"empty_string":     {input: "value: ''", wantError: true},
		"partial_true":     {input: "value: tru", wantError: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var s struct {
				Value FlexBool `yaml:"value"`
			}

			err := yaml.Unmarshal([]byte(test.input), &s)

			if test.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, s.Value)
		})
	}
}

func TestFlexBool_JSON(t *testing.T) {
	tests := map[string]struct {
		input     string
		want      FlexBool
		wantError bool
	}{
		"bool":          {input: `{"value": true}`, want: true},
		"string yes":    {input: `{"value": "yes"}`, want: true},
		"number 0":      {input: `{"value": 0}`, want: false},
		"invalid value": {input: `{"value": "nope"}`, wantError: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			var s struct {
				Value FlexBool `json:"value"`
			}

			err := json.Unmarshal([]byte(test.input), &s)

			if test.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, s.Value)

			bs, err := json.Marshal(s.Value)
			require.NoError(t, err)
			assert.Equal(t, map[bool]string{true: "true", false: "false"}[bool(test.want)], string(bs))
		})
	}
}

func TestFlexBool_JSONSchema(t *testing.T) {
	s := FlexBool(false).JSONSchema()

	require.Len(t, s.OneOf, 3)
	assert.Equal(t, "boolean", s.OneOf[0].Type)
	assert.Equal(t, "string", s.OneOf[1].Type)
	assert.Equal(t, false, s.Default)

	seen := make(map[any]bool)
	for _, v := range s.OneOf[1].Enum {
		assert.Falsef(t, seen[v], "duplicate enum value '%v'", v)
		seen[v] = true

		_, err := parseFlexBool(v)
		assert.NoErrorf(t, err, "enum value '%v'", v)
	}
	for _, v := range []string{"yes", "On", "OFF", "1", "t"} {
		assert.Truef(t, seen[v], "enum misses '%s'", v)
	}
}
