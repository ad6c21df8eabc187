// SPDX-License-Identifier: GPL-3.0-or-later

package confload

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Schema returns the JSON schema of the configuration document.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	s := r.Reflect(&Config{})
	s.Title = "RabbitMQ monitor configuration"

	return json.MarshalIndent(s, "", "  ")
}
