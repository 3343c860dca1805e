// Package document renders stored records with both the canonical "id" key
// and the "_id" alias that older clients read.
package document

import (
	"encoding/json"
	"fmt"
)

// AliasKey is the duplicate identifier key written next to "id".
const AliasKey = "_id"

// MarshalWithAlias marshals v (which must encode to a JSON object) and adds
// "_id" holding id. Pass a type without a MarshalJSON method to avoid
// recursion, usually a local "type plain T" conversion.
func MarshalWithAlias(v interface{}, id string) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("document is not a JSON object: %w", err)
	}
	alias, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}
	fields[AliasKey] = alias
	return json.Marshal(fields)
}
