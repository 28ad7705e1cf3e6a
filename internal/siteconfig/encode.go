package siteconfig

import (
	"encoding/json"
	"fmt"
)

// ToRaw converts cfg back into the untyped declaration form accepted by
// Build. Building the result yields a value equal to cfg.
func ToRaw(cfg SiteConfig) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal site config: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal site config: %w", err)
	}
	return raw, nil
}
