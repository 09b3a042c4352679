package creds

import (
	"encoding/json"
	"fmt"
	"os"
)

// RobotCredentials holds the connection details for a Viam robot.
type RobotCredentials struct {
	Address  string `json:"address"`
	EntityID string `json:"entity_id"`
	APIKey   string `json:"api_key"`
}

// Load reads and parses robot credentials from a JSON file. All three
// fields are required; a partially filled file fails here rather than as
// an opaque dial error later.
func Load(path string) (*RobotCredentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}
	var c RobotCredentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing credentials file: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("credentials file %s: %w", path, err)
	}
	return &c, nil
}

func (c *RobotCredentials) validate() error {
	if c.Address == "" {
		return fmt.Errorf("missing address")
	}
	if c.EntityID == "" {
		return fmt.Errorf("missing entity_id")
	}
	if c.APIKey == "" {
		return fmt.Errorf("missing api_key")
	}
	return nil
}
