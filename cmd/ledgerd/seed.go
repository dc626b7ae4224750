package main

import (
	"fmt"
	"os"

	goLedger "github.com/MrEthical07/goLedger"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Users []goLedger.SeedUser `yaml:"users"`
}

// loadSeedUsers reads the YAML seed file. An empty path yields the two
// built-in users.
func loadSeedUsers(path string) ([]goLedger.SeedUser, error) {
	if path == "" {
		return goLedger.DefaultSeedUsers(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, u := range f.Users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user %d: username and password are required", i)
		}
	}
	return f.Users, nil
}
