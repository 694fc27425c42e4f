package app

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aixasz/AixaszSampleProject/internal/auth/service"
)

// defaultSeed provisions the sample clients and the demo user when no seed
// file is configured.
//
//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Clients []seedClient `yaml:"clients"`
	Users   []seedUser   `yaml:"users"`
}

type seedClient struct {
	ID           string   `yaml:"client_id"`
	Secret       string   `yaml:"client_secret"`
	DisplayName  string   `yaml:"display_name"`
	Confidential *bool    `yaml:"confidential"`
	GrantTypes   []string `yaml:"grant_types"`
	Scopes       []string `yaml:"scopes"`
}

type seedUser struct {
	Username string   `yaml:"username"`
	Email    string   `yaml:"email"`
	Password string   `yaml:"password"`
	Roles    []string `yaml:"roles"`
}

// LoadSeed reads a YAML seed file. An empty path yields the built-in seed.
func LoadSeed(path string) (service.Seed, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return service.Seed{}, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = b
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (service.Seed, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return service.Seed{}, fmt.Errorf("failed to parse seed: %w", err)
	}

	var seed service.Seed
	for _, c := range f.Clients {
		confidential := true
		if c.Confidential != nil {
			confidential = *c.Confidential
		}
		seed.Clients = append(seed.Clients, service.NewClient{
			ID:           c.ID,
			DisplayName:  c.DisplayName,
			Confidential: confidential,
			GrantTypes:   c.GrantTypes,
			Scopes:       c.Scopes,
			Secret:       c.Secret,
		})
	}
	for _, u := range f.Users {
		seed.Users = append(seed.Users, service.NewUser{
			Username: u.Username,
			Email:    u.Email,
			Password: u.Password,
			Roles:    u.Roles,
		})
	}
	return seed, nil
}
