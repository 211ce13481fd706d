// Package config loads the repository settings from sources.toml.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/pop-os/debrepbuild/pkg/debian"
)

// Repo is the repository-wide configuration.
type Repo struct {
	Archive          string                `toml:"archive"`
	Version          string                `toml:"version"`
	Origin           string                `toml:"origin"`
	Label            string                `toml:"label"`
	Email            string                `toml:"email"`
	Bugs             string                `toml:"bugs"`
	DefaultComponent debian.Component      `toml:"default_component"`
	Architectures    []debian.Architecture `toml:"architectures"`
	SigningKey       string                `toml:"signing_key"`
}

// Load parses the TOML file at path and validates it. The default
// component defaults to main; an architecture outside the supported table
// is a fatal configuration error.
func Load(path string) (*Repo, error) {
	var repo Repo
	if _, err := toml.DecodeFile(path, &repo); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := repo.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return &repo, nil
}

func (r *Repo) validate() error {
	for field, value := range map[string]string{
		"archive": r.Archive,
		"version": r.Version,
		"origin":  r.Origin,
		"label":   r.Label,
		"email":   r.Email,
	} {
		if value == "" {
			return fmt.Errorf("%s must be set", field)
		}
	}
	if r.DefaultComponent == "" {
		r.DefaultComponent = "main"
	}
	if len(r.Architectures) == 0 {
		return fmt.Errorf("architectures must list at least one architecture")
	}
	for _, arch := range r.Architectures {
		if _, err := debian.BinaryDir(arch); err != nil {
			return err
		}
	}
	return nil
}
