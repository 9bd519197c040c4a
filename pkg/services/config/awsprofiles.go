package config

import (
	"context"
	"fmt"

	"gopkg.in/ini.v1"
)

// ProfileRegistry reads the AWS shared-credentials file so operators can
// see which profiles are available to the provider at startup.
type ProfileRegistry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	HasProfile(ctx context.Context, profile string) (bool, error)
}

type profileRegistry struct {
	cfg *ini.File
}

func NewProfileRegistry(path string) (ProfileRegistry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load credentials file: %w", err)
	}
	return &profileRegistry{cfg: cfg}, nil
}

func (pr *profileRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range pr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (pr *profileRegistry) HasProfile(ctx context.Context, profile string) (bool, error) {
	profiles, err := pr.GetProfiles(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range profiles {
		if p == profile {
			return true, nil
		}
	}
	return false, nil
}
