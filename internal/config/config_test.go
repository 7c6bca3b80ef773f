package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.6, cfg.Engine.ContentWeight)
	assert.Equal(t, 0.35, cfg.Engine.CollabWeight)
	assert.Equal(t, 0.05, cfg.Engine.SemanticWeight)
	assert.Equal(t, 0.05, cfg.Engine.DiversityStrength)
	assert.Equal(t, 10, cfg.Engine.TopKCourses)
	assert.Equal(t, 10, cfg.Engine.TopKSponsors)
	assert.Equal(t, 5, cfg.Engine.TopKStudents)
	assert.Equal(t, 5, cfg.Engine.TopKTeachers)
	assert.True(t, cfg.Engine.UseRetrieval)
	assert.Equal(t, 200, cfg.Engine.RetrievalNeighbors)
	assert.Equal(t, 150, cfg.Engine.RetrievalPoolSize)
	assert.Equal(t, 0.0, cfg.Engine.BanditEpsilon)
	assert.Equal(t, 3, cfg.Engine.BanditExploreK)
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "content weight above one",
			mutate:  func(c *Config) { c.Engine.ContentWeight = 1.5 },
			wantErr: true,
		},
		{
			name:    "negative diversity strength",
			mutate:  func(c *Config) { c.Engine.DiversityStrength = -0.1 },
			wantErr: true,
		},
		{
			name:    "zero top-k courses",
			mutate:  func(c *Config) { c.Engine.TopKCourses = 0 },
			wantErr: true,
		},
		{
			name:    "unknown datasource mode",
			mutate:  func(c *Config) { c.DataSource.Mode = "cassandra" },
			wantErr: true,
		},
		{
			name:    "epsilon above one",
			mutate:  func(c *Config) { c.Engine.BanditEpsilon = 2.0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadUsesDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Engine, cfg.Engine)
	assert.Equal(t, "auto", cfg.DataSource.Mode)
}
