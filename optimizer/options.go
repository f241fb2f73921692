// Copyright 2024 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package optimizer

import (
	"io/ioutil"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"

	"github.com/dolthub/queryplancore/catalog"
)

// DeploymentConfig is the process-wide, rarely-changed tuning surface for
// the optimizer (coordinator-level knobs, not per-query session state),
// loaded once at startup from a TOML file the way the teacher's server
// loads its listener/auth configuration.
type DeploymentConfig struct {
	Optimizer OptimizerConfig `toml:"optimizer"`
}

// OptimizerConfig holds deployment-wide defaults and ceilings that bound
// what a session is allowed to override.
type OptimizerConfig struct {
	// MaxAnalysisIterations bounds how many times a caller may re-run the
	// pipeline over the same plan before giving up (mirrors the teacher's
	// maxAnalysisIterations cap surfaced by ErrMaxAnalysisIters).
	MaxAnalysisIterations int `toml:"max_analysis_iterations"`
	// DefaultPipelineName names the rule sequence used when a caller doesn't
	// build a custom Analyzer via Builder.
	DefaultPipelineName string `toml:"default_pipeline"`
}

// DefaultDeploymentConfig mirrors what LoadDeploymentConfig returns when
// no file is present, so a bare Analyzer still has sane ceilings.
func DefaultDeploymentConfig() DeploymentConfig {
	return DeploymentConfig{Optimizer: OptimizerConfig{
		MaxAnalysisIterations: 8,
		DefaultPipelineName:   "default",
	}}
}

// LoadDeploymentConfig reads and decodes a TOML deployment config file.
func LoadDeploymentConfig(path string) (DeploymentConfig, error) {
	cfg := DefaultDeploymentConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DeploymentConfig{}, errors.Wrapf(err, "loading deployment config from %s", path)
	}
	return cfg, nil
}

// SessionDefaults is the YAML-sourced baseline for the flat boolean
// session-property map spec §6.1 requires (enableDynamicFiltering,
// skipRedundantSort, ...), overridable per-connection by the surrounding
// server. Grounded on the teacher's config-file-driven server defaults,
// expressed here with yaml.v2 since the catalog.Session properties are a
// flat string-keyed map rather than TOML's table-oriented shape.
type SessionDefaults struct {
	BoolProperties map[string]bool `yaml:"bool_properties"`
}

// DefaultSessionDefaults matches spec §6.1's "at minimum" property list,
// each defaulted to its conservative (disabled) value.
func DefaultSessionDefaults() SessionDefaults {
	return SessionDefaults{BoolProperties: map[string]bool{
		catalog.EnableDynamicFiltering:     false,
		catalog.SkipRedundantSort:          false,
		catalog.OptimizeTopNRowNumber:      false,
		catalog.ForceSingleNodeOutput:      false,
		catalog.DistributedIndexJoinEnabled: false,
		catalog.ScaleWriters:               false,
		catalog.RedistributeWrites:         false,
		catalog.ColocatedJoinEnabled:       false,
		catalog.PreferStreamingOperators:   false,
		catalog.DistributedSortEnabled:     false,
	}}
}

// LoadSessionDefaults reads and decodes a YAML session-defaults file,
// merging onto DefaultSessionDefaults so an incomplete file still leaves
// every well-known property set.
func LoadSessionDefaults(path string) (SessionDefaults, error) {
	defaults := DefaultSessionDefaults()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return SessionDefaults{}, errors.Wrapf(err, "reading session defaults from %s", path)
	}
	var overrides SessionDefaults
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return SessionDefaults{}, errors.Wrapf(err, "parsing session defaults from %s", path)
	}
	for k, v := range overrides.BoolProperties {
		defaults.BoolProperties[k] = v
	}
	return defaults, nil
}

// StaticSession is a catalog.Session backed by a fixed property map,
// suitable for tests and for callers that resolve session state once up
// front rather than per-property.
type StaticSession struct {
	Properties map[string]any
}

// NewStaticSession seeds a StaticSession from SessionDefaults.
func NewStaticSession(defaults SessionDefaults) *StaticSession {
	props := make(map[string]any, len(defaults.BoolProperties))
	for k, v := range defaults.BoolProperties {
		props[k] = v
	}
	return &StaticSession{Properties: props}
}

func (s *StaticSession) Property(name string) (any, bool) {
	v, ok := s.Properties[name]
	return v, ok
}

func (s *StaticSession) BoolProperty(name string) bool {
	v, ok := s.Properties[name]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

var _ catalog.Session = (*StaticSession)(nil)
