// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/gorse-io/usercf/model"
	"github.com/gorse-io/usercf/model/usercf"
	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config values,
// e.g. USERCF_MODEL_K overrides model.k.
const EnvPrefix = "USERCF"

// Config is the configuration for usercf.
type Config struct {
	Model    ModelConfig    `mapstructure:"model"`
	Fit      FitConfig      `mapstructure:"fit"`
	Output   OutputConfig   `mapstructure:"output"`
	Evaluate EvaluateConfig `mapstructure:"evaluate"`
}

// ModelConfig holds hyper-parameters of the model.
type ModelConfig struct {
	K              int     `mapstructure:"k" validate:"gt=0"`
	Shrink         float64 `mapstructure:"shrink" validate:"gte=0"`
	AmpFactor      float64 `mapstructure:"amp_factor" validate:"gt=0"`
	Iterations     int     `mapstructure:"iterations" validate:"gte=0"`
	LearningRate   float64 `mapstructure:"learning_rate" validate:"gt=0"`
	Regularization float64 `mapstructure:"regularization" validate:"gte=0"`
	DefaultMean    float64 `mapstructure:"default_mean"`
}

// Params converts the model section to hyper-parameters.
func (c *ModelConfig) Params() model.Params {
	return model.Params{
		model.K:           c.K,
		model.Shrink:      c.Shrink,
		model.AmpFactor:   c.AmpFactor,
		model.NEpochs:     c.Iterations,
		model.Lr:          c.LearningRate,
		model.Reg:         c.Regularization,
		model.DefaultMean: c.DefaultMean,
	}
}

type FitConfig struct {
	Jobs    int `mapstructure:"jobs" validate:"gte=1"`
	Verbose int `mapstructure:"verbose" validate:"gte=0"`
}

func (c *FitConfig) GetFitConfig() *usercf.FitConfig {
	return usercf.NewFitConfig().SetJobs(c.Jobs).SetVerbose(c.Verbose)
}

type OutputConfig struct {
	Precision int     `mapstructure:"precision" validate:"gte=-1,lte=17"`
	Clamp     bool    `mapstructure:"clamp"`
	ClampMin  float64 `mapstructure:"clamp_min"`
	ClampMax  float64 `mapstructure:"clamp_max"`
}

// Format renders a prediction with Precision significant digits. Predictions
// are clamped to [ClampMin, ClampMax] only if Clamp is set.
func (c *OutputConfig) Format(prediction float64) string {
	if c.Clamp {
		prediction = math.Max(c.ClampMin, math.Min(c.ClampMax, prediction))
	}
	return strconv.FormatFloat(prediction, 'g', c.Precision, 64)
}

type EvaluateConfig struct {
	Folds int   `mapstructure:"folds" validate:"gte=2"`
	Seed  int64 `mapstructure:"seed"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			K:              190,
			Shrink:         10,
			AmpFactor:      1.3,
			Iterations:     8,
			LearningRate:   0.01,
			Regularization: 0.02,
			DefaultMean:    3.5,
		},
		Fit: FitConfig{
			Jobs:    1,
			Verbose: 1,
		},
		Output: OutputConfig{
			Precision: 6,
			ClampMin:  1,
			ClampMax:  5,
		},
		Evaluate: EvaluateConfig{
			Folds: 5,
		},
	}
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [model]
	v.SetDefault("model.k", defaultConfig.Model.K)
	v.SetDefault("model.shrink", defaultConfig.Model.Shrink)
	v.SetDefault("model.amp_factor", defaultConfig.Model.AmpFactor)
	v.SetDefault("model.iterations", defaultConfig.Model.Iterations)
	v.SetDefault("model.learning_rate", defaultConfig.Model.LearningRate)
	v.SetDefault("model.regularization", defaultConfig.Model.Regularization)
	v.SetDefault("model.default_mean", defaultConfig.Model.DefaultMean)
	// [fit]
	v.SetDefault("fit.jobs", defaultConfig.Fit.Jobs)
	v.SetDefault("fit.verbose", defaultConfig.Fit.Verbose)
	// [output]
	v.SetDefault("output.precision", defaultConfig.Output.Precision)
	v.SetDefault("output.clamp", defaultConfig.Output.Clamp)
	v.SetDefault("output.clamp_min", defaultConfig.Output.ClampMin)
	v.SetDefault("output.clamp_max", defaultConfig.Output.ClampMax)
	// [evaluate]
	v.SetDefault("evaluate.folds", defaultConfig.Evaluate.Folds)
	v.SetDefault("evaluate.seed", defaultConfig.Evaluate.Seed)
}

// LoadConfig loads configuration from a TOML file. An empty path loads
// defaults only. Environment variables take precedence over the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefault(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	var conf Config
	if err := v.Unmarshal(&conf, func(dc *mapstructure.DecoderConfig) {
		dc.ErrorUnused = true
	}); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		output := sl.Current().Interface().(OutputConfig)
		if output.Clamp && output.ClampMin > output.ClampMax {
			sl.ReportError(output.ClampMin, "ClampMin", "clamp_min", "ltefield", "ClampMax")
		}
	}, OutputConfig{})
	return validate.Struct(config)
}
