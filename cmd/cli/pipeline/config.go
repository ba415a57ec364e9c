package pipeline

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("cluster_name", validateClusterNameField)
	_ = validate.RegisterValidation("dir", validateDirField)
}

// FileConfig is the optional YAML configuration a deploy can be driven by,
// as an alternative to flags and environment variables.
type FileConfig struct {
	Cluster struct {
		Name    string `yaml:"name" validate:"omitempty,cluster_name"`
		Workers int    `yaml:"workers" validate:"gte=0,lte=10"`
	} `yaml:"cluster"`

	Stack struct {
		Namespace   string `yaml:"namespace"`
		ManifestDir string `yaml:"manifest-dir" validate:"omitempty,dir"`
	} `yaml:"stack"`

	Timeouts struct {
		Rollout string `yaml:"rollout"`
		Ingress string `yaml:"ingress"`
		Job     string `yaml:"job"`
	} `yaml:"timeouts"`

	SkipIngress bool `yaml:"skip-ingress"`
}

// LoadConfigFromYAML loads, parses, and validates a deploy configuration
// file, then folds it over the given options. Empty fields leave the
// corresponding option untouched.
func LoadConfigFromYAML(filePath string, opts *Options) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read configuration file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse configuration file: %w", err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.Cluster.Name != "" {
		opts.ClusterName = cfg.Cluster.Name
	}
	if cfg.Cluster.Workers > 0 {
		opts.WorkerNodes = cfg.Cluster.Workers
	}
	if cfg.Stack.Namespace != "" {
		opts.Namespace = cfg.Stack.Namespace
	}
	if cfg.Stack.ManifestDir != "" {
		opts.ManifestDir = cfg.Stack.ManifestDir
	}
	if cfg.SkipIngress {
		opts.SkipIngress = true
	}

	if cfg.Timeouts.Rollout != "" {
		d, err := parseTimeout(cfg.Timeouts.Rollout)
		if err != nil {
			return fmt.Errorf("invalid rollout timeout: %w", err)
		}
		opts.RolloutTimeout = d
	}
	if cfg.Timeouts.Ingress != "" {
		d, err := parseTimeout(cfg.Timeouts.Ingress)
		if err != nil {
			return fmt.Errorf("invalid ingress timeout: %w", err)
		}
		opts.IngressTimeout = d
	}
	if cfg.Timeouts.Job != "" {
		d, err := parseTimeout(cfg.Timeouts.Job)
		if err != nil {
			return fmt.Errorf("invalid job timeout: %w", err)
		}
		opts.JobTimeout = d
	}

	return nil
}

func validateClusterNameField(fl validator.FieldLevel) bool {
	return ValidateClusterName(fl.Field().String()) == nil
}

func validateDirField(fl validator.FieldLevel) bool {
	info, err := os.Stat(fl.Field().String())
	return err == nil && info.IsDir()
}
