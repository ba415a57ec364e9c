package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables recognized by ApplyEnvOverrides. Each one is
// optional; flags take precedence over the environment, the environment
// over defaults.
const (
	EnvClusterName    = "KUBESTAGE_CLUSTER_NAME"
	EnvNamespace      = "KUBESTAGE_NAMESPACE"
	EnvManifestDir    = "KUBESTAGE_MANIFEST_DIR"
	EnvRolloutTimeout = "KUBESTAGE_ROLLOUT_TIMEOUT"
	EnvIngressTimeout = "KUBESTAGE_INGRESS_TIMEOUT"
	EnvJobTimeout     = "KUBESTAGE_JOB_TIMEOUT"
	EnvSkipIngress    = "KUBESTAGE_SKIP_INGRESS"
)

// Options holds the full configuration for a deploy run.
type Options struct {
	// ClusterName is the user-facing cluster name; the kubestage- prefix is
	// added when talking to kind.
	ClusterName string
	// Namespace is where the demo stack lives.
	Namespace string
	// ManifestDir is the directory containing the stack manifests.
	ManifestDir string
	// WorkerNodes is how many worker nodes a newly created cluster gets.
	// Ignored when the cluster already exists.
	WorkerNodes int

	// NodeTimeout bounds the wait for all nodes to report Ready.
	NodeTimeout time.Duration
	// RolloutTimeout bounds each workload rollout wait. Elapsing is fatal.
	RolloutTimeout time.Duration
	// IngressTimeout bounds both the controller readiness wait and the
	// admission webhook endpoint polling. Elapsing is fatal.
	IngressTimeout time.Duration
	// JobTimeout bounds each one-shot job completion wait. Elapsing is
	// advisory, never fatal.
	JobTimeout time.Duration

	// SkipIngress turns the Ingress Installer stage into a no-op.
	SkipIngress bool

	// IngressLocalPort and ServiceLocalPort are the local ends of the smoke
	// test tunnels. Both are owned exclusively by the verifier while it runs.
	IngressLocalPort int
	ServiceLocalPort int
	// APIPathPrefix is the path prefix the Ingress routes to the API, used
	// for the primary (ingress-routed) base URL.
	APIPathPrefix string
}

// DefaultOptions returns the options a bare `kubestage deploy` runs with.
func DefaultOptions() Options {
	return Options{
		ClusterName:      "demo",
		Namespace:        "clients-demo",
		ManifestDir:      "manifests",
		WorkerNodes:      1,
		NodeTimeout:      300 * time.Second,
		RolloutTimeout:   300 * time.Second,
		IngressTimeout:   600 * time.Second,
		JobTimeout:       120 * time.Second,
		IngressLocalPort: 8080,
		ServiceLocalPort: 18080,
		APIPathPrefix:    "/api",
	}
}

// ApplyEnvOverrides folds KUBESTAGE_* environment variables into the
// options. Duration values accept either Go duration syntax ("5m") or a
// bare number of seconds ("300").
func (o *Options) ApplyEnvOverrides() error {
	if v := os.Getenv(EnvClusterName); v != "" {
		o.ClusterName = v
	}
	if v := os.Getenv(EnvNamespace); v != "" {
		o.Namespace = v
	}
	if v := os.Getenv(EnvManifestDir); v != "" {
		o.ManifestDir = v
	}
	if v := os.Getenv(EnvSkipIngress); v != "" {
		skip, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", EnvSkipIngress, v, err)
		}
		o.SkipIngress = skip
	}

	for _, override := range []struct {
		env    string
		target *time.Duration
	}{
		{EnvRolloutTimeout, &o.RolloutTimeout},
		{EnvIngressTimeout, &o.IngressTimeout},
		{EnvJobTimeout, &o.JobTimeout},
	} {
		v := os.Getenv(override.env)
		if v == "" {
			continue
		}
		d, err := parseTimeout(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", override.env, v, err)
		}
		*override.target = d
	}

	return nil
}

// parseTimeout accepts "300" (seconds) or any time.ParseDuration string.
func parseTimeout(v string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(v); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("timeout must be positive")
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}
	return d, nil
}

// Validate rejects options no stage can work with.
func (o Options) Validate() error {
	if err := ValidateClusterName(o.ClusterName); err != nil {
		return err
	}
	if o.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty")
	}
	if o.ManifestDir == "" {
		return fmt.Errorf("manifest directory cannot be empty")
	}
	if o.IngressLocalPort == o.ServiceLocalPort {
		return fmt.Errorf("ingress and service tunnel ports must differ")
	}
	return nil
}
