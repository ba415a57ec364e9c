package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const (
	// ClusterPrefix is the prefix used for all kubestage-managed kind
	// clusters.
	ClusterPrefix = "kubestage-"

	// IngressReadyLabel marks nodes the ingress controller may schedule on.
	IngressReadyLabel = "ingress-ready=true"
)

// FullClusterName returns the cluster name with the kubestage prefix.
func FullClusterName(name string) string {
	if strings.HasPrefix(name, ClusterPrefix) {
		return name
	}
	return ClusterPrefix + name
}

// UserClusterName strips the kubestage prefix from a full cluster name.
func UserClusterName(fullName string) string {
	return strings.TrimPrefix(fullName, ClusterPrefix)
}

// IsManagedCluster reports whether a kind cluster belongs to kubestage.
func IsManagedCluster(name string) bool {
	return strings.HasPrefix(name, ClusterPrefix)
}

// ContextName returns the kubectl context kind registers for a cluster.
func ContextName(name string) string {
	return "kind-" + FullClusterName(name)
}

// ClusterConfig holds the node layout for a new kind cluster.
type ClusterConfig struct {
	Name        string
	WorkerNodes int
	ConfigPath  string
}

// kindConfigTemplate labels the control plane for ingress scheduling and
// maps 80/443 to the host so the ingress controller is reachable from
// outside the cluster.
const kindConfigTemplate = `# kind cluster configuration for the kubestage demo stack
kind: Cluster
apiVersion: kind.x-k8s.io/v1alpha4
nodes:
  - role: control-plane
    kubeadmConfigPatches:
      - |
        kind: InitConfiguration
        nodeRegistration:
          kubeletExtraArgs:
            node-labels: "ingress-ready=true"
    extraPortMappings:
      - containerPort: 80
        hostPort: 80
        protocol: TCP
      - containerPort: 443
        hostPort: 443
        protocol: TCP
{{- range $i := .WorkerRange }}
  - role: worker
{{- end }}
`

// GenerateKindConfig writes the kind cluster configuration file.
func GenerateKindConfig(config ClusterConfig) error {
	tmpl, err := template.New("kindconfig").Parse(kindConfigTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse kind config template: %w", err)
	}

	data := struct {
		WorkerRange []int
	}{
		WorkerRange: make([]int, config.WorkerNodes),
	}

	file, err := os.Create(config.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to create kind config file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close config file: %v\n", closeErr)
		}
	}()

	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("failed to write kind config: %w", err)
	}

	return nil
}

// KindConfigPath returns where the generated kind config is stored.
func KindConfigPath(clusterName string) string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-kind.config.yaml", FullClusterName(clusterName)))
}

// ClusterExists checks whether a kind cluster with the given full name
// already exists.
func ClusterExists(run Runner, fullName string) (bool, error) {
	output, err := run.Run("kind", "get", "clusters")
	if err != nil {
		return false, fmt.Errorf("failed to list kind clusters: %w", err)
	}

	for _, cluster := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		if strings.TrimSpace(cluster) == fullName {
			return true, nil
		}
	}
	return false, nil
}

// CreateKindCluster creates a new kind cluster. The caller is expected to
// have checked for existence; kind itself rejects duplicate names.
func CreateKindCluster(run Runner, config ClusterConfig) error {
	if err := GenerateKindConfig(config); err != nil {
		return err
	}

	err := run.RunAttached("kind", "create", "cluster",
		"--name", FullClusterName(config.Name),
		"--config", config.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to create kind cluster: %w", err)
	}
	return nil
}

// DeleteKindCluster deletes a kind cluster.
func DeleteKindCluster(run Runner, name string) error {
	if err := run.RunAttached("kind", "delete", "cluster", "--name", FullClusterName(name)); err != nil {
		return fmt.Errorf("failed to delete kind cluster: %w", err)
	}
	return nil
}

// ListManagedClusters returns the kubestage-managed kind clusters.
func ListManagedClusters(run Runner) ([]string, error) {
	output, err := run.Run("kind", "get", "clusters")
	if err != nil {
		return nil, fmt.Errorf("failed to list kind clusters: %w", err)
	}

	var managed []string
	for _, cluster := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		trimmed := strings.TrimSpace(cluster)
		if trimmed != "" && IsManagedCluster(trimmed) {
			managed = append(managed, trimmed)
		}
	}
	return managed, nil
}

// SetKubectlContext switches kubectl to the cluster's kind context.
func SetKubectlContext(run Runner, clusterName string) error {
	contextName := ContextName(clusterName)
	if _, err := run.Run("kubectl", "config", "use-context", contextName); err != nil {
		return fmt.Errorf("failed to set kubectl context to %s: %w", contextName, err)
	}
	return nil
}

// LabelNodesForIngress stamps every node with the ingress scheduling label.
// Overwrites so reruns are clean.
func LabelNodesForIngress(run Runner, clusterName string) error {
	_, err := run.Run("kubectl", "label", "nodes", "--all",
		IngressReadyLabel, "--overwrite", "--context", ContextName(clusterName))
	if err != nil {
		return fmt.Errorf("failed to label nodes for ingress: %w", err)
	}
	return nil
}

// EnsureCluster makes sure the named kind cluster exists, creating it if
// absent, and switches the kubectl context to it. Reusing an existing
// cluster is not an error; reruns against a live cluster are expected.
func EnsureCluster(run Runner, clusterName string, workerNodes int, p Printers) error {
	fullName := FullClusterName(clusterName)

	exists, err := ClusterExists(run, fullName)
	if err != nil {
		return err
	}

	if exists {
		p.Info(fmt.Sprintf("Cluster '%s' already exists, reusing it", clusterName))
	} else {
		p.Progress("Creating kind cluster, this may take a few minutes...")
		config := ClusterConfig{
			Name:        clusterName,
			WorkerNodes: workerNodes,
			ConfigPath:  KindConfigPath(clusterName),
		}
		if err := CreateKindCluster(run, config); err != nil {
			return err
		}
		p.Success(fmt.Sprintf("Kind cluster '%s' created", clusterName))
	}

	return SetKubectlContext(run, clusterName)
}

// ValidateClusterName validates a kubestage cluster name.
func ValidateClusterName(name string) error {
	if name == "" {
		return fmt.Errorf("cluster name cannot be empty")
	}

	userName := UserClusterName(name)
	if len(userName) < 1 {
		return fmt.Errorf("cluster name must be at least 1 character long")
	}
	if len(userName) > 50 {
		return fmt.Errorf("cluster name must be less than 50 characters long")
	}

	for _, char := range userName {
		if (char < 'a' || char > 'z') &&
			(char < 'A' || char > 'Z') &&
			(char < '0' || char > '9') &&
			char != '-' && char != '_' {
			return fmt.Errorf("cluster name can only contain alphanumeric characters, hyphens, and underscores")
		}
	}

	if strings.HasPrefix(userName, "-") || strings.HasSuffix(userName, "-") {
		return fmt.Errorf("cluster name cannot start or end with a hyphen")
	}

	return nil
}
