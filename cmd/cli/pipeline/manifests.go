package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ApplyBucket orders manifests into the three apply phases: the namespace
// goes strictly first, the ingress is deferred until the ingress controller
// and its admission webhook are confirmed ready, and everything else is
// applied in between with no required relative order.
type ApplyBucket int

const (
	BucketNamespace ApplyBucket = iota
	BucketWorkload
	BucketDeferred
)

// Manifest is one declarative resource file of the demo stack.
type Manifest struct {
	Name   string
	Path   string
	Bucket ApplyBucket
}

// Well-known manifest file names within the manifest directory. Job
// manifests live under jobs/ and are handled by the Job Runner, not the
// applier.
const (
	NamespaceManifest = "00-namespace.yaml"
	IngressManifest   = "70-ingress.yaml"

	InitJobManifest = "jobs/mysql-init-job.yaml"
	SeedJobManifest = "jobs/mysql-seed-job.yaml"
)

// StackManifests enumerates the stack's resource manifests in the given
// directory, bucketed by apply phase. Files are discovered rather than
// hardcoded so the kit can grow without code changes; only the namespace
// and ingress names are special.
func StackManifests(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest directory %s: %w", dir, err)
	}

	var manifests []Manifest
	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry.Name()) {
			continue
		}
		manifests = append(manifests, Manifest{
			Name:   entry.Name(),
			Path:   filepath.Join(dir, entry.Name()),
			Bucket: bucketFor(entry.Name()),
		})
	}

	sort.Slice(manifests, func(i, j int) bool { return manifests[i].Name < manifests[j].Name })
	return manifests, nil
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func bucketFor(name string) ApplyBucket {
	switch name {
	case NamespaceManifest:
		return BucketNamespace
	case IngressManifest:
		return BucketDeferred
	default:
		return BucketWorkload
	}
}

// PlanApply splits manifests into the ordered apply plan: the namespace
// manifest (nil if absent), the unordered workload set, and the deferred
// ingress manifest (nil if absent).
func PlanApply(manifests []Manifest) (namespace *Manifest, workloads []Manifest, ingress *Manifest) {
	for i := range manifests {
		m := manifests[i]
		switch m.Bucket {
		case BucketNamespace:
			namespace = &m
		case BucketDeferred:
			ingress = &m
		default:
			workloads = append(workloads, m)
		}
	}
	return namespace, workloads, ingress
}

// ApplyManifests applies the namespace manifest first, then every workload
// manifest. A missing namespace manifest is a warning, not an error: the
// namespace may already exist or be managed elsewhere. Any apply rejection
// is fatal; no partial-apply rollback is attempted.
func ApplyManifests(run Runner, contextName string, namespace *Manifest, workloads []Manifest, p Printers) *StageError {
	if namespace != nil {
		if err := applyManifest(run, contextName, *namespace); err != nil {
			return fatal("apply-manifests", err)
		}
		p.Info(fmt.Sprintf("Applied %s", namespace.Name))
	} else {
		p.Warning("No namespace manifest found, continuing without it")
	}

	for _, m := range workloads {
		if err := applyManifest(run, contextName, m); err != nil {
			return fatal("apply-manifests", err)
		}
		p.Info(fmt.Sprintf("Applied %s", m.Name))
	}

	return nil
}

func applyManifest(run Runner, contextName string, m Manifest) error {
	if _, err := run.Run("kubectl", "apply", "-f", m.Path, "--context", contextName); err != nil {
		return fmt.Errorf("failed to apply %s: %w", m.Name, err)
	}
	return nil
}
