package pipeline

import (
	"fmt"
	"os"
)

// DestroyOptions holds the configuration for cluster destruction.
type DestroyOptions struct {
	Name string
}

// Destroy deletes a kubestage-managed kind cluster and its generated config
// files. Destroying a cluster that does not exist is not an error. The
// caller is responsible for confirming the action first.
func Destroy(run Runner, opts DestroyOptions, p Printers) error {
	if err := ValidateClusterName(opts.Name); err != nil {
		return err
	}

	exists, err := ClusterExists(run, FullClusterName(opts.Name))
	if err != nil {
		return fmt.Errorf("failed to check if cluster exists: %w", err)
	}
	if !exists {
		p.Warning(fmt.Sprintf("Cluster '%s' not found", opts.Name))
		p.Info("Use 'kubestage clusters list' to see available clusters")
		return nil
	}

	p.Step(1, fmt.Sprintf("Destroying cluster '%s'", opts.Name))
	p.Progress("This may take a few minutes...")
	if err := DeleteKindCluster(run, opts.Name); err != nil {
		return err
	}
	p.Success(fmt.Sprintf("Cluster '%s' destroyed", opts.Name))

	p.Step(2, "Cleaning up configuration files")
	configPath := KindConfigPath(opts.Name)
	if err := os.Remove(configPath); err != nil && !os.IsNotExist(err) {
		p.Warning(fmt.Sprintf("Could not remove %s: %v", configPath, err))
	} else {
		p.Success("Configuration files cleaned up")
	}

	p.Step(3, "Verifying cluster removal")
	if exists, err := ClusterExists(run, FullClusterName(opts.Name)); err != nil {
		p.Warning(fmt.Sprintf("Could not verify cluster removal: %v", err))
	} else if exists {
		return fmt.Errorf("cluster still exists after deletion attempt")
	} else {
		p.Success("Cluster removal verified")
	}

	return nil
}
