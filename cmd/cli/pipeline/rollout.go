package pipeline

import (
	"context"
	"fmt"
)

// RolloutTarget is a workload expected to reach a completed rollout before
// the pipeline proceeds.
type RolloutTarget struct {
	Name       string
	Deployment string
}

// StackRolloutTargets is the fixed rollout order: database before API. The
// API resolves the database service by DNS at startup and retries its own
// connection, so ordering is the only dependency the pipeline enforces.
func StackRolloutTargets() []RolloutTarget {
	return []RolloutTarget{
		{Name: "MySQL database", Deployment: "mysql"},
		{Name: "clients API", Deployment: "clients-api"},
	}
}

// AwaitRollouts blocks on each target in order. A rollout that does not
// complete within the timeout is fatal: an unready core workload makes the
// rest of the pipeline meaningless.
func AwaitRollouts(ctx context.Context, observer ClusterObserver, opts Options, targets []RolloutTarget, p Printers) *StageError {
	for _, target := range targets {
		p.Progress(fmt.Sprintf("Waiting for %s rollout (timeout %v)...", target.Name, opts.RolloutTimeout))
		if err := observer.WaitForDeploymentRollout(ctx, opts.Namespace, target.Deployment, opts.RolloutTimeout); err != nil {
			return fatal("readiness-gate", err)
		}
		p.Success(fmt.Sprintf("%s rolled out", target.Name))
	}
	return nil
}
