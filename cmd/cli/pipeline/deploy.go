package pipeline

import (
	"context"
	"fmt"
)

// Deps bundles the pipeline's injectable seams. NewDeps wires the real
// implementations; tests swap in fakes.
type Deps struct {
	Run      Runner
	Observer ObserverFactory
	Tunnel   TunnelOpener
}

// NewDeps returns the production wiring.
func NewDeps() Deps {
	return Deps{
		Run:      NewExecRunner(),
		Observer: DefaultObserverFactory,
		Tunnel:   OpenTunnel,
	}
}

// Deploy runs the full bring-up: prerequisites, cluster, manifests, rollout
// gates, ingress, jobs, then the end-to-end smoke test. Fatal stage errors
// abort; advisory ones are reported and the pipeline continues.
func Deploy(ctx context.Context, deps Deps, opts Options, p Printers) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	p.Step(1, "Checking prerequisites")
	if err := CheckPrerequisites(deps.Run); err != nil {
		return err
	}
	p.Success("All required tools are available")

	p.Step(2, "Provisioning kind cluster")
	if err := EnsureCluster(deps.Run, opts.ClusterName, opts.WorkerNodes, p); err != nil {
		return err
	}
	if err := LabelNodesForIngress(deps.Run, opts.ClusterName); err != nil {
		return err
	}

	observer, err := deps.Observer(ContextName(opts.ClusterName))
	if err != nil {
		return fmt.Errorf("failed to build cluster client: %w", err)
	}

	p.Progress(fmt.Sprintf("Waiting for cluster nodes (timeout %v)...", opts.NodeTimeout))
	if err := observer.WaitForNodesReady(ctx, opts.NodeTimeout); err != nil {
		return fmt.Errorf("cluster nodes never became ready: %w", err)
	}
	p.Success("All nodes are ready")

	p.Step(3, "Applying stack manifests")
	manifests, err := StackManifests(opts.ManifestDir)
	if err != nil {
		return err
	}
	namespace, workloads, ingress := PlanApply(manifests)
	if stageErr := ApplyManifests(deps.Run, ContextName(opts.ClusterName), namespace, workloads, p); stageErr != nil {
		return handleStageError(stageErr, p)
	}

	p.Step(4, "Waiting for workload rollouts")
	if stageErr := AwaitRollouts(ctx, observer, opts, StackRolloutTargets(), p); stageErr != nil {
		return handleStageError(stageErr, p)
	}

	p.Step(5, "Installing ingress")
	phase, stageErr := InstallIngress(ctx, deps.Run, observer, opts, ingress, p)
	if stageErr != nil {
		if err := handleStageError(stageErr, p); err != nil {
			return err
		}
	}

	p.Step(6, "Running database jobs")
	for _, job := range StackJobs() {
		if stageErr := RunJobToCompletion(ctx, deps.Run, observer, opts, job, p); stageErr != nil {
			if err := handleStageError(stageErr, p); err != nil {
				return err
			}
		}
	}

	p.Step(7, "Verifying deployed endpoints")
	guard := newTunnelGuard()
	targets := VerifyCandidates(opts, phase)
	if stageErr := VerifyEndpoints(deps.Run, deps.Tunnel, guard, targets, p); stageErr != nil {
		return handleStageError(stageErr, p)
	}

	p.Success(fmt.Sprintf("Demo stack is up in namespace %s on cluster %s", opts.Namespace, FullClusterName(opts.ClusterName)))
	return nil
}

// handleStageError applies the severity contract: fatal errors propagate,
// advisory ones are printed and swallowed so the pipeline can continue.
func handleStageError(stageErr *StageError, p Printers) error {
	switch stageErr.Severity {
	case SeverityAdvisory:
		p.Warning(fmt.Sprintf("%s: %v (continuing)", stageErr.Stage, stageErr.Err))
		return nil
	case SeverityIgnored:
		return nil
	default:
		return stageErr
	}
}
