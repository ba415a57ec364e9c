package pipeline

import (
	"context"
	"fmt"
)

const (
	// IngressNamespace is where the ingress-nginx controller runs.
	IngressNamespace = "ingress-nginx"
	// IngressControllerDeployment is the controller workload to gate on.
	IngressControllerDeployment = "ingress-nginx-controller"
	// IngressAdmissionService backs the validating admission webhook. An
	// Ingress applied before this service has ready endpoints is rejected
	// by the API server, which is exactly the race the webhook polling
	// closes.
	IngressAdmissionService = "ingress-nginx-controller-admission"

	// IngressControllerManifestURL is the upstream ingress-nginx deploy
	// manifest for kind clusters.
	IngressControllerManifestURL = "https://raw.githubusercontent.com/kubernetes/ingress-nginx/controller-v1.12.1/deploy/static/provider/kind/deploy.yaml"
)

// IngressPhase is the installer's observable state.
type IngressPhase string

const (
	IngressSkipped              IngressPhase = "Skipped"
	IngressControllerInstalling IngressPhase = "ControllerInstalling"
	IngressControllerReady      IngressPhase = "ControllerReady"
	IngressControllerTimeout    IngressPhase = "ControllerTimeout"
	IngressWebhookPolling       IngressPhase = "WebhookPolling"
	IngressWebhookReady         IngressPhase = "WebhookReady"
	IngressWebhookTimeout       IngressPhase = "WebhookTimeout"
	IngressApplied              IngressPhase = "IngressApplied"
	IngressApplyFailed          IngressPhase = "IngressApplyFailed"
)

// InstallIngress installs the ingress-nginx controller, waits for the
// controller rollout and for the admission webhook endpoints to populate,
// and only then applies the stack's Ingress manifest. Every fatal branch
// captures diagnostics before returning so an operator can triage without
// rerunning.
//
// Returns the terminal phase alongside any error; phases are also useful to
// the verifier, which skips the ingress-routed candidate when the installer
// was skipped.
func InstallIngress(ctx context.Context, run Runner, observer ClusterObserver, opts Options, ingress *Manifest, p Printers) (IngressPhase, *StageError) {
	if opts.SkipIngress {
		p.Info("Ingress installation skipped (--skip-ingress-install)")
		return IngressSkipped, nil
	}
	if ingress == nil {
		p.Warning("No ingress manifest found, skipping ingress installation")
		return IngressSkipped, nil
	}

	contextName := ContextName(opts.ClusterName)

	p.Progress("Installing ingress-nginx controller...")
	if _, err := run.Run("kubectl", "apply", "-f", IngressControllerManifestURL, "--context", contextName); err != nil {
		return IngressControllerInstalling, fatalf("ingress-installer", "failed to install ingress controller: %w", err)
	}

	p.Progress(fmt.Sprintf("Waiting for ingress controller rollout (timeout %v)...", opts.IngressTimeout))
	if err := observer.WaitForDeploymentRollout(ctx, IngressNamespace, IngressControllerDeployment, opts.IngressTimeout); err != nil {
		CollectIngressDiagnostics(ctx, observer, IngressNamespace, p)
		return IngressControllerTimeout, fatal("ingress-installer", err)
	}
	p.Success("Ingress controller is ready")

	p.Progress(fmt.Sprintf("Waiting for admission webhook endpoints (timeout %v)...", opts.IngressTimeout))
	if err := observer.WaitForEndpointsReady(ctx, IngressNamespace, IngressAdmissionService, opts.IngressTimeout); err != nil {
		CollectIngressDiagnostics(ctx, observer, IngressNamespace, p)
		return IngressWebhookTimeout, fatal("ingress-installer", err)
	}
	p.Success("Admission webhook endpoints are serving")

	if err := applyManifest(run, contextName, *ingress); err != nil {
		CollectIngressDiagnostics(ctx, observer, IngressNamespace, p)
		return IngressApplyFailed, fatal("ingress-installer", err)
	}
	p.Success(fmt.Sprintf("Applied %s", ingress.Name))

	return IngressApplied, nil
}
