// Package kube is the narrow cluster-observation adapter used by the
// deployment pipeline. Mutations (apply, delete, port-forward) go through
// kubectl; everything the pipeline needs to observe (node readiness,
// rollout completion, webhook endpoints, job completion, pod logs) is read
// through a client-go clientset so the waits can be driven by structured
// status instead of scraped CLI output.
package kube

import (
	"fmt"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

// DefaultPollInterval is the interval between condition checks for all
// bounded waits.
const DefaultPollInterval = 5 * time.Second

// Client wraps a Kubernetes clientset with the read-side operations the
// pipeline performs against a single cluster.
type Client struct {
	clientset kubernetes.Interface

	// PollInterval is the interval between condition checks. Tests lower it.
	PollInterval time.Duration
}

// New returns a Client backed by the given clientset.
func New(clientset kubernetes.Interface) *Client {
	return &Client{
		clientset:    clientset,
		PollInterval: DefaultPollInterval,
	}
}

// NewForContext builds a Client for a named kubeconfig context using the
// standard kubeconfig loading rules (KUBECONFIG, ~/.kube/config).
func NewForContext(contextName string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	overrides := &clientcmd.ConfigOverrides{CurrentContext: contextName}

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig for context %s: %w", contextName, err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	return New(clientset), nil
}
