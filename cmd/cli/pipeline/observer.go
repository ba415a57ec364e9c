package pipeline

import (
	"context"
	"time"

	corev1 "k8s.io/api/core/v1"

	"github.com/kubestage/kubestage/internal/kube"
)

// ClusterObserver is the read-side view of the cluster the pipeline waits
// on. *kube.Client implements it; tests substitute fakes.
type ClusterObserver interface {
	WaitForNodesReady(ctx context.Context, timeout time.Duration) error
	WaitForDeploymentRollout(ctx context.Context, namespace, name string, timeout time.Duration) error
	WaitForEndpointsReady(ctx context.Context, namespace, name string, timeout time.Duration) error
	WaitForJobCompletion(ctx context.Context, namespace, name string, timeout time.Duration) (bool, error)
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
	ContainerLogs(ctx context.Context, namespace, pod, container string) (string, error)
	JobLogs(ctx context.Context, namespace, jobName string) (string, error)
}

var _ ClusterObserver = (*kube.Client)(nil)

// ObserverFactory builds a ClusterObserver for a kubectl context. The
// default talks to the real cluster; tests inject fakes.
type ObserverFactory func(contextName string) (ClusterObserver, error)

// DefaultObserverFactory returns the client-go backed observer.
func DefaultObserverFactory(contextName string) (ClusterObserver, error) {
	return kube.NewForContext(contextName)
}
