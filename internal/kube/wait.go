package kube

import (
	"context"
	"fmt"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/wait"
)

// WaitForNodesReady blocks until every node in the cluster reports a Ready
// condition, or the timeout elapses. At least one node must exist.
func (c *Client) WaitForNodesReady(ctx context.Context, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, c.PollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
		if err != nil {
			// Transient API errors are expected while the control plane
			// comes up; keep polling.
			return false, nil
		}
		if len(nodes.Items) == 0 {
			return false, nil
		}
		for _, node := range nodes.Items {
			if !nodeIsReady(&node) {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("nodes not ready within %v: %w", timeout, err)
	}
	return nil
}

func nodeIsReady(node *corev1.Node) bool {
	for _, condition := range node.Status.Conditions {
		if condition.Type == corev1.NodeReady && condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// WaitForDeploymentRollout blocks until the named deployment's rollout is
// complete: the controller has observed the current generation and the
// desired number of replicas is updated, ready, and available.
func (c *Client) WaitForDeploymentRollout(ctx context.Context, namespace, name string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, c.PollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		deployment, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}

		desired := int32(1)
		if deployment.Spec.Replicas != nil {
			desired = *deployment.Spec.Replicas
		}

		status := deployment.Status
		done := status.ObservedGeneration >= deployment.Generation &&
			status.UpdatedReplicas >= desired &&
			status.ReadyReplicas >= desired &&
			status.AvailableReplicas >= desired
		return done, nil
	})
	if err != nil {
		return fmt.Errorf("deployment %s/%s did not roll out within %v: %w", namespace, name, timeout, err)
	}
	return nil
}

// WaitForEndpointsReady blocks until the named service's endpoints carry at
// least one ready address. This is the check that closes the admission
// webhook race: a webhook service with no ready endpoints rejects every
// resource it validates.
func (c *Client) WaitForEndpointsReady(ctx context.Context, namespace, name string, timeout time.Duration) error {
	err := wait.PollUntilContextTimeout(ctx, c.PollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		endpoints, err := c.clientset.CoreV1().Endpoints(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		for _, subset := range endpoints.Subsets {
			if len(subset.Addresses) > 0 {
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("endpoints %s/%s have no ready addresses after %v: %w", namespace, name, timeout, err)
	}
	return nil
}

// WaitForJobCompletion blocks until the named job reports a Complete
// condition, fails, or the timeout elapses. It returns (true, nil) on
// completion and (false, nil) when the job failed or the wait timed out;
// the caller treats both as advisory, never fatal.
func (c *Client) WaitForJobCompletion(ctx context.Context, namespace, name string, timeout time.Duration) (bool, error) {
	failed := false
	err := wait.PollUntilContextTimeout(ctx, c.PollInterval, timeout, true, func(ctx context.Context) (bool, error) {
		job, err := c.clientset.BatchV1().Jobs(namespace).Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return false, nil
		}
		for _, condition := range job.Status.Conditions {
			if condition.Status != corev1.ConditionTrue {
				continue
			}
			switch condition.Type {
			case batchv1.JobComplete:
				return true, nil
			case batchv1.JobFailed:
				failed = true
				return true, nil
			}
		}
		return false, nil
	})
	if err != nil {
		return false, nil
	}
	return !failed, nil
}
