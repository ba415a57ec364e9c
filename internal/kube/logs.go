package kube

import (
	"context"
	"fmt"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ListPods returns all pods in the given namespace.
func (c *Client) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods in namespace %s: %w", namespace, err)
	}
	return pods.Items, nil
}

// ContainerLogs fetches the logs of a single container in a pod.
func (c *Client) ContainerLogs(ctx context.Context, namespace, pod, container string) (string, error) {
	req := c.clientset.CoreV1().Pods(namespace).GetLogs(pod, &corev1.PodLogOptions{Container: container})
	raw, err := req.Do(ctx).Raw()
	if err != nil {
		return "", fmt.Errorf("failed to fetch logs for %s/%s container %s: %w", namespace, pod, container, err)
	}
	return string(raw), nil
}

// JobLogs fetches the combined logs of all pods spawned by the named job,
// using the job-name label the job controller stamps on its pods.
func (c *Client) JobLogs(ctx context.Context, namespace, jobName string) (string, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: fmt.Sprintf("job-name=%s", jobName),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list pods for job %s/%s: %w", namespace, jobName, err)
	}
	if len(pods.Items) == 0 {
		return "", nil
	}

	var out strings.Builder
	for _, pod := range pods.Items {
		req := c.clientset.CoreV1().Pods(namespace).GetLogs(pod.Name, &corev1.PodLogOptions{})
		raw, err := req.Do(ctx).Raw()
		if err != nil {
			// Log capture is best-effort; a pod whose logs are gone is not
			// worth failing over.
			continue
		}
		out.WriteString(string(raw))
	}
	return out.String(), nil
}
