package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// diagnosticsTailLines is how many trailing log lines are echoed inline;
// full logs go to temp files.
const diagnosticsTailLines = 20

// CollectIngressDiagnostics snapshots pod state and container logs for a
// namespace after an ingress failure. Full logs are written to temp files
// and the last few lines of each are echoed inline. Collection is
// best-effort throughout: a diagnostics failure never replaces the error
// that triggered it.
func CollectIngressDiagnostics(ctx context.Context, observer ClusterObserver, namespace string, p Printers) []string {
	pods, err := observer.ListPods(ctx, namespace)
	if err != nil {
		p.Warning(fmt.Sprintf("Could not list pods in %s for diagnostics: %v", namespace, err))
		return nil
	}
	if len(pods) == 0 {
		p.Warning(fmt.Sprintf("No pods found in %s", namespace))
		return nil
	}

	p.Info(fmt.Sprintf("Pods in %s:", namespace))
	for _, pod := range pods {
		p.Info(fmt.Sprintf("  %s  %s", pod.Name, pod.Status.Phase))
	}

	var files []string
	for _, pod := range pods {
		for _, container := range pod.Spec.Containers {
			logs, err := observer.ContainerLogs(ctx, namespace, pod.Name, container.Name)
			if err != nil {
				p.Warning(fmt.Sprintf("Could not fetch logs for %s/%s: %v", pod.Name, container.Name, err))
				continue
			}
			if strings.TrimSpace(logs) == "" {
				continue
			}

			path, err := writeDiagnosticsFile(pod.Name, container.Name, logs)
			if err != nil {
				p.Warning(fmt.Sprintf("Could not write diagnostics file for %s/%s: %v", pod.Name, container.Name, err))
			} else {
				files = append(files, path)
				p.Info(fmt.Sprintf("Full logs for %s/%s saved to %s", pod.Name, container.Name, path))
			}

			p.Info(fmt.Sprintf("Last lines of %s/%s:", pod.Name, container.Name))
			for _, line := range tailLines(logs, diagnosticsTailLines) {
				p.Info("  " + line)
			}
		}
	}
	return files
}

func writeDiagnosticsFile(pod, container, logs string) (string, error) {
	f, err := os.CreateTemp("", fmt.Sprintf("kubestage-%s-%s-*.log", pod, container))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.WriteString(logs); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func tailLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
