package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// JobSpec names one batch job of the stack and where its manifest lives
// relative to the manifest directory.
type JobSpec struct {
	Name     string
	JobName  string
	Manifest string
}

// StackJobs is the fixed job order: schema init before data seed. The seed
// job assumes the tables the init job creates.
func StackJobs() []JobSpec {
	return []JobSpec{
		{Name: "database schema init", JobName: "mysql-init", Manifest: InitJobManifest},
		{Name: "database seed", JobName: "mysql-seed", Manifest: SeedJobManifest},
	}
}

// RunJobToCompletion deletes any stale job with the same name, applies the
// job manifest, waits for completion, prints the job's pod logs, and deletes
// the job again. Job specs are immutable, so the pre-delete is what makes
// reruns work; both deletes are best-effort.
//
// A job that fails or times out is advisory, not fatal: the deploy continues
// and the verifier renders the real verdict. An apply rejection is fatal
// because it means the manifest itself is broken.
func RunJobToCompletion(ctx context.Context, run Runner, observer ClusterObserver, opts Options, job JobSpec, p Printers) *StageError {
	contextName := ContextName(opts.ClusterName)
	manifestPath := filepath.Join(opts.ManifestDir, filepath.FromSlash(job.Manifest))

	deleteJob(run, contextName, opts.Namespace, job.JobName)

	p.Progress(fmt.Sprintf("Running %s job...", job.Name))
	if _, err := run.Run("kubectl", "apply", "-f", manifestPath, "--context", contextName); err != nil {
		return fatalf("job-runner", "failed to apply job %s: %w", job.JobName, err)
	}

	completed, err := observer.WaitForJobCompletion(ctx, opts.Namespace, job.JobName, opts.JobTimeout)

	printJobLogs(ctx, observer, opts.Namespace, job.JobName, p)
	deleteJob(run, contextName, opts.Namespace, job.JobName)

	if err != nil {
		return advisoryf("job-runner", "could not watch job %s: %v", job.JobName, err)
	}
	if !completed {
		return advisoryf("job-runner", "job %s did not complete within %v", job.JobName, opts.JobTimeout)
	}

	p.Success(fmt.Sprintf("%s job completed", job.Name))
	return nil
}

func deleteJob(run Runner, contextName, namespace, jobName string) {
	//nolint:errcheck // best-effort cleanup
	run.Run("kubectl", "delete", "job", jobName,
		"-n", namespace, "--context", contextName, "--ignore-not-found=true")
}

func printJobLogs(ctx context.Context, observer ClusterObserver, namespace, jobName string, p Printers) {
	logs, err := observer.JobLogs(ctx, namespace, jobName)
	if err != nil {
		p.Warning(fmt.Sprintf("Could not fetch logs for job %s: %v", jobName, err))
		return
	}
	logs = strings.TrimSpace(logs)
	if logs == "" {
		return
	}
	p.Info(fmt.Sprintf("Logs for job %s:", jobName))
	for _, line := range strings.Split(logs, "\n") {
		p.Info("  " + line)
	}
}
