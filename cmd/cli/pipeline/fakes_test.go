package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// fakeRunner records every invocation and answers from a table of canned
// responses matched by command prefix.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []string
	responses map[string]fakeResponse
}

type fakeResponse struct {
	output string
	err    error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{responses: make(map[string]fakeResponse)}
}

func (r *fakeRunner) respond(prefix, output string) {
	r.responses[prefix] = fakeResponse{output: output}
}

func (r *fakeRunner) fail(prefix string, err error) {
	r.responses[prefix] = fakeResponse{err: err}
}

func (r *fakeRunner) record(name string, args []string) string {
	call := name + " " + strings.Join(args, " ")
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	return call
}

func (r *fakeRunner) lookup(call string) fakeResponse {
	for prefix, resp := range r.responses {
		if strings.HasPrefix(call, prefix) {
			return resp
		}
	}
	return fakeResponse{}
}

func (r *fakeRunner) Run(name string, args ...string) ([]byte, error) {
	resp := r.lookup(r.record(name, args))
	return []byte(resp.output), resp.err
}

func (r *fakeRunner) RunAttached(name string, args ...string) error {
	return r.lookup(r.record(name, args)).err
}

func (r *fakeRunner) Start(name string, args ...string) (Process, error) {
	resp := r.lookup(r.record(name, args))
	if resp.err != nil {
		return nil, resp.err
	}
	return &fakeProcess{}, nil
}

func (r *fakeRunner) callsWithPrefix(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []string
	for _, call := range r.calls {
		if strings.HasPrefix(call, prefix) {
			matched = append(matched, call)
		}
	}
	return matched
}

type fakeProcess struct {
	mu     sync.Mutex
	killed bool
}

func (p *fakeProcess) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killed = true
	return nil
}

func (p *fakeProcess) wasKilled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// fakeObserver satisfies ClusterObserver with programmable outcomes.
type fakeObserver struct {
	nodesErr    error
	rolloutErrs map[string]error
	endpointErr error

	jobCompleted bool
	jobErr       error

	pods    []corev1.Pod
	podsErr error
	logs    string
	jobLogs string

	rolloutCalls  []string
	endpointCalls []string
	jobCalls      []string
}

func (o *fakeObserver) WaitForNodesReady(ctx context.Context, timeout time.Duration) error {
	return o.nodesErr
}

func (o *fakeObserver) WaitForDeploymentRollout(ctx context.Context, namespace, name string, timeout time.Duration) error {
	key := namespace + "/" + name
	o.rolloutCalls = append(o.rolloutCalls, key)
	if o.rolloutErrs != nil {
		return o.rolloutErrs[key]
	}
	return nil
}

func (o *fakeObserver) WaitForEndpointsReady(ctx context.Context, namespace, name string, timeout time.Duration) error {
	o.endpointCalls = append(o.endpointCalls, namespace+"/"+name)
	return o.endpointErr
}

func (o *fakeObserver) WaitForJobCompletion(ctx context.Context, namespace, name string, timeout time.Duration) (bool, error) {
	o.jobCalls = append(o.jobCalls, namespace+"/"+name)
	return o.jobCompleted, o.jobErr
}

func (o *fakeObserver) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	return o.pods, o.podsErr
}

func (o *fakeObserver) ContainerLogs(ctx context.Context, namespace, pod, container string) (string, error) {
	return o.logs, nil
}

func (o *fakeObserver) JobLogs(ctx context.Context, namespace, jobName string) (string, error) {
	return o.jobLogs, nil
}

var _ ClusterObserver = (*fakeObserver)(nil)

// collectPrinters captures printed lines per channel for assertions.
type collectPrinters struct {
	warnings []string
	infos    []string
}

func (c *collectPrinters) printers() Printers {
	p := DiscardPrinters()
	p.Warning = func(msg string) { c.warnings = append(c.warnings, msg) }
	p.Info = func(msg string) { c.infos = append(c.infos, msg) }
	return p
}

func errBoom(what string) error {
	return fmt.Errorf("%s failed", what)
}
