package pipeline

import (
	"strings"
	"testing"
)

func TestDestroyDeletesCluster(t *testing.T) {
	run := newFakeRunner()
	// the cluster exists before deletion and is gone afterwards
	calls := 0
	stateful := &statefulRunner{fakeRunner: run, onList: func() string {
		calls++
		if calls == 1 {
			return "kubestage-doomed\n"
		}
		return "\n"
	}}

	if err := Destroy(stateful, DestroyOptions{Name: "doomed"}, DiscardPrinters()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deletes := run.callsWithPrefix("kind delete cluster")
	if len(deletes) != 1 || !strings.Contains(deletes[0], "--name kubestage-doomed") {
		t.Errorf("unexpected delete calls: %v", deletes)
	}
}

func TestDestroyMissingClusterIsNoop(t *testing.T) {
	run := newFakeRunner()
	run.respond("kind get clusters", "\n")

	collect := &collectPrinters{}
	if err := Destroy(run, DestroyOptions{Name: "ghost"}, collect.printers()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(collect.warnings) == 0 {
		t.Error("expected a not-found warning")
	}
	if deletes := run.callsWithPrefix("kind delete cluster"); len(deletes) != 0 {
		t.Errorf("nothing should be deleted: %v", deletes)
	}
}

func TestDestroyRejectsBadName(t *testing.T) {
	if err := Destroy(newFakeRunner(), DestroyOptions{Name: "-bad"}, DiscardPrinters()); err == nil {
		t.Error("expected a validation error")
	}
}

// statefulRunner lets the cluster listing change between calls.
type statefulRunner struct {
	*fakeRunner
	onList func() string
}

func (r *statefulRunner) Run(name string, args ...string) ([]byte, error) {
	if name == "kind" && len(args) > 0 && args[0] == "get" {
		r.record(name, args)
		return []byte(r.onList()), nil
	}
	return r.fakeRunner.Run(name, args...)
}

func TestListClusterInfo(t *testing.T) {
	run := newFakeRunner()
	run.respond("kind get clusters", "kubestage-alpha\nkubestage-beta\nplain-kind\n")
	run.respond("kubectl get nodes --context kind-kubestage-alpha",
		"node-1   Ready    control-plane   5m   v1.31.0\nnode-2   Ready    <none>   4m   v1.31.0\n")
	run.fail("kubectl get nodes --context kind-kubestage-beta", errBoom("connection refused"))

	infos, err := ListClusterInfo(run)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d clusters, want 2 managed ones: %+v", len(infos), infos)
	}

	alpha := infos[0]
	if alpha.Name != "alpha" || alpha.Status != "Running" || alpha.Nodes != 2 {
		t.Errorf("alpha = %+v, want Running with 2 nodes", alpha)
	}
	beta := infos[1]
	if beta.Name != "beta" || beta.Status != "Stopped" {
		t.Errorf("beta = %+v, want Stopped", beta)
	}
}

func TestClusterTable(t *testing.T) {
	headers, rows := ClusterTable([]ClusterInfo{
		{Name: "demo", Context: "kind-kubestage-demo", Status: "Running", Nodes: 3},
	})
	if len(headers) != 4 {
		t.Fatalf("got %d headers, want 4", len(headers))
	}
	if len(rows) != 1 || rows[0][0] != "demo" || rows[0][2] != "3" {
		t.Errorf("unexpected rows: %v", rows)
	}
}
