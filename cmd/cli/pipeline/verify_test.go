package pipeline

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// clientsServer is an in-memory stand-in for the deployed clients API,
// serving under the given path prefix ("" when reached directly, "/api"
// when reached through the ingress).
type clientsServer struct {
	prefix  string
	mu      sync.Mutex
	nextID  int
	clients map[int]clientPayload
	deletes int
}

func newClientsServer(prefix string) *clientsServer {
	return &clientsServer{prefix: prefix, nextID: 1, clients: make(map[int]clientPayload)}
}

func (s *clientsServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.prefix+"/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(s.prefix+"/clients", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		switch r.Method {
		case http.MethodGet:
			type record struct {
				ID        int    `json:"id"`
				FirstName string `json:"first_name"`
				LastName  string `json:"last_name"`
				Email     string `json:"email"`
			}
			records := make([]record, 0, len(s.clients))
			for id, c := range s.clients {
				records = append(records, record{ID: id, FirstName: c.FirstName, LastName: c.LastName, Email: c.Email})
			}
			_ = json.NewEncoder(w).Encode(records)
		case http.MethodPost:
			var payload clientPayload
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				http.Error(w, "bad payload", http.StatusBadRequest)
				return
			}
			s.clients[s.nextID] = payload
			s.nextID++
			w.WriteHeader(http.StatusCreated)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc(s.prefix+"/clients/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, s.prefix+"/clients/"))
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		if _, ok := s.clients[id]; !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			delete(s.clients, id)
			s.deletes++
			w.WriteHeader(http.StatusNoContent)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func serverPort(t *testing.T, ts *httptest.Server) int {
	t.Helper()
	_, portStr, err := net.SplitHostPort(strings.TrimPrefix(ts.URL, "http://"))
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatal(err)
	}
	return port
}

// tunnelTo fabricates an already-open tunnel pointing at a local port.
func tunnelTo(port int, process *fakeProcess) *Tunnel {
	return &Tunnel{spec: TunnelSpec{LocalPort: port}, process: process}
}

func TestVerifyEndpointsHappyPath(t *testing.T) {
	api := newClientsServer("/api")
	ts := httptest.NewServer(api.handler())
	defer ts.Close()
	port := serverPort(t, ts)

	process := &fakeProcess{}
	open := func(run Runner, spec TunnelSpec) (*Tunnel, error) {
		return tunnelTo(port, process), nil
	}

	targets := VerifyCandidates(DefaultOptions(), IngressApplied)
	if len(targets) != 2 {
		t.Fatalf("got %d candidates, want 2", len(targets))
	}

	guard := newTunnelGuard()
	if stageErr := VerifyEndpoints(newFakeRunner(), open, guard, targets, DiscardPrinters()); stageErr != nil {
		t.Fatalf("unexpected error: %v", stageErr)
	}

	if api.deletes != 1 {
		t.Errorf("deletes = %d, want 1 (the created client is removed)", api.deletes)
	}
	api.mu.Lock()
	remaining := len(api.clients)
	api.mu.Unlock()
	if remaining != 0 {
		t.Errorf("%d clients left behind", remaining)
	}
	if !process.wasKilled() {
		t.Error("tunnel was not torn down")
	}
}

func TestVerifyEndpointsFallsBackOnUnhealthyPrimary(t *testing.T) {
	// primary answers but is not healthy
	broken := httptest.NewServer(http.NotFoundHandler())
	defer broken.Close()
	// reached directly, so the API serves at the root
	api := newClientsServer("")
	healthy := httptest.NewServer(api.handler())
	defer healthy.Close()

	primaryProcess := &fakeProcess{}
	fallbackProcess := &fakeProcess{}
	var opened []string
	open := func(run Runner, spec TunnelSpec) (*Tunnel, error) {
		opened = append(opened, spec.Service)
		if len(opened) == 1 {
			return tunnelTo(serverPort(t, broken), primaryProcess), nil
		}
		return tunnelTo(serverPort(t, healthy), fallbackProcess), nil
	}

	guard := newTunnelGuard()
	targets := VerifyCandidates(DefaultOptions(), IngressApplied)
	if stageErr := VerifyEndpoints(newFakeRunner(), open, guard, targets, DiscardPrinters()); stageErr != nil {
		t.Fatalf("unexpected error: %v", stageErr)
	}

	if len(opened) != 2 {
		t.Fatalf("opened %v, want primary then fallback", opened)
	}
	if opened[0] != IngressControllerDeployment || opened[1] != "clients-api" {
		t.Errorf("wrong candidate order: %v", opened)
	}
	if !primaryProcess.wasKilled() {
		t.Error("primary tunnel leaked after fallback")
	}
	if !fallbackProcess.wasKilled() {
		t.Error("fallback tunnel leaked after verification")
	}
}

func TestVerifyEndpointsSkippedIngressUsesDirectRoute(t *testing.T) {
	targets := VerifyCandidates(DefaultOptions(), IngressSkipped)
	if len(targets) != 1 {
		t.Fatalf("got %d candidates, want 1", len(targets))
	}
	if targets[0].Name != "direct service" {
		t.Errorf("candidate = %q, want direct service", targets[0].Name)
	}
}

func TestVerifyEndpointsAllRoutesFailing(t *testing.T) {
	broken := httptest.NewServer(http.NotFoundHandler())
	defer broken.Close()
	port := serverPort(t, broken)

	open := func(run Runner, spec TunnelSpec) (*Tunnel, error) {
		return tunnelTo(port, &fakeProcess{}), nil
	}

	guard := newTunnelGuard()
	stageErr := VerifyEndpoints(newFakeRunner(), open, guard, VerifyCandidates(DefaultOptions(), IngressApplied), DiscardPrinters())
	if stageErr == nil {
		t.Fatal("expected a stage error")
	}
	if stageErr.Severity != SeverityFatal {
		t.Errorf("severity = %v, want fatal", stageErr.Severity)
	}
}
