package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// TunnelOpener abstracts OpenTunnel so tests can hand back canned tunnels.
type TunnelOpener func(run Runner, spec TunnelSpec) (*Tunnel, error)

// VerifyTarget is one route candidate into the deployed API.
type VerifyTarget struct {
	Name   string
	Tunnel TunnelSpec
	// Path prefix the target serves the API under.
	Prefix string
}

// clientPayload is the record the smoke test creates and deletes.
type clientPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// clientRecord is the shape we read back; only the id matters here.
type clientRecord struct {
	ID json.Number `json:"id"`
}

// newVerifyClient builds the HTTP client for the smoke test. Retries absorb
// the brief window where the tunnel is up but the API is still warming its
// database connection.
func newVerifyClient() *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.RetryMax = 4
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = 10 * time.Second
	c.Logger = nil // keep quiet; the printers narrate the sequence
	return c
}

// VerifyCandidates lists the routes to try, most-production-like first: the
// ingress-routed path, then a direct tunnel to the API service. The ingress
// candidate is omitted when the installer did not reach IngressApplied.
func VerifyCandidates(opts Options, phase IngressPhase) []VerifyTarget {
	contextName := ContextName(opts.ClusterName)

	var targets []VerifyTarget
	if phase == IngressApplied {
		targets = append(targets, VerifyTarget{
			Name: "ingress",
			Tunnel: TunnelSpec{
				Context:    contextName,
				Namespace:  IngressNamespace,
				Service:    IngressControllerDeployment,
				LocalPort:  opts.IngressLocalPort,
				RemotePort: 80,
			},
			Prefix: opts.APIPathPrefix,
		})
	}
	// the service is reached directly, so no ingress path prefix applies
	targets = append(targets, VerifyTarget{
		Name: "direct service",
		Tunnel: TunnelSpec{
			Context:    contextName,
			Namespace:  opts.Namespace,
			Service:    "clients-api",
			LocalPort:  opts.ServiceLocalPort,
			RemotePort: 8080,
		},
	})
	return targets
}

// VerifyEndpoints proves the deployed stack end to end: it opens a tunnel to
// the first candidate, health-checks it, and on failure falls back to the
// next candidate before running the CRUD sequence. The guard owns whichever
// tunnel is live, so teardown is guaranteed on success, failure, and
// interrupt alike.
func VerifyEndpoints(run Runner, open TunnelOpener, guard *tunnelGuard, targets []VerifyTarget, p Printers) *StageError {
	defer guard.Close()

	if len(targets) == 0 {
		return fatalf("endpoint-verifier", "no route candidates to verify")
	}

	client := newVerifyClient()

	var lastErr error
	for i, target := range targets {
		p.Progress(fmt.Sprintf("Opening tunnel to %s...", target.Name))
		tunnel, err := open(run, target.Tunnel)
		if err != nil {
			lastErr = err
			p.Warning(fmt.Sprintf("Could not open tunnel to %s: %v", target.Name, err))
			continue
		}
		guard.Set(tunnel)

		baseURL := fmt.Sprintf("http://%s%s", tunnel.LocalAddr(), target.Prefix)

		if err := checkHealth(client, baseURL); err != nil {
			lastErr = err
			if i < len(targets)-1 {
				p.Warning(fmt.Sprintf("Health check via %s failed (%v), trying fallback route", target.Name, err))
				continue
			}
			return fatalf("endpoint-verifier", "health check via %s failed: %w", target.Name, err)
		}
		p.Success(fmt.Sprintf("API is healthy via %s", target.Name))

		if err := runCRUDSequence(client, baseURL, p); err != nil {
			return fatal("endpoint-verifier", err)
		}
		p.Success("End-to-end verification passed")
		return nil
	}

	return fatalf("endpoint-verifier", "all route candidates failed: %w", lastErr)
}

func checkHealth(client *retryablehttp.Client, baseURL string) error {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// runCRUDSequence exercises create, read, and delete against the clients
// API. Each step depends on the previous one succeeding; only the final
// listing is best-effort.
func runCRUDSequence(client *retryablehttp.Client, baseURL string, p Printers) error {
	clientsURL := baseURL + "/clients"

	p.Progress("Listing clients...")
	if _, err := listClients(client, clientsURL); err != nil {
		return fmt.Errorf("initial listing failed: %w", err)
	}

	payload := clientPayload{
		FirstName: "Smoke",
		LastName:  "Test",
		Email:     fmt.Sprintf("smoke-%s@example.test", uuid.NewString()[:8]),
	}
	p.Progress(fmt.Sprintf("Creating client %s...", payload.Email))
	if err := createClient(client, clientsURL, payload); err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	records, err := listClients(client, clientsURL)
	if err != nil {
		return fmt.Errorf("listing after create failed: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("listing after create returned no clients")
	}

	id := records[0].ID.String()
	p.Progress(fmt.Sprintf("Fetching client %s...", id))
	if err := getClient(client, clientsURL, id); err != nil {
		return fmt.Errorf("get failed: %w", err)
	}

	p.Progress(fmt.Sprintf("Deleting client %s...", id))
	if err := deleteClient(client, clientsURL, id); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if _, err := listClients(client, clientsURL); err != nil {
		p.Warning(fmt.Sprintf("Final listing failed: %v", err))
	}
	return nil
}

func listClients(client *retryablehttp.Client, clientsURL string) ([]clientRecord, error) {
	resp, err := client.Get(clientsURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing returned %d", resp.StatusCode)
	}
	var records []clientRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("could not decode listing: %w", err)
	}
	return records, nil
}

func createClient(client *retryablehttp.Client, clientsURL string, payload clientPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := retryablehttp.NewRequest(http.MethodPost, clientsURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("create returned %d: %s", resp.StatusCode, readBodySnippet(resp.Body))
	}
	return nil
}

func getClient(client *retryablehttp.Client, clientsURL, id string) error {
	resp, err := client.Get(clientsURL + "/" + id)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get returned %d", resp.StatusCode)
	}
	return nil
}

func deleteClient(client *retryablehttp.Client, clientsURL, id string) error {
	req, err := retryablehttp.NewRequest(http.MethodDelete, clientsURL+"/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("delete returned %d", resp.StatusCode)
	}
	return nil
}

func readBodySnippet(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
