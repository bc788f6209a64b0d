// Package orchestrator provisions per-lobby game server pods and
// exposing services against a Kubernetes-compatible API server. There is
// no third-party Kubernetes client in the rest of this module's
// dependency stack, and the manifest shapes needed here are a handful of
// small, stable JSON documents — pulling in a generated clientset would
// add a large, mostly-unused surface for two REST calls and a poll loop,
// so this talks to the API server directly with net/http and
// encoding/json.
package orchestrator

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Client talks to the orchestrator's REST API using the in-cluster
// service-account bearer token and CA bundle.
type Client struct {
	baseURL   string
	namespace string
	http      *http.Client
	token     string
	log       *zap.Logger
}

// NewClient reads the bearer token and CA certificate from the paths the
// Kubernetes service-account projection mounts.
func NewClient(baseURL, namespace, tokenPath, caPath string, log *zap.Logger) (*Client, error) {
	tokenBytes, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: read token: %w", err)
	}

	pool := x509.NewCertPool()
	if caBytes, err := os.ReadFile(caPath); err == nil {
		pool.AppendCertsFromPEM(caBytes)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("orchestrator: read ca cert: %w", err)
	}

	transport := &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}
	return &Client{
		baseURL:   baseURL,
		namespace: namespace,
		http:      &http.Client{Transport: transport, Timeout: 10 * time.Second},
		token:     string(tokenBytes),
		log:       log,
	}, nil
}

// PortAllocator hands out unique TCP/UDP port pairs from a rolling range,
// recycling freed ports on Release.
type PortAllocator struct {
	mu       sync.Mutex
	next     int
	start    int
	end      int
	inUse    map[int]bool
}

func NewPortAllocator(start, end int) *PortAllocator {
	return &PortAllocator{next: start, start: start, end: end, inUse: make(map[int]bool)}
}

// Allocate returns the next free port in [start, end), wrapping around
// once the range is exhausted.
func (p *PortAllocator) Allocate() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := 0; i < p.end-p.start; i++ {
		port := p.next
		p.next++
		if p.next >= p.end {
			p.next = p.start
		}
		if !p.inUse[port] {
			p.inUse[port] = true
			return port, nil
		}
	}
	return 0, fmt.Errorf("orchestrator: no free port in [%d, %d)", p.start, p.end)
}

func (p *PortAllocator) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, port)
}

// podManifest and serviceManifest are deliberately minimal: only the
// fields start_game actually needs to set or read.
type podManifest struct {
	APIVersion string       `json:"apiVersion"`
	Kind       string       `json:"kind"`
	Metadata   manifestMeta `json:"metadata"`
	Spec       podSpec      `json:"spec"`
}

type manifestMeta struct {
	Name   string            `json:"name"`
	Labels map[string]string `json:"labels"`
}

type podSpec struct {
	Containers []containerSpec `json:"containers"`
}

type containerSpec struct {
	Name  string   `json:"name"`
	Image string   `json:"image"`
	Args  []string `json:"args"`
	Ports []containerPort `json:"ports"`
}

type containerPort struct {
	ContainerPort int    `json:"containerPort"`
	Protocol      string `json:"protocol"`
}

type serviceManifest struct {
	APIVersion string           `json:"apiVersion"`
	Kind       string           `json:"kind"`
	Metadata   manifestMeta     `json:"metadata"`
	Spec       serviceSpec      `json:"spec"`
	Status     *serviceStatus   `json:"status,omitempty"`
}

type serviceSpec struct {
	Type     string        `json:"type"`
	Selector map[string]string `json:"selector"`
	Ports    []servicePort `json:"ports"`
}

type servicePort struct {
	Name       string `json:"name"`
	Port       int    `json:"port"`
	TargetPort int    `json:"targetPort"`
	Protocol   string `json:"protocol"`
}

type serviceStatus struct {
	LoadBalancer struct {
		Ingress []struct {
			IP       string `json:"ip"`
			Hostname string `json:"hostname"`
		} `json:"ingress"`
	} `json:"loadBalancer"`
}

// Instance describes a provisioned game server reachable by lobby
// members once StartGame returns.
type Instance struct {
	IP       string
	TCPPort  int
	UDPPort  int
}

// StartGame provisions one pod + one LoadBalancer service for lobbyID,
// running image with the given ports as its args, and polls the service
// until it has an external address (or the poll budget is exhausted).
func (c *Client) StartGame(ctx context.Context, lobbyID int32, image string, tcpPort, udpPort int) (*Instance, error) {
	name := fmt.Sprintf("pod-%d", lobbyID)
	labels := map[string]string{"app": "server", "instance": name}

	pod := podManifest{
		APIVersion: "v1",
		Kind:       "Pod",
		Metadata:   manifestMeta{Name: name, Labels: labels},
		Spec: podSpec{Containers: []containerSpec{{
			Name:  "gameserver",
			Image: image,
			Args:  []string{fmt.Sprintf("%d", tcpPort), fmt.Sprintf("%d", udpPort)},
			Ports: []containerPort{
				{ContainerPort: tcpPort, Protocol: "TCP"},
				{ContainerPort: udpPort, Protocol: "UDP"},
			},
		}}},
	}
	if err := c.post(ctx, "pods", pod, nil); err != nil {
		return nil, fmt.Errorf("orchestrator: create pod: %w", err)
	}

	svc := serviceManifest{
		APIVersion: "v1",
		Kind:       "Service",
		Metadata:   manifestMeta{Name: name, Labels: labels},
		Spec: serviceSpec{
			Type:     "LoadBalancer",
			Selector: labels,
			Ports: []servicePort{
				{Name: "tcp", Port: tcpPort, TargetPort: tcpPort, Protocol: "TCP"},
				{Name: "udp", Port: udpPort, TargetPort: udpPort, Protocol: "UDP"},
			},
		},
	}
	if err := c.post(ctx, "services", svc, nil); err != nil {
		return nil, fmt.Errorf("orchestrator: create service: %w", err)
	}

	for attempt := 0; attempt < 10; attempt++ {
		var got serviceManifest
		if err := c.get(ctx, "services/"+name, &got); err == nil && got.Status != nil && len(got.Status.LoadBalancer.Ingress) > 0 {
			ing := got.Status.LoadBalancer.Ingress[0]
			ip := ing.IP
			if ip == "" {
				ip = ing.Hostname
			}
			if ip != "" {
				return &Instance{IP: ip, TCPPort: tcpPort, UDPPort: udpPort}, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("orchestrator: service %s never reported an external address", name)
}

func (c *Client) post(ctx context.Context, resource string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/api/v1/namespaces/%s/%s", c.baseURL, c.namespace, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, resource string, out any) error {
	url := fmt.Sprintf("%s/api/v1/namespaces/%s/%s", c.baseURL, c.namespace, resource)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		c.log.Warn("orchestrator request failed", zap.Int("status", resp.StatusCode), zap.String("body", string(data)))
		return fmt.Errorf("orchestrator: %s returned %d", req.URL.Path, resp.StatusCode)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}
