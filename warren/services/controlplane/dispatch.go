package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warrenhq/warren/warren/vm"
)

// Dispatcher sends VM lifecycle commands to a compute node. The returned
// status is the node's HTTP status code; a non-nil error means the node
// could not be reached at all.
type Dispatcher interface {
	CreateVM(ctx context.Context, hostname string, req vm.CreateRequest) (int, error)
	DeleteVM(ctx context.Context, hostname string, req vm.DeleteRequest) (int, error)
}

// DefaultComputePort is the port compute nodes listen on.
const DefaultComputePort = 3000

// HTTPDispatcher is the production Dispatcher: plain HTTP POSTs against
// the compute node API.
type HTTPDispatcher struct {
	Client *http.Client
	Port   int
}

func NewHTTPDispatcher() *HTTPDispatcher {
	return &HTTPDispatcher{Client: http.DefaultClient, Port: DefaultComputePort}
}

func (d *HTTPDispatcher) CreateVM(ctx context.Context, hostname string, req vm.CreateRequest) (int, error) {
	return d.post(ctx, hostname, "/virtualmachine/create", req)
}

func (d *HTTPDispatcher) DeleteVM(ctx context.Context, hostname string, req vm.DeleteRequest) (int, error) {
	return d.post(ctx, hostname, "/virtualmachine/delete", req)
}

func (d *HTTPDispatcher) post(ctx context.Context, hostname, path string, payload any) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal compute request: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d%s", hostname, d.port(), path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build compute request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.client().Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}

func (d *HTTPDispatcher) client() *http.Client {
	if d.Client == nil {
		return http.DefaultClient
	}
	return d.Client
}

func (d *HTTPDispatcher) port() int {
	if d.Port == 0 {
		return DefaultComputePort
	}
	return d.Port
}
