// Package client talks to a running ComfyUI server over HTTP and, for
// live execution progress, its websocket endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds every HTTP request the client makes.  A zero
// timeout disables the bound.
const DefaultTimeout = 30 * time.Second

// Client is a connection to one ComfyUI server.  Each client carries a
// unique id which the server uses to route websocket messages.
type Client struct {
	serverBaseAddress string
	serverAddress     string
	serverPort        int
	clientid          string
	httpclient        *http.Client
}

// New creates a client for the ComfyUI server at the given host and
// port, with DefaultTimeout on HTTP requests.
func New(serverAddress string, serverPort int) *Client {
	return NewWithTimeout(serverAddress, serverPort, DefaultTimeout)
}

// NewWithTimeout creates a client with an explicit HTTP timeout.
func NewWithTimeout(serverAddress string, serverPort int, timeout time.Duration) *Client {
	return &Client{
		serverBaseAddress: serverAddress + ":" + strconv.Itoa(serverPort),
		serverAddress:     serverAddress,
		serverPort:        serverPort,
		clientid:          uuid.New().String(),
		httpclient:        &http.Client{Timeout: timeout},
	}
}

// ClientID returns the unique client ID for the connection to the ComfyUI backend
func (c *Client) ClientID() string {
	return c.clientid
}

// return the underlying http client
func (c *Client) HTTPClient() *http.Client {
	return c.httpclient
}

// set the underlying http client
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpclient = client
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("http://%s%s", c.serverBaseAddress, path)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", path, resp.Status)
	}
	return json.Unmarshal(body, v)
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(path), bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
