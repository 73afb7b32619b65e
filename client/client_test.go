package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/sdharcourt/comfyrun/workflow"
)

const testDocument = `{
	"3": {
		"inputs": {
			"seed": 5, "steps": 20,
			"model": ["4", 0], "positive": ["6", 0], "negative": ["7", 0]
		},
		"class_type": "KSampler"
	},
	"4": {"inputs": {"ckpt_name": "model.safetensors"}, "class_type": "CheckpointLoaderSimple"},
	"6": {"inputs": {"text": "a cat"}, "class_type": "CLIPTextEncode"},
	"7": {"inputs": {"text": "blurry"}, "class_type": "CLIPTextEncode"}
}`

// testClient builds a Client pointed at an httptest server.
func testClient(t *testing.T, ts *httptest.Server) *Client {
	t.Helper()
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return New(u.Hostname(), port)
}

func testWorkflowFromDoc(t *testing.T, doc string) *workflow.Workflow {
	t.Helper()
	w, err := workflow.Parse([]byte(doc), t.TempDir(), "wf")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return w
}

func TestQueuePrompt(t *testing.T) {
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prompt" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		rw.Header().Set("Content-Type", "application/json")
		rw.Write([]byte(`{"prompt_id": "abc-123", "number": 7, "node_errors": {}}`))
	}))
	defer ts.Close()

	c := testClient(t, ts)
	wf := testWorkflowFromDoc(t, testDocument)

	item, err := c.QueuePrompt(context.Background(), wf)
	if err != nil {
		t.Fatalf("QueuePrompt: %v", err)
	}
	if item.PromptID != "abc-123" {
		t.Errorf("Expected prompt id abc-123, got %s", item.PromptID)
	}
	if item.Number != 7 {
		t.Errorf("Expected queue number 7, got %d", item.Number)
	}

	var sent struct {
		Prompt   map[string]*workflow.Node `json:"prompt"`
		ClientID string                    `json:"client_id"`
	}
	if err := json.Unmarshal(gotBody, &sent); err != nil {
		t.Fatalf("Request body was not valid JSON: %v", err)
	}
	if sent.ClientID != c.ClientID() {
		t.Errorf("Expected client id %s in the request, got %s", c.ClientID(), sent.ClientID)
	}
	if len(sent.Prompt) != 4 {
		t.Errorf("Expected 4 nodes in the submitted prompt, got %d", len(sent.Prompt))
	}
}

func TestQueuePromptServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusBadRequest)
		rw.Write([]byte(`{"error": {"type": "prompt_no_outputs", "message": "Prompt has no outputs", "details": "", "extra_info": {}}, "node_errors": {}}`))
	}))
	defer ts.Close()

	c := testClient(t, ts)
	wf := testWorkflowFromDoc(t, testDocument)

	_, err := c.QueuePrompt(context.Background(), wf)
	if err == nil {
		t.Fatal("Expected an error from a rejected prompt")
	}
	if !strings.Contains(err.Error(), "Prompt has no outputs") {
		t.Errorf("Expected the server's error message, got %v", err)
	}
}

func TestQueuePromptConnectionRefused(t *testing.T) {
	// a server that is immediately closed leaves a port nothing listens on
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))
	c := testClient(t, ts)
	ts.Close()

	wf := testWorkflowFromDoc(t, testDocument)
	if _, err := c.QueuePrompt(context.Background(), wf); err == nil {
		t.Fatal("Expected an error when the server is unreachable")
	}
}

func TestSystemStats(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/system_stats" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		rw.Write([]byte(`{
			"system": {"os": "posix", "python_version": "3.11.6", "embedded_python": false},
			"devices": [{"name": "cuda:0", "type": "cuda", "index": 0,
				"vram_total": 25393692672, "vram_free": 25393692672,
				"torch_vram_total": 0, "torch_vram_free": 0}]
		}`))
	}))
	defer ts.Close()

	stats, err := testClient(t, ts).SystemStats(context.Background())
	if err != nil {
		t.Fatalf("SystemStats: %v", err)
	}
	if stats.System.OS != "posix" {
		t.Errorf("Expected os posix, got %s", stats.System.OS)
	}
	if len(stats.Devices) != 1 || stats.Devices[0].Name != "cuda:0" {
		t.Errorf("Unexpected devices: %+v", stats.Devices)
	}
}

func TestQueueExecInfo(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/prompt" || r.Method != http.MethodGet {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		rw.Write([]byte(`{"exec_info": {"queue_remaining": 3}}`))
	}))
	defer ts.Close()

	info, err := testClient(t, ts).QueueExecInfo(context.Background())
	if err != nil {
		t.Fatalf("QueueExecInfo: %v", err)
	}
	if info.ExecInfo.QueueRemaining != 3 {
		t.Errorf("Expected 3 remaining, got %d", info.ExecInfo.QueueRemaining)
	}
}

func TestEraseHistory(t *testing.T) {
	var gotBody []byte
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/history" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer ts.Close()

	if err := testClient(t, ts).EraseHistory(context.Background()); err != nil {
		t.Fatalf("EraseHistory: %v", err)
	}

	var req map[string]bool
	if err := json.Unmarshal(gotBody, &req); err != nil {
		t.Fatalf("Request body was not valid JSON: %v", err)
	}
	if !req["clear"] {
		t.Errorf("Expected a clear request, got %s", string(gotBody))
	}
}

// countingTransport records how many requests pass through it.
type countingTransport struct {
	calls int
}

func (ct *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ct.calls++
	return http.DefaultTransport.RoundTrip(r)
}

func TestSetHTTPClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte(`{"exec_info": {"queue_remaining": 0}}`))
	}))
	defer ts.Close()

	c := testClient(t, ts)
	transport := &countingTransport{}
	replacement := &http.Client{Transport: transport}
	c.SetHTTPClient(replacement)

	if c.HTTPClient() != replacement {
		t.Error("HTTPClient did not return the client that was set")
	}
	if _, err := c.QueueExecInfo(context.Background()); err != nil {
		t.Fatalf("QueueExecInfo: %v", err)
	}
	if transport.calls != 1 {
		t.Errorf("Expected 1 request through the replacement client, got %d", transport.calls)
	}
}

func TestInterrupt(t *testing.T) {
	called := false
	ts := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/interrupt" || r.Method != http.MethodPost {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		called = true
	}))
	defer ts.Close()

	if err := testClient(t, ts).Interrupt(context.Background()); err != nil {
		t.Fatalf("Interrupt: %v", err)
	}
	if !called {
		t.Error("Interrupt never reached the server")
	}
}
