package e2e

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"launchalert"
	"launchalert/internal/domain"
	"launchalert/internal/logging"
)

// alertBackend is in-process launch alert backend.
// Params: current alert id served on GET and received action reports.
// Returns: httptest handler state.
type alertBackend struct {
	mu       sync.Mutex
	current  string
	lastIDs  []string
	reported []string
}

func (b *alertBackend) setCurrent(id string) {
	b.mu.Lock()
	b.current = id
	b.mu.Unlock()
}

func (b *alertBackend) reports() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.reported...)
}

func (b *alertBackend) seenLastIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lastIDs...)
}

func (b *alertBackend) Handle(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if r.Header.Get("x-app-id") != "e2e-app" {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	switch r.Method {
	case http.MethodGet:
		b.lastIDs = append(b.lastIDs, r.Header.Get("x-last-id"))
		if b.current == "" {
			_, _ = io.WriteString(w, `{"data":null}`)
			return
		}
		_, _ = fmt.Fprintf(w, `{"data":{"id":%q,"title":[{"language":"de","content":"Neu"},{"language":"en","content":"New"}],"force":false}}`, b.current)
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		b.reported = append(b.reported, id+":"+r.PostForm.Get("action"))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func startBackend(t *testing.T) (*alertBackend, string) {
	t.Helper()
	backend := &alertBackend{}
	server := httptest.NewServer(http.HandlerFunc(backend.Handle))
	t.Cleanup(server.Close)
	return backend, server.URL + "/v1/launch-alerts"
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "launchalert.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clientTOML(route, language string) string {
	return fmt.Sprintf(`[client]
app_id = "e2e-app"
version = "3.1.0"
device_id = "e2e-device"
language = %q
route = %q
timeout_ms = 2000
max_retry = 1

[client.retry]
initial_ms = 5
max_ms = 5
`, language, route)
}

func openKit(t *testing.T, configPath string) *launchalert.Kit {
	t.Helper()
	cfg, err := launchalert.LoadConfig(configPath, "")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	kit, err := launchalert.New(cfg, launchalert.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("new kit: %v", err)
	}
	return kit
}

// showView fetches and waits until flight ends.
func showView(t *testing.T, kit *launchalert.Kit) launchalert.State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !kit.ShowView() {
		if time.Now().After(deadline) {
			t.Fatalf("show view kept being rejected")
		}
		time.Sleep(10 * time.Millisecond)
	}
	kit.Engine().Wait()
	return kit.State()
}

func expectKind(t *testing.T, state launchalert.State, kind domain.StateKind) {
	t.Helper()
	if state.Kind != kind {
		t.Fatalf("expected %s, got %s", kind, state)
	}
}
