//go:build integration
// +build integration

package integration_tests

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/jaff/internal/build"
	"github.com/conneroisu/jaff/internal/config"
	"github.com/conneroisu/jaff/internal/eventbus"
	"github.com/conneroisu/jaff/internal/logging"
	"github.com/conneroisu/jaff/internal/resolver"
	"github.com/conneroisu/jaff/internal/server"
	"github.com/conneroisu/jaff/internal/watcher"
)

// testSite is a site on disk with every component wired the way jaff serve
// wires them.
type testSite struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	pipeline *build.Pipeline
	server   *server.Server
	baseURL  string
}

func newTestSite(t *testing.T, files map[string]string) *testSite {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "app")
	cfg := &config.Config{
		Paths: config.PathsConfig{
			Src:       src,
			Dist:      filepath.Join(root, "dist"),
			Tmp:       filepath.Join(root, ".tmp"),
			Pages:     filepath.Join(src, "pages"),
			Templates: filepath.Join(src, "templates"),
			Global:    filepath.Join(src, "data", "global.yaml"),
		},
		Templates: config.TemplatesConfig{Extension: ".html.tmpl"},
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: 0, LiveReload: true},
		Watch:     config.WatchConfig{Debounce: 50 * time.Millisecond},
	}
	for rel, content := range files {
		writeFile(t, filepath.Join(src, filepath.FromSlash(rel)), content)
	}

	logger := logging.Discard()
	res := resolver.New(cfg, logger)
	pipeline := build.NewPipeline(cfg, res, eventbus.New(), logger)
	return &testSite{
		cfg:      cfg,
		resolver: res,
		pipeline: pipeline,
		server:   server.New(cfg, pipeline, logger),
	}
}

// rebuild copies the extras and renders every page.
func (s *testSite) rebuild(ctx context.Context) (*build.Result, error) {
	if _, err := build.CopyExtras(s.cfg.Paths.Src, s.cfg.Paths.Dist); err != nil {
		return nil, err
	}
	return s.pipeline.Build(ctx)
}

// serve starts the server on a random port and waits until it is healthy.
func (s *testSite) serve(t *testing.T, ctx context.Context) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.baseURL = "http://" + ln.Addr().String()

	served := make(chan error, 1)
	go func() { served <- s.server.Serve(ctx, ln) }()
	t.Cleanup(func() {
		select {
		case err := <-served:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})

	require.Eventually(t, func() bool {
		resp, err := http.Get(s.baseURL + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)
}

// watch rebuilds the site on every relevant change.
func (s *testSite) watch(t *testing.T, ctx context.Context) {
	t.Helper()
	fw, err := watcher.NewFileWatcher(s.cfg.Watch.Debounce, logging.Discard())
	require.NoError(t, err)
	fw.AddFilter(watcher.NoHiddenFilter)
	fw.AddFilter(watcher.AnyOf(
		watcher.DataFilter,
		watcher.TemplateFilter(s.cfg.Templates.Extension),
		watcher.ExtrasFilter(s.cfg.Paths.Src),
	))
	fw.AddHandler(func([]watcher.ChangeEvent) error {
		s.resolver.Renderer().Invalidate()
		_, err := s.rebuild(ctx)
		return err
	})
	require.NoError(t, fw.AddRecursive(s.cfg.Paths.Src))
	require.NoError(t, fw.Start(ctx))
	t.Cleanup(func() { _ = fw.Stop() })
}

func (s *testSite) get(t *testing.T, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(s.baseURL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func (s *testSite) health(t *testing.T) map[string]interface{} {
	t.Helper()
	_, body := s.get(t, "/health")
	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	return health
}

func (s *testSite) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(s.baseURL, "http") + server.LiveReloadPath
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	require.Eventually(t, func() bool { return s.server.Hub().Clients() == 1 },
		2*time.Second, 10*time.Millisecond)
	return conn
}

// nextMessage reads live reload messages until one of type want arrives.
func nextMessage(t *testing.T, conn *websocket.Conn, want string) server.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", want)
		var msg server.Message
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == want {
			return msg
		}
	}
}

// writeFile replaces path atomically so a watcher sees a single change.
// The temporary name ends in ~ and is ignored by the watcher filters.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	tmp := path + "~"
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0644))
	require.NoError(t, os.Rename(tmp, path))
}

// eventually polls path until its body contains want.
func (s *testSite) eventually(t *testing.T, path, want string) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, body := s.get(t, path)
		return strings.Contains(body, want)
	}, 5*time.Second, 50*time.Millisecond, "%s never contained %q", path, want)
}
