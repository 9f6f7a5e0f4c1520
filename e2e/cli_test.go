package e2e_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/chessgame-go/internal/api"
	"github.com/mcoot/chessgame-go/internal/factory"
	"github.com/mcoot/chessgame-go/internal/testutil"
)

// cliRunner manages CLI binary execution for one player
type cliRunner struct {
	binaryPath  string
	serverURL   string
	secretsFile string
}

func buildCLI(t *testing.T) string {
	t.Helper()

	// Find project root (where go.mod is)
	projectRoot := findProjectRoot(t)

	// Build the CLI binary
	binaryPath := filepath.Join(t.TempDir(), "chessctl-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/chessctl")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return binaryPath
}

func newCLIRunner(t *testing.T, binaryPath, serverURL string) *cliRunner {
	t.Helper()

	return &cliRunner{
		binaryPath:  binaryPath,
		serverURL:   serverURL,
		secretsFile: filepath.Join(t.TempDir(), "secrets.yaml"),
	}
}

func (r *cliRunner) command(args ...string) *exec.Cmd {
	fullArgs := append([]string{
		"--server", r.serverURL,
		"--secrets-file", r.secretsFile,
		"--output", "json",
	}, args...)

	return exec.Command(r.binaryPath, fullArgs...)
}

func (r *cliRunner) run(args ...string) (string, error) {
	output, err := r.command(args...).CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real HTTP server for e2e tests
type testServer struct {
	addr     string
	shutdown func()
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	logger := testutil.NopLogger()
	app, err := factory.New(context.Background(), factory.Config{
		Logger: logger,
	})
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:            logger,
		SessionController: app.SessionController,
		Realtime:          app.Realtime,
		AllowedOrigins:    []string{"*"},
		StorageType:       app.StorageType,
	})

	server := &http.Server{Handler: router}

	go func() {
		if err := server.Serve(listener); err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := "http://" + listener.Addr().String()
	waitForServer(t, serverURL+"/api/health")

	return &testServer{
		addr: serverURL,
		shutdown: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(ctx)
		},
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Response types for JSON parsing
type gameResponse struct {
	ID       string   `json:"id"`
	FEN      string   `json:"fen"`
	Moves    []string `json:"moves"`
	Status   string   `json:"status"`
	Result   *string  `json:"result"`
	HasBlack bool     `json:"has_black"`
}

type seatResponse struct {
	gameResponse
	Secret string `json:"secret"`
	Color  string `json:"color"`
}

type moveResponse struct {
	gameResponse
	Move string `json:"move"`
	SAN  string `json:"san"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, buildCLI(t), ts.addr)

	output, err := cli.run("health")
	require.NoError(t, err, "output: %s", output)

	var resp healthResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "memory", resp.Storage)
}

func TestCLI_FullGame(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	binary := buildCLI(t)
	white := newCLIRunner(t, binary, ts.addr)
	black := newCLIRunner(t, binary, ts.addr)

	// White creates
	output, err := white.run("create")
	require.NoError(t, err, "output: %s", output)
	var created seatResponse
	require.NoError(t, json.Unmarshal([]byte(output), &created))
	assert.Equal(t, "white", created.Color)
	assert.Equal(t, "waiting", created.Status)
	gameID := created.ID

	// A spectator follows the game until it ends
	watch := newCLIRunner(t, binary, ts.addr).command("watch", gameID, "--until-over")
	stdout, err := watch.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, watch.Start())

	lines := make(chan string, 16)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	// The snapshot arrives once the watcher is subscribed
	var watched []string
	select {
	case line, ok := <-lines:
		require.True(t, ok, "watch exited before the snapshot")
		watched = append(watched, line)
	case <-time.After(10 * time.Second):
		_ = watch.Process.Kill()
		t.Fatal("watch did not receive a snapshot")
	}

	// Black joins
	output, err = black.run("join", gameID)
	require.NoError(t, err, "output: %s", output)
	var joined seatResponse
	require.NoError(t, json.Unmarshal([]byte(output), &joined))
	assert.Equal(t, "black", joined.Color)
	assert.Equal(t, "active", joined.Status)

	// Secrets are remembered per player
	output, err = white.run("move", gameID, "e2e4")
	require.NoError(t, err, "output: %s", output)
	var moved moveResponse
	require.NoError(t, json.Unmarshal([]byte(output), &moved))
	assert.Equal(t, "e4", moved.SAN)

	// Out of turn
	output, err = white.run("move", gameID, "d2d4")
	assert.Error(t, err)
	assert.Contains(t, output, "NOT_YOUR_TURN")

	// Someone else's seat
	output, err = black.run("move", gameID, "e7e5", "--secret", "55555555-5555-4555-8555-555555555555")
	assert.Error(t, err)
	assert.Contains(t, output, "INVALID_SECRET")

	output, err = black.run("resign", gameID)
	require.NoError(t, err, "output: %s", output)
	var resigned gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resigned))
	assert.Equal(t, "resigned", resigned.Status)
	require.NotNil(t, resigned.Result)
	assert.Equal(t, "white", *resigned.Result)

	// The watcher exits on its own once the game is over
	timeout := time.After(10 * time.Second)
collect:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break collect
			}
			watched = append(watched, line)
		case <-timeout:
			_ = watch.Process.Kill()
			t.Fatal("watch did not exit after game over")
		}
	}
	require.NoError(t, watch.Wait())

	var types []string
	for _, line := range watched {
		var evt struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &evt), line)
		types = append(types, evt.Type)
	}
	require.NotEmpty(t, types)
	assert.Equal(t, "game_state", types[0])
	assert.Equal(t, "game_over", types[len(types)-1])
	assert.Contains(t, types, "move_made")
}

func TestCLI_ListAndGet(t *testing.T) {
	ts := startTestServer(t)
	defer ts.shutdown()

	cli := newCLIRunner(t, buildCLI(t), ts.addr)

	var ids []string
	for i := 0; i < 2; i++ {
		output, err := cli.run("create")
		require.NoError(t, err, "output: %s", output)
		var created seatResponse
		require.NoError(t, json.Unmarshal([]byte(output), &created))
		ids = append(ids, created.ID)
	}

	output, err := cli.run("list")
	require.NoError(t, err, "output: %s", output)
	var games []gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &games))
	assert.Len(t, games, 2)

	output, err = cli.run("get", ids[0])
	require.NoError(t, err, "output: %s", output)
	var game gameResponse
	require.NoError(t, json.Unmarshal([]byte(output), &game))
	assert.Equal(t, ids[0], game.ID)
	assert.False(t, game.HasBlack)

	output, err = cli.run("get", "44444444-4444-4444-8444-444444444444")
	assert.Error(t, err)
	assert.Contains(t, output, "GAME_NOT_FOUND")
}
