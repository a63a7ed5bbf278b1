package daemon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/taskdeps/internal/deps"
	"github.com/kazz187/taskdeps/internal/event"
	"github.com/kazz187/taskdeps/internal/graph"
	"github.com/kazz187/taskdeps/internal/task"
)

func newTestDaemon(t *testing.T, content string) (*Daemon, *httptest.Server) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	repo := task.NewYAMLRepository(path)
	bus := event.NewBus()
	service := deps.NewService(repo, bus, graph.SelectOptions{})

	cfg := DefaultConfig()
	cfg.TasksFile = path
	d := New(cfg, service, bus)

	ts := httptest.NewServer(d.router())
	t.Cleanup(ts.Close)
	t.Cleanup(bus.Wait)
	return d, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

const healthyTasks = `tasks:
  - id: 1
    title: First
    status: done
  - id: 2
    title: Second
    status: pending
    dependencies: [1]
`

const corruptedTasks = `tasks:
  - id: 1
    title: First
    status: pending
    dependencies: [1, 99]
`

func TestDaemonHealth(t *testing.T) {
	_, ts := newTestDaemon(t, healthyTasks)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDaemonTasks(t *testing.T) {
	_, ts := newTestDaemon(t, healthyTasks)

	var body struct {
		Tasks []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"tasks"`
	}
	status := getJSON(t, ts.URL+"/api/tasks", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Tasks, 2)
	assert.Equal(t, "First", body.Tasks[0].Title)
}

func TestDaemonIssues(t *testing.T) {
	_, ts := newTestDaemon(t, corruptedTasks)

	var body struct {
		Issues []graph.Issue `json:"issues"`
	}
	status := getJSON(t, ts.URL+"/api/issues", &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, body.Issues, 2)
}

func TestDaemonFix(t *testing.T) {
	d, ts := newTestDaemon(t, corruptedTasks)

	resp, err := http.Post(ts.URL+"/api/fix", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Changed   bool             `json:"changed"`
		Mutations []graph.Mutation `json:"mutations"`
		Residual  []graph.Issue    `json:"residual"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Changed)
	assert.Len(t, body.Mutations, 2)
	assert.Empty(t, body.Residual)

	issues, err := d.service.Validate()
	require.NoError(t, err)
	assert.Empty(t, issues, "repair should persist")
}

func TestDaemonNext(t *testing.T) {
	_, ts := newTestDaemon(t, healthyTasks)

	var body struct {
		Tasks []struct {
			ID       string `json:"id"`
			Title    string `json:"title"`
			Priority string `json:"priority"`
		} `json:"tasks"`
	}
	status := getJSON(t, ts.URL+"/api/next?concurrency=2", &body)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, "2", body.Tasks[0].ID)
}

func TestDaemonNextBadConcurrency(t *testing.T) {
	_, ts := newTestDaemon(t, healthyTasks)

	for _, raw := range []string{"abc", "0", "-1"} {
		var body struct {
			Code string `json:"code"`
		}
		status := getJSON(t, ts.URL+"/api/next?concurrency="+raw, &body)
		assert.Equal(t, http.StatusBadRequest, status, "concurrency=%s", raw)
		assert.Equal(t, "InvalidArgument", body.Code)
	}
}

func TestHashFileDetectsChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tasks: []\n"), 0644))

	first, err := hashFile(path)
	require.NoError(t, err)

	again, err := hashFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	require.NoError(t, os.WriteFile(path, []byte("tasks:\n  - id: 1\n"), 0644))
	changed, err := hashFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	_, err = hashFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
