package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"k8s-agent/internal/command"
	"k8s-agent/internal/runner"
	"k8s-agent/internal/testutil"
	"k8s-agent/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// countingExecutor records how often a process would have been spawned.
type countingExecutor struct {
	calls int
	next  Executor
}

func (e *countingExecutor) Execute(ctx context.Context, cmd command.Command) (runner.Result, error) {
	e.calls++
	return e.next.Execute(ctx, cmd)
}

func newTestRouter(t *testing.T) (*gin.Engine, *countingExecutor) {
	t.Helper()
	testutil.FakeKubectl(t, testutil.KubectlScript)
	exec := &countingExecutor{next: runner.New(runner.Options{})}
	r := NewRouter(NewHandler(exec), RouterOptions{Logger: zerolog.Nop(), MetricsEnabled: true})
	return r, exec
}

func postCommand(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeDetail(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Detail
}

func TestRootReturnsHelloWorld(t *testing.T) {
	r, _ := newTestRouter(t)

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"message":"Hello World"}`, rr.Body.String())

		postCommand(r, `{"command":"kubectl get missing"}`)
	}
}

func TestRunCommandSuccess(t *testing.T) {
	r, exec := newTestRouter(t)

	rr := postCommand(r, `{"command":"kubectl get pods"}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "pod-a\npod-b\n", rr.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, 1, exec.calls)
}

func TestRunCommandNormalizesBeforeExecuting(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := postCommand(r, `{"command":"kubectl GET PODS   "}`)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "pod-a\npod-b\n", rr.Body.String())
}

func TestRunCommandFailure(t *testing.T) {
	r, exec := newTestRouter(t)

	rr := postCommand(r, `{"command":"kubectl get missing"}`)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Error executing command: not found", decodeDetail(t, rr))
	assert.Equal(t, 1, exec.calls)
}

func TestRunCommandRejected(t *testing.T) {
	r, exec := newTestRouter(t)

	for _, raw := range []string{"ls -la", "  KUBECTL GET PODS  ", "KubeCtl get pods", " kubectl get pods"} {
		body, err := json.Marshal(models.CommandRequest{Command: raw})
		require.NoError(t, err)

		rr := postCommand(r, string(body))

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, raw)
		assert.Equal(t, "Command must start with 'kubectl'", decodeDetail(t, rr), raw)
	}
	assert.Zero(t, exec.calls)
}

func TestRunCommandMalformedBody(t *testing.T) {
	r, exec := newTestRouter(t)

	for _, body := range []string{``, `{`, `{}`, `{"command":""}`, `{"command":42}`, `["kubectl"]`} {
		rr := postCommand(r, body)

		require.Equal(t, http.StatusUnprocessableEntity, rr.Code, body)
		assert.True(t, strings.HasPrefix(decodeDetail(t, rr), "Invalid request: "), body)
	}
	assert.Zero(t, exec.calls)
}

func TestRunCommandIsRepeatable(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, body := range []string{`{"command":"kubectl get pods"}`, `{"command":"kubectl get missing"}`} {
		first := postCommand(r, body)
		second := postCommand(r, body)
		assert.Equal(t, first.Code, second.Code, body)
		assert.Equal(t, first.Body.String(), second.Body.String(), body)
	}
}

func TestRunCommandTimeout(t *testing.T) {
	testutil.FakeKubectl(t, testutil.KubectlScript)
	exec := runner.New(runner.Options{Timeout: 200 * time.Millisecond})
	r := NewRouter(NewHandler(exec), RouterOptions{Logger: zerolog.Nop()})

	rr := postCommand(r, `{"command":"kubectl sleep"}`)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, decodeDetail(t, rr), "command timed out after 200ms")
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	postCommand(r, `{"command":"kubectl get pods"}`)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `k8s_agent_command_executions_total{outcome="succeeded"}`)
}

func TestMetricsDisabled(t *testing.T) {
	r := NewRouter(NewHandler(runner.New(runner.Options{})), RouterOptions{Logger: zerolog.Nop()})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUnknownRoute(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/command", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
