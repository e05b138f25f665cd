package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-arcade/conveyor/pkg/http/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const localPipeline = `
name: local
triggers:
  push:
    branches: [main]
stages:
  - name: build
    steps:
      - id: version
        run: echo "version=1.2.3" >> "$CONVEYOR_OUTPUT"
  - name: test
    needs: [build]
    steps:
      - run: test "${{ needs.build.outputs.version }}" = "1.2.3"
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestValidateCommand(t *testing.T) {
	good := writeTemp(t, "local.yaml", localPipeline)
	bad := writeTemp(t, "bad.yaml", "name: broken\nstages: []\n")
	missingConf := filepath.Join(t.TempDir(), "none.toml")

	out, err := execute(t, "validate", "-c", missingConf, good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok   "+good)
	assert.Contains(t, out, "order: build -> test")

	out, err = execute(t, "validate", "-c", missingConf, good, bad)
	assert.Error(t, err)
	assert.Contains(t, out, "FAIL "+bad)
}

func TestRunCommand(t *testing.T) {
	conf := writeTemp(t, "config.toml", "[executor]\nworkspace = \""+filepath.ToSlash(t.TempDir())+"\"\n[storage]\nprovider = \"local\"\ndir = \""+filepath.ToSlash(t.TempDir())+"\"\n")
	pl := writeTemp(t, "local.yaml", localPipeline)

	out, err := execute(t, "run", "-c", conf, pl, "--ref", "refs/heads/main", "--sha", "abc123")
	require.NoError(t, err, out)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "test")
}

func TestTokenCommand(t *testing.T) {
	conf := writeTemp(t, "config.toml", "[http.auth]\nsecretKey = \"cli-secret\"\n")

	out, err := execute(t, "token", "-c", conf, "alice")
	require.NoError(t, err)
	claims, err := jwt.ParseToken(string(bytes.TrimSpace([]byte(out))), "cli-secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
}

func TestApproveCommand(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"msg":"Request Success","detail":{"id":"ap1","run_id":"r1","stage":"deploy","status":"approved","decided_by":"alice"}}`))
	}))
	defer srv.Close()

	out, err := execute(t, "approve", "ap1", "--server", srv.URL, "--token", "tok", "-m", "ship it")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/approvals/ap1/approve", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Contains(t, out, "stage deploy of run r1 is approved by alice")
}

func TestRejectCommandError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code":4031,"errMsg":"approver is not allowed to decide"}`))
	}))
	defer srv.Close()

	_, err := execute(t, "reject", "ap1", "--server", srv.URL, "--token", "tok")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}
