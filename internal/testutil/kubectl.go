// Package testutil provides a stand-in kubectl so tests never need a cluster.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// KubectlScript answers a handful of fixed invocations:
//
//	kubectl get pods     -> "pod-a\npod-b\n" on stdout, exit 0
//	kubectl get missing  -> "not found" on stderr, exit 1
//	kubectl sleep        -> sleeps 30s
//	kubectl exit N       -> exit N
const KubectlScript = `#!/bin/sh
case "$1 $2" in
"get pods")
	printf 'pod-a\npod-b\n'
	;;
"get missing")
	printf 'not found' >&2
	exit 1
	;;
"sleep ")
	sleep 30
	;;
"exit "*)
	exit "$2"
	;;
*)
	printf 'error: unknown command "%s"\n' "$*" >&2
	exit 1
	;;
esac
`

// FakeKubectl writes script as an executable named kubectl into a temp dir
// and puts that dir first on PATH for the rest of the test.
func FakeKubectl(t testing.TB, script string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "kubectl")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake kubectl: %v", err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return path
}
