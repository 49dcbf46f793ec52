package gittest

import (
	"net"
	"net/http/cgi"
	"net/http/httptest"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// gitBinary returns the git executable, skipping the test when there is none.
func gitBinary(t testing.TB) string {
	path, err := exec.LookPath("git")
	if err != nil {
		t.Skip("git is not on PATH")
	}
	return path
}

// ServeDaemon exports every repository under base with git daemon on a free
// local port and returns the git:// URL of base. The daemon is stopped when
// the test ends.
func ServeDaemon(t testing.TB, base string) string {
	gitPath := gitBinary(t)
	port := freePort(t)
	cmd := exec.Command(gitPath, "daemon",
		"--export-all",
		"--reuseaddr",
		"--base-path="+base,
		"--listen=127.0.0.1",
		"--port="+strconv.Itoa(port),
		base,
	)
	if err := cmd.Start(); err != nil {
		t.Skipf("starting git daemon: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 10*time.Second, 50*time.Millisecond, "git daemon did not come up on %s", addr)
	return "git://" + addr
}

// ServeHTTP serves every repository under base over the smart HTTP protocol
// through git http-backend and returns the http:// URL of base.
func ServeHTTP(t testing.TB, base string) string {
	h := &cgi.Handler{
		Path: gitBinary(t),
		Args: []string{"http-backend"},
		Env: []string{
			"GIT_PROJECT_ROOT=" + base,
			"GIT_HTTP_EXPORT_ALL=1",
		},
		InheritEnv: []string{"PATH", "HOME"},
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func freePort(t testing.TB) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}
