package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const (
	binaryEnvVar          = "CMDSRV_TEST_BINARY"
	binaryBaseName        = "cmdsrv_e2e_binary"
	startupMessagePrefix  = "cmdsrv listening on "
	unbindMethod          = "UNBIND"
	startupTimeout        = 10 * time.Second
	requestTimeout        = 2 * time.Second
	processExitTimeout    = 10 * time.Second
	localConfigFileName   = ".cmdsrv.yaml"
	localConfigFileFormat = "server:\n  address: 127.0.0.1:0\n  home: %s\nlog:\n  level: error\n"
)

func TestServeEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}

	binaryPath := resolveBinary(t)
	workingDirectory := t.TempDir()
	homeDirectory := t.TempDir()
	stateDirectory := filepath.Join(homeDirectory, "state")
	configuration := fmt.Sprintf(localConfigFileFormat, stateDirectory)
	if err := os.WriteFile(filepath.Join(workingDirectory, localConfigFileName), []byte(configuration), 0o600); err != nil {
		t.Fatalf("write configuration: %v", err)
	}

	processCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	command := exec.CommandContext(processCtx, binaryPath, "serve")
	command.Dir = workingDirectory
	command.Env = append(os.Environ(), "HOME="+homeDirectory)
	stdoutPipe, stdoutErr := command.StdoutPipe()
	if stdoutErr != nil {
		t.Fatalf("stdout pipe: %v", stdoutErr)
	}
	command.Stderr = os.Stderr
	if err := command.Start(); err != nil {
		t.Fatalf("start cmdsrv serve: %v", err)
	}

	address := waitForStartup(t, stdoutPipe)

	assertCandidates(t, address, "", []string{"credentials", "server"})
	assertCandidates(t, address, "cmdsrv credentials", []string{"GITHUB_API", "GITHUB_SSH", "list"})
	assertNotFound(t, address)

	waitResult := make(chan error, 1)
	go func() { waitResult <- command.Wait() }()

	status, _ := send(t, unbindMethod, "http://"+address+"/server/stop", "")
	if status != http.StatusOK {
		t.Fatalf("stop status: %d", status)
	}

	select {
	case err := <-waitResult:
		if err != nil {
			t.Fatalf("cmdsrv serve exited with error: %v", err)
		}
	case <-time.After(processExitTimeout):
		t.Fatalf("cmdsrv serve did not exit after stop")
	}
}

func resolveBinary(t *testing.T) string {
	t.Helper()
	if custom := os.Getenv(binaryEnvVar); custom != "" {
		return custom
	}
	binaryName := binaryBaseName
	if runtime.GOOS == "windows" {
		binaryName += ".exe"
	}
	binaryPath := filepath.Join(t.TempDir(), binaryName)
	// #nosec G204
	buildCommand := exec.Command("go", "build", "-o", binaryPath, ".")
	combinedOutput, buildErr := buildCommand.CombinedOutput()
	if buildErr != nil {
		t.Fatalf("build failed: %v\n%s", buildErr, string(combinedOutput))
	}
	return binaryPath
}

func waitForStartup(t *testing.T, reader io.Reader) string {
	t.Helper()
	lineCh := make(chan string)
	go func() {
		scanner := bufio.NewScanner(reader)
		for scanner.Scan() {
			lineCh <- scanner.Text()
		}
		close(lineCh)
	}()
	timeout := time.After(startupTimeout)
	for {
		select {
		case <-timeout:
			t.Fatalf("timeout waiting for startup message")
		case line, ok := <-lineCh:
			if !ok {
				t.Fatalf("startup stream closed before reporting address")
			}
			if strings.HasPrefix(line, startupMessagePrefix) {
				address := strings.TrimPrefix(line, startupMessagePrefix)
				go func() {
					for range lineCh {
					}
				}()
				return address
			}
		}
	}
}

func send(t *testing.T, method string, target string, accept string) (int, []byte) {
	t.Helper()
	client := http.Client{Timeout: requestTimeout}
	request, err := http.NewRequest(method, target, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if accept != "" {
		request.Header.Set("Accept", accept)
	}
	response, err := client.Do(request)
	if err != nil {
		t.Fatalf("%s %s: %v", method, target, err)
	}
	defer response.Body.Close()
	var body bytes.Buffer
	if _, err := body.ReadFrom(response.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return response.StatusCode, body.Bytes()
}

func assertCandidates(t *testing.T, address string, partial string, expected []string) {
	t.Helper()
	target := "http://" + address + "/server/next-commands"
	if partial != "" {
		target += "?command=" + strings.ReplaceAll(partial, " ", "+")
	}
	status, body := send(t, http.MethodGet, target, "application/json")
	if status != http.StatusOK {
		t.Fatalf("next-commands status for %q: %d (%s)", partial, status, string(body))
	}
	var candidates []string
	if err := json.Unmarshal(body, &candidates); err != nil {
		t.Fatalf("decode candidates: %v", err)
	}
	if strings.Join(candidates, ",") != strings.Join(expected, ",") {
		t.Fatalf("unexpected candidates for %q: %v", partial, candidates)
	}
}

func assertNotFound(t *testing.T, address string) {
	t.Helper()
	status, body := send(t, http.MethodGet, "http://"+address+"/no/such/command", "")
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Message == "" {
		t.Fatalf("expected message payload, got %q", string(body))
	}
}
