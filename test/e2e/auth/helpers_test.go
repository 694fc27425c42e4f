package auth_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aixasz/AixaszSampleProject/pkg/authsdk"
)

/*
 * Common constants and helpers for the auth service end-to-end tests. The
 * container starts on an empty database, so the built-in seed provisions
 * the clients and the user below.
 */

const (
	testImageName = "aixasz-auth-test:latest"
	testIssuer    = "http://auth.e2e.local/"
	testAudience  = "resource_server"

	ccClientID = "aixasz-client"
	ccSecret   = "f128d22c-412d-469e-94c0-e1eb366e7f1b"

	pwClientID = "sample-api"
	pwSecret   = "c44f6ec2-ce1e-4920-a4f9-3e77dd0793c9"

	adminClientID = "aixasz-admin"
	adminSecret   = "3c7a1e52-9f0b-4d6e-8a21-5b94d0e7c6f3"

	testUsername = "devrock"
	testPassword = "P@ssw0rd!"
)

var userScopes = []string{"openid", "email", "profile", "roles", "offline_access"}

// TestMain builds the Docker image once before all tests and removes it
// after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

// baseEnv relaxes the rate limits so tests are not throttled by each other.
func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_AUTH_ISSUER":               testIssuer,
		"AUTH_AUTH_AUDIENCE":             testAudience,
		"AUTH_KEYS_ALGORITHM":            "EdDSA",
		"AUTH_LOGGING_LEVEL":             "info",
		"AUTH_LOGGING_FORMAT":            "json",
		"AUTH_LOGGING_ENV":               "test",
		"AUTH_RATE_LIMIT_TOKEN_REQUESTS": "1000",
		"AUTH_RATE_LIMIT_TOKEN_BURST":    "1000",
		"AUTH_RATE_LIMIT_ADMIN_REQUESTS": "1000",
		"AUTH_RATE_LIMIT_ADMIN_BURST":    "1000",
	}
}

// setupAuthContainer starts the auth service and returns its base URL.
// overrides are merged over baseEnv. The container is terminated when the
// test ends.
func setupAuthContainer(t *testing.T, overrides map[string]string, files ...testcontainers.ContainerFile) string {
	t.Helper()
	ctx := context.Background()

	env := baseEnv()
	maps.Copy(env, overrides)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          env,
			Files:        files,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func newClient(t *testing.T) *authsdk.SDKClient {
	t.Helper()
	return authsdkClient(t, nil)
}

func authsdkClient(t *testing.T, env map[string]string) *authsdk.SDKClient {
	t.Helper()
	return authsdkClientFor(setupAuthContainer(t, env))
}

func authsdkClientFor(baseURL string) *authsdk.SDKClient {
	return authsdk.NewSDKClient(baseURL)
}

func adminSession(t *testing.T, client *authsdk.SDKClient) *authsdk.Session {
	t.Helper()
	s, err := client.AuthenticateWithClientCredentials(t.Context(), adminClientID, adminSecret, []string{"admin"})
	require.NoError(t, err)
	return s
}

func userSession(t *testing.T, client *authsdk.SDKClient, scopes ...string) *authsdk.Session {
	t.Helper()
	if len(scopes) == 0 {
		scopes = userScopes
	}
	s, err := client.AuthenticateWithPassword(t.Context(), pwClientID, pwSecret, testUsername, testPassword, scopes)
	require.NoError(t, err)
	return s
}

// requireOAuthError checks the wire error code and HTTP status.
func requireOAuthError(t *testing.T, err error, want *authsdk.OAuth2Error) {
	t.Helper()
	require.Error(t, err)
	var oe *authsdk.OAuth2Error
	require.ErrorAs(t, err, &oe)
	require.Equal(t, want.Code, oe.Code)
	require.Equal(t, want.StatusCode, oe.StatusCode)
}

func requireAPIError(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	var ae *authsdk.APIError
	require.ErrorAs(t, err, &ae)
	require.Equal(t, status, ae.StatusCode)
}

// statusOf extracts the HTTP status from either SDK error type. Bearer
// failures carry no body, so their code is not asserted.
func statusOf(t *testing.T, err error) int {
	t.Helper()
	require.Error(t, err)
	var oe *authsdk.OAuth2Error
	if errors.As(err, &oe) {
		return oe.StatusCode
	}
	var ae *authsdk.APIError
	if errors.As(err, &ae) {
		return ae.StatusCode
	}
	t.Fatalf("unexpected error type %T: %v", err, err)
	return 0
}
