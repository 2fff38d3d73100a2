package observability

import (
	"context"
	"os"
	"testing"
)

func TestSetupDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv(endpointEnv, "")
	os.Unsetenv(endpointEnv)

	shutdown := Setup(context.Background(), nil)
	if shutdown == nil {
		t.Fatal("shutdown func must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("noop shutdown error = %v", err)
	}
}
