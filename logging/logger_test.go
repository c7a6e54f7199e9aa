package logging

import (
	"context"
	"errors"
	"os"
	"testing"

	migErrors "github.com/c0deZ3R0/go-migrate-kit/errors"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level string
	}{
		{"debug"},
		{"info"},
		{"warn"},
		{"error"},
		{"bogus"}, // falls back to info
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := NewLogger(Config{Level: tt.level, Format: "text"})
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
		})
	}
}

func TestGetConfigFromEnv(t *testing.T) {
	os.Setenv("LOG_LEVEL", "WARN")
	os.Setenv("LOG_FORMAT", "TEXT")
	os.Setenv("ENVIRONMENT", "test")
	defer func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("LOG_FORMAT")
		os.Unsetenv("ENVIRONMENT")
	}()

	config := GetConfigFromEnv()
	if config.Level != "warn" {
		t.Errorf("Level = %s, want warn", config.Level)
	}
	if config.Format != "text" {
		t.Errorf("Format = %s, want text", config.Format)
	}
	if config.Environment != "test" {
		t.Errorf("Environment = %s, want test", config.Environment)
	}
}

func TestLogError_WithMigrationError(t *testing.T) {
	logger := NewLogger(Config{Level: "debug", Format: "text"})

	migErr := migErrors.NewResolutionError(migErrors.OpConflictResolve, errors.New("handler failed"))
	migErr.Metadata = map[string]interface{}{"conflict_id": 42}

	// Should not panic with either error flavor.
	logger.LogError(context.Background(), migErr, "resolution failed")
	logger.LogError(context.Background(), errors.New("plain"), "plain failure")
}

func TestLogOperation(t *testing.T) {
	logger := NewLogger(Config{Level: "debug", Format: "text"})

	err := logger.LogOperation(context.Background(), Operation("resolve"), Component("manager"), func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantErr := errors.New("boom")
	err = logger.LogOperation(context.Background(), Operation("resolve"), Component("manager"), func() error {
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("expected error passthrough, got %v", err)
	}
}
