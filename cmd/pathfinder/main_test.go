// File: cmd/pathfinder/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
}

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, []string{"interactive"}, commandArgs(nil))
	assert.Equal(t, []string{"fill", "--url", "x"}, commandArgs([]string{"fill", "--url", "x"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, exitInterrupted, exitCode(fmt.Errorf("batch: %w", context.Canceled)))
	assert.Equal(t, 1, exitCode(errors.New("authentication failed")))
}

func TestHandlePanic(t *testing.T) {
	defer resetMocks()

	t.Run("writes the panic log", func(t *testing.T) {
		var (
			written  string
			exitCode = -1
		)
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = string(data)
			return nil
		}
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("selector table corrupted")
		}()

		assert.Equal(t, 2, exitCode)
		assert.Contains(t, written, "panic: selector table corrupted")
		assert.Contains(t, written, "goroutine", "stack trace is included")
	})

	t.Run("falls back to stderr when the log cannot be written", func(t *testing.T) {
		exitCode := -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only file system") }
		osExit = func(code int) { exitCode = code }

		func() {
			defer handlePanic()
			panic("boom")
		}()

		assert.Equal(t, 2, exitCode)
	})

	t.Run("does nothing without a panic", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }

		func() {
			defer handlePanic()
		}()

		require.False(t, called)
	})
}
