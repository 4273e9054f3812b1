package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creachadair/stoplight"
	"github.com/creachadair/stoplight/config"
)

func init() { color.NoColor = true }

func TestRun_Transitions(t *testing.T) {
	defer leaktest.Check(t)()

	var stdout, stderr bytes.Buffer
	o := opts{
		Min:         2 * time.Millisecond,
		Max:         3 * time.Millisecond,
		Waiters:     2,
		Transitions: 4,
		NoColor:     true,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, run(ctx, o, &stdout, &stderr))

	out := stdout.String()
	assert.Contains(t, out, "signal is red")
	assert.Contains(t, out, "#1 red -> green")
	assert.Contains(t, out, "#2 green -> red")
	assert.Contains(t, out, "#4 green -> red")
	assert.NotContains(t, out, "#5 ")
	assert.Contains(t, out, "stopped after 4 transitions")
	assert.Empty(t, stderr.String(), "no debug output unless requested")
}

func TestRun_Interrupted(t *testing.T) {
	defer leaktest.Check(t)()

	var stdout, stderr bytes.Buffer
	o := opts{Min: time.Hour, Max: 2 * time.Hour, Waiters: 3, Debug: true}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, run(ctx, o, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "stopped after 0 transitions, 0 crossings")
	assert.Contains(t, stderr.String(), "[debug]")
	assert.Contains(t, stderr.String(), "stoplight: stopped in phase red")
}

func TestRun_ConfigFile(t *testing.T) {
	defer leaktest.Check(t)()

	path := filepath.Join(t.TempDir(), "stoplight.yml")
	require.NoError(t, os.WriteFile(path, []byte("initial: green\ncycle:\n  min: 1ms\n  max: 2ms\n  seed: 3\n"), 0o600))

	var stdout, stderr bytes.Buffer
	o := opts{Config: path, Transitions: 1}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, run(ctx, o, &stdout, &stderr))
	out := stdout.String()
	assert.Contains(t, out, "signal is green; cycle 1ms–2ms")
	assert.Contains(t, out, "#1 green -> red")
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	var stdout, stderr bytes.Buffer

	err := run(ctx, opts{Config: filepath.Join(t.TempDir(), "missing.yml")}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")

	err = run(ctx, opts{Min: 5 * time.Second, Max: time.Second}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid settings")

	err = run(ctx, opts{Min: time.Millisecond, Max: 2 * time.Millisecond, Waiters: -1}, &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid number of waiters")
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, applyFlags(cfg, opts{Initial: "green", Max: 9 * time.Second, Seed: 11}))
	assert.Equal(t, stoplight.Green, cfg.Initial)
	assert.Equal(t, config.Duration(4*time.Second), cfg.Cycle.Min)
	assert.Equal(t, config.Duration(9*time.Second), cfg.Cycle.Max)
	assert.Equal(t, uint64(11), cfg.Cycle.Seed)

	err := applyFlags(config.Default(), opts{Initial: "amber"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "amber"))
}
