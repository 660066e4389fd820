// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/gscientist/internal/agent"
	"github.com/pdiddy/gscientist/pkg/types"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", true)
	require.NoError(t, err)
	l.Info().Msg("hidden")
	l.Warn().Msg("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)

	_, err = newLogger(&buf, "loud", false)
	assert.True(t, types.IsConfigurationError(err))
}

func TestSettingsFor(t *testing.T) {
	c := types.Config{Arxiv: types.DefaultArxivConfig(), Scholar: types.DefaultScholarConfig()}

	a := settingsFor(types.SourceArxiv, c)
	assert.Equal(t, types.SourceArxiv, a.Kind)
	assert.Equal(t, 4, a.Engine.Segments)
	assert.Equal(t, "submittedDate", a.SortBy)

	s := settingsFor(types.SourceScholar, c)
	assert.Equal(t, 1, s.Engine.Segments)
	assert.Equal(t, 10, s.Engine.BatchSize)
	assert.Equal(t, 3*time.Second, s.Engine.DelayMin)
}

type failingSink struct{ err error }

func (f failingSink) WriteBatch([]types.Paper) error { return f.err }

type countingSink struct{ n int }

func (c *countingSink) WriteBatch(p []types.Paper) error { c.n += len(p); return nil }

func TestMultiSinkWritesAll(t *testing.T) {
	boom := errors.New("boom")
	c := &countingSink{}
	m := multiSink{failingSink{boom}, c}

	err := m.WriteBatch(make([]types.Paper, 3))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, c.n, "later sinks still receive the batch")
}

func TestDefaultResultName(t *testing.T) {
	now := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	assert.Equal(t, "scholar-20250203-040506.csv", defaultResultName(types.SourceScholar, now))
}

func TestChatLoop(t *testing.T) {
	in := strings.NewReader("hello\n\n/reset\nsecond\n/exit\nignored\n")
	var out bytes.Buffer
	resets := 0

	err := chatLoop(context.Background(), agent.Echo{Prefix: "> echo "}, func() { resets++ }, in, &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "echo hello")
	assert.Contains(t, out.String(), "echo second")
	assert.NotContains(t, out.String(), "ignored")
	assert.Equal(t, 1, resets)
}
