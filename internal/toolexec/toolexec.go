// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package toolexec spawns external compression tools as opaque
// argv-only child processes and caches probe results for one process
// lifetime.
package toolexec

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Hellseher/go-shellquote"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Tool is one external compression binary this process may invoke.
type Tool struct {
	// Name is the binary name or absolute path passed to exec.
	Name string
}

// Runner probes and invokes external tools, caching probe outcomes so a
// tool absent from PATH is only attempted once per process lifetime.
type Runner struct {
	mu     sync.Mutex
	probed map[string]bool

	// searchPath, when non-empty, is searched before PATH when resolving
	// tool names to an executable (os.PathListSeparator-joined, same as
	// PATH itself). Empty means "use the process's own PATH".
	searchPath string
}

// NewRunner returns an empty Runner that resolves tools against the
// process's own PATH.
func NewRunner() *Runner {
	return &Runner{probed: make(map[string]bool)}
}

// NewRunnerWithSearchPath is like NewRunner but resolves tool names
// against searchPath first, falling back to the process's own PATH for
// names not found there, letting a deployment point at a private
// directory of compression binaries (e.g. statically linked
// pigz/pbzip2/pixz/pzstd builds) without mutating the whole process's
// environment.
func NewRunnerWithSearchPath(searchPath string) *Runner {
	return &Runner{probed: make(map[string]bool), searchPath: searchPath}
}

// Available reports whether tool responds successfully to a probe
// invocation (`--version`, falling back to `--help`), caching the result.
func (r *Runner) Available(ctx context.Context, tool Tool) bool {
	r.mu.Lock()
	if ok, cached := r.probed[tool.Name]; cached {
		r.mu.Unlock()
		return ok
	}
	r.mu.Unlock()

	ok := r.probe(ctx, tool, "--version") || r.probe(ctx, tool, "--help")

	r.mu.Lock()
	r.probed[tool.Name] = ok
	r.mu.Unlock()
	return ok
}

func (r *Runner) probe(ctx context.Context, tool Tool, flag string) bool {
	cmd := exec.CommandContext(ctx, r.resolve(tool), flag)
	err := cmd.Run()
	return err == nil
}

// resolve returns the path exec should invoke for tool: tool.Name
// unchanged when no searchPath override is set (exec.Command then
// resolves it against the process's own PATH), or the first match for
// tool.Name found by walking searchPath's directories otherwise.
func (r *Runner) resolve(tool Tool) string {
	if r.searchPath == "" || filepath.IsAbs(tool.Name) {
		return tool.Name
	}
	for _, dir := range strings.Split(r.searchPath, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, tool.Name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return tool.Name
}

// Run spawns tool with an explicit argument vector (no shell), awaits
// completion, and returns its captured stdout. A non-zero exit or spawn
// failure is a non-fatal ToolFailure, returned as an error for the
// caller to discard per-candidate.
func (r *Runner) Run(ctx context.Context, tool Tool, args []string) ([]byte, error) {
	path := r.resolve(tool)
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	log.Debug().
		Str("tool", tool.Name).
		Str("argv", shellquote.Join(append([]string{path}, args...)...)).
		Msg("invoking external compression tool")

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, "toolexec: run %s", tool.Name)
	}
	return stdout.Bytes(), nil
}
