// Copyright (c) 2026, the piecemend contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package formats

import "strings"

// Registry maps a file extension to the Plugin that handles it. It is
// built once by NewRegistry and is read-only for the remainder of a
// recover invocation; production code never mutates it after
// construction, matching the "mutable global registry" design note.
type Registry struct {
	byExt map[string]Plugin
}

// NewRegistry constructs a Registry from an explicit plugin list, rather
// than a package-level init(), so callers (and tests) control exactly
// which plugins are active.
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{byExt: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		r.byExt[p.Extension()] = p
	}
	return r
}

// Lookup returns the plugin registered for a file's extension, matched
// case-insensitively, e.g. ".gz" or ".GZ".
func (r *Registry) Lookup(ext string) (Plugin, bool) {
	p, ok := r.byExt[strings.ToLower(ext)]
	return p, ok
}

// Extensions returns every extension with a registered plugin.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}
