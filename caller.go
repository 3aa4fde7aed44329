package arbor

import (
	"path"
	"runtime"
	"strconv"
	"strings"
)

// CallerInfo holds the source location and derived module identifier for
// one log call, produced by the module-name resolver described in
// spec.md §6.
type CallerInfo struct {
	File    string
	Line    int
	Module  string
	defined bool
}

// String returns "file:line".
func (c CallerInfo) String() string {
	if !c.defined {
		return ""
	}
	return c.File + ":" + strconv.Itoa(c.Line)
}

// Defined reports whether caller info was captured.
func (c CallerInfo) Defined() bool {
	return c.defined
}

// packagePathTemplate is an optional single-"?"-placeholder template (e.g.
// "src/?/main.go") used by resolveModuleName to derive a dotted module
// identifier from a package-relative path. Empty disables template
// matching. Configurable via SetPackagePathTemplate for embedders whose
// source tree doesn't match the GOPATH/module-cache layout.
var packagePathTemplate string

// SetPackagePathTemplate configures the package-path template consulted
// by the caller-info resolver (spec.md §6). Pass "" to disable.
func SetPackagePathTemplate(tmpl string) {
	packagePathTemplate = tmpl
}

// captureCaller captures the caller's file, line, and derived module name
// at the given skip depth.
func captureCaller(skip int) CallerInfo {
	pc, file, line, ok := runtime.Caller(skip)
	_ = pc
	if !ok {
		return CallerInfo{}
	}

	short := file
	if idx := strings.LastIndex(file, "/"); idx >= 0 {
		if idx2 := strings.LastIndex(file[:idx], "/"); idx2 >= 0 {
			short = file[idx2+1:]
		}
	}

	return CallerInfo{
		File:    short,
		Line:    line,
		Module:  resolveModuleName(file, packagePathTemplate),
		defined: true,
	}
}

// resolveModuleName implements the strategy from spec.md §6: strip a
// leading "@" or trailing "[C]"/"(tail call)" decoration, then:
//  1. if the path's basename is "init.<ext>", the identifier is the
//     parent directory's basename;
//  2. else if the path matches a configured single-"?"-placeholder
//     package-path template, the identifier is that placeholder segment
//     with path separators turned into dots;
//  3. otherwise the identifier is the basename without its extension for
//     source files, or the full path with separators turned into dots
//     for non-source files.
func resolveModuleName(raw, template string) string {
	p := strings.TrimPrefix(raw, "@")
	p = strings.TrimSuffix(p, "[C]")
	p = strings.TrimSuffix(p, "(tail call)")
	p = strings.TrimSpace(p)
	if p == "" {
		return "anonymous"
	}

	base := path.Base(p)
	ext := path.Ext(base)

	if stem := strings.TrimSuffix(base, ext); stem == "init" && ext != "" {
		dir := path.Dir(p)
		return path.Base(dir)
	}

	if template != "" {
		if seg, ok := matchPackageTemplate(p, template); ok {
			return strings.ReplaceAll(seg, "/", ".")
		}
	}

	if isSourceExt(ext) {
		return strings.TrimSuffix(base, ext)
	}
	return strings.ReplaceAll(strings.TrimPrefix(p, "/"), "/", ".")
}

func isSourceExt(ext string) bool {
	switch ext {
	case ".go", ".lua", ".py", ".rb", ".js", ".ts":
		return true
	default:
		return false
	}
}

// matchPackageTemplate matches p against a template containing exactly one
// "?" placeholder, e.g. "pkg/?/mod.go" matching "pkg/foo/bar/mod.go"
// capturing "foo/bar".
func matchPackageTemplate(p, template string) (string, bool) {
	idx := strings.Index(template, "?")
	if idx < 0 {
		return "", false
	}
	prefix, suffix := template[:idx], template[idx+1:]
	if !strings.HasPrefix(p, prefix) || !strings.HasSuffix(p, suffix) {
		return "", false
	}
	rest := strings.TrimPrefix(p, prefix)
	rest = strings.TrimSuffix(rest, suffix)
	if rest == "" {
		return "", false
	}
	return rest, true
}

// captureStack returns a formatted stack trace, used only by the step
// executor to annotate diagnostics for a recovered panic.
func captureStack(skip int) string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var b strings.Builder
	b.Grow(512)

	for {
		frame, more := frames.Next()
		b.WriteString(frame.Function)
		b.WriteByte('\n')
		b.WriteByte('\t')
		b.WriteString(frame.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(frame.Line))
		b.WriteByte('\n')
		if !more {
			break
		}
	}

	return b.String()
}
