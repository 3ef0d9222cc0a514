package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// embeddedPrompts holds the default per-stage prompts compiled into the
// binary. Projects override them by dropping same-named .txt files in
// .ralphflow/prompts/.
//
//go:embed prompts/*.txt
var embeddedPrompts embed.FS

// Stage prompt names. Each pipeline stage that talks to the assistant has a
// template here; plan_rework is used when a plan fails validation or final
// approval sends the session back to planning.
const (
	Discovery     = "discovery"
	Planning      = "planning"
	Implementing  = "implementing"
	PRCreation    = "pr_creation"
	PRReview      = "pr_review"
	FinalApproval = "final_approval"
	PlanRework    = "plan_rework"
)

// Loader renders prompt templates, searching a chain of filesystems and
// falling back to the embedded defaults. Safe for concurrent use.
type Loader struct {
	sources []fs.FS
	funcMap template.FuncMap

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// NewLoader builds a loader for projectDir. Lookup order:
// .ralphflow/prompts/ in the project, then prompts/, then the embedded
// defaults.
func NewLoader(projectDir string) *Loader {
	embedded, _ := fs.Sub(embeddedPrompts, "prompts")
	return &Loader{
		sources: []fs.FS{
			os.DirFS(projectDir + "/.ralphflow/prompts"),
			os.DirFS(projectDir + "/prompts"),
			embedded,
		},
		cache:   make(map[string]*template.Template),
		funcMap: promptFuncs(),
	}
}

// AddSearchDir puts dir in front of the lookup chain.
func (l *Loader) AddSearchDir(dir string) {
	l.sources = append([]fs.FS{os.DirFS(dir)}, l.sources...)
}

// AddFunc registers a custom template function. Call before the first
// Load; cached templates keep the funcs they were parsed with.
func (l *Loader) AddFunc(name string, fn any) {
	l.funcMap[name] = fn
}

// Load renders a prompt without variables.
func (l *Loader) Load(name string) (string, error) {
	return l.LoadWithVars(name, nil)
}

// LoadWithVars renders the named prompt with the given variables.
func (l *Loader) LoadWithVars(name string, vars map[string]any) (string, error) {
	tmpl, err := l.template(name)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// Exists reports whether a prompt can be resolved.
func (l *Loader) Exists(name string) bool {
	_, err := l.raw(name)
	return err == nil
}

// List returns every resolvable prompt name, overrides and embedded
// defaults combined.
func (l *Loader) List() ([]string, error) {
	seen := make(map[string]bool)
	for _, src := range l.sources {
		entries, err := fs.ReadDir(src, ".")
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if name, ok := strings.CutSuffix(entry.Name(), ".txt"); ok {
				seen[name] = true
			}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	return names, nil
}

// ClearCache drops every cached template.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*template.Template)
	l.mu.Unlock()
}

func (l *Loader) template(name string) (*template.Template, error) {
	l.mu.RLock()
	tmpl, ok := l.cache[name]
	l.mu.RUnlock()
	if ok {
		return tmpl, nil
	}

	content, err := l.raw(name)
	if err != nil {
		return nil, err
	}

	tmpl, err = template.New(name).Funcs(l.funcMap).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
	}

	l.mu.Lock()
	l.cache[name] = tmpl
	l.mu.Unlock()
	return tmpl, nil
}

func (l *Loader) raw(name string) (string, error) {
	filename := name + ".txt"
	for _, src := range l.sources {
		if data, err := fs.ReadFile(src, filename); err == nil {
			return string(data), nil
		}
	}
	return "", fmt.Errorf("prompt not found: %s", name)
}

func promptFuncs() template.FuncMap {
	return template.FuncMap{
		"join":     strings.Join,
		"split":    strings.Split,
		"trim":     strings.TrimSpace,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"title":    cases.Title(language.English).String,
		"contains": strings.Contains,
		"replace":  strings.ReplaceAll,
		"indent":   indent,
		"default":  orDefault,
		"quote":    func(s string) string { return fmt.Sprintf("%q", s) },
	}
}

// indent prefixes every non-empty line of s with n spaces.
func indent(n int, s string) string {
	if s == "" {
		return s
	}
	prefix := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// orDefault substitutes fallback for nil or empty-string values.
func orDefault(fallback, value any) any {
	if value == nil {
		return fallback
	}
	if s, ok := value.(string); ok && s == "" {
		return fallback
	}
	return value
}

// Builder assembles a prompt from markdown fragments.
type Builder struct {
	parts []string
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a raw fragment.
func (b *Builder) Add(text string) *Builder {
	b.parts = append(b.parts, text)
	return b
}

// AddSection appends a "## header" section with content.
func (b *Builder) AddSection(header, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("## %s\n\n%s", header, content))
	return b
}

// AddList appends a bulleted list, optionally under a header.
func (b *Builder) AddList(header string, items []string) *Builder {
	var buf strings.Builder
	if header != "" {
		fmt.Fprintf(&buf, "## %s\n\n", header)
	}
	for _, item := range items {
		fmt.Fprintf(&buf, "- %s\n", item)
	}
	b.parts = append(b.parts, buf.String())
	return b
}

// AddFile appends file content wrapped in path-tagged markers.
func (b *Builder) AddFile(path, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("<file path=%q>\n%s\n</file>", path, content))
	return b
}

// Build joins the fragments with blank lines.
func (b *Builder) Build() string {
	return strings.Join(b.parts, "\n\n")
}

// Clear resets the builder.
func (b *Builder) Clear() {
	b.parts = nil
}
