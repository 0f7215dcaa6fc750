// Package render compiles and executes the templates a build needs.
//
// All state lives on a Session created per build invocation, so
// helpers and partials registered for one site can never leak into
// another build. Template expansion is strictly sequential: a nested
// partial or helper call finishes before its output is embedded, and a
// document render returns only fully resolved HTML.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/sparkpress/sparkpress/internal/logging"
	"github.com/sparkpress/sparkpress/pkg/interfaces"
)

// ConfigError reports a missing template for a page's declared layout.
// It is fatal for that page.
type ConfigError struct {
	Template string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("render: template %q is not registered", e.Template)
}

// Session holds the compiled templates, namespaced partials, and
// helper registry for a single build invocation.
type Session struct {
	logger   interfaces.Logger
	helpers  template.FuncMap
	sources  map[string]string
	compiled *template.Template
	dirty    bool
}

// NewSession creates an empty render session.
func NewSession(logger interfaces.Logger) *Session {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Session{
		logger:  logger,
		helpers: template.FuncMap{},
		sources: map[string]string{},
	}
}

// PartialName namespaces a partial by its owning layout or theme so
// content types reusing a generic fragment name never collide.
func PartialName(ownerID, name string) string {
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if ownerID == "" {
		return name
	}
	return ownerID + "/" + name
}

// RegisterHelper installs a named helper function. Registration is
// idempotent: a second registration under the same name is ignored.
// Helpers may close over a context and perform blocking work (image
// transforms); the template engine awaits their return value before
// continuing.
func (s *Session) RegisterHelper(name string, fn any) {
	if name == "" || fn == nil {
		return
	}
	if _, exists := s.helpers[name]; exists {
		return
	}
	s.helpers[name] = fn
	s.dirty = true
}

// RegisterTemplate installs a named top-level template. Idempotent.
func (s *Session) RegisterTemplate(name, source string) {
	if name == "" {
		return
	}
	if _, exists := s.sources[name]; exists {
		return
	}
	s.sources[name] = source
	s.dirty = true
}

// RegisterPartial installs a reusable fragment under its owner's
// namespace. Idempotent.
func (s *Session) RegisterPartial(ownerID, name, source string) {
	s.RegisterTemplate(PartialName(ownerID, name), source)
}

// Has reports whether a template is registered under the given name.
func (s *Session) Has(name string) bool {
	_, ok := s.sources[name]
	return ok
}

// Compile parses every registered source now. Call it after the last
// registration when renders will run from multiple goroutines; once
// compiled and clean, Render only reads session state.
func (s *Session) Compile() error {
	_, err := s.ensureCompiled()
	return err
}

// Render executes a named template against data. A missing template is
// a configuration error, fatal for the page that declared it.
func (s *Session) Render(name string, data any) (string, error) {
	root, err := s.ensureCompiled()
	if err != nil {
		return "", err
	}
	tpl := root.Lookup(name)
	if tpl == nil {
		return "", &ConfigError{Template: name}
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: execute %q: %w", name, err)
	}
	return buf.String(), nil
}

// RenderPartial executes a namespaced fragment. A missing partial
// degrades to an inline diagnostic placeholder and a logged warning so
// the rest of the page still renders.
func (s *Session) RenderPartial(ownerID, name string, data any) (string, error) {
	full := PartialName(ownerID, name)
	root, err := s.ensureCompiled()
	if err != nil {
		return "", err
	}
	tpl := root.Lookup(full)
	if tpl == nil {
		s.logger.Warn("partial not registered, emitting placeholder", "partial", full)
		return fmt.Sprintf("<!-- missing partial: %s -->", full), nil
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render: execute partial %q: %w", full, err)
	}
	return buf.String(), nil
}

// ensureCompiled (re)parses every registered source with the current
// helper set. Compilation happens at most once per registration
// generation.
func (s *Session) ensureCompiled() (*template.Template, error) {
	if !s.dirty && s.compiled != nil {
		return s.compiled, nil
	}
	root := template.New("session").Funcs(s.helpers)
	for name, source := range s.sources {
		if _, err := root.New(name).Parse(source); err != nil {
			return nil, fmt.Errorf("render: parse template %q: %w", name, err)
		}
	}
	s.compiled = root
	s.dirty = false
	return root, nil
}
