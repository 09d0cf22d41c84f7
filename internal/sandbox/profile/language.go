// Package profile defines language specifications used by the sandbox.
package profile

import (
	"path/filepath"
	"strings"

	"github.com/google/shlex"

	appErr "gavel/pkg/errors"
)

// LanguageSpec defines how to compile and run one language.
// Prelude is fixed harness scaffolding prepended to every submission
// of the language before compilation.
type LanguageSpec struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	SourceFile     string   `yaml:"sourceFile"`
	BinaryFile     string   `yaml:"binaryFile"`
	CompileEnabled bool     `yaml:"compileEnabled"`
	CompileCmdTpl  string   `yaml:"compileCmdTpl"`
	RunCmdTpl      string   `yaml:"runCmdTpl"`
	Prelude        string   `yaml:"prelude"`
	Env            []string `yaml:"env"`
}

// WrapSource prepends the fixed scaffolding to the user source.
func (l LanguageSpec) WrapSource(source []byte) []byte {
	if l.Prelude == "" {
		return source
	}
	wrapped := make([]byte, 0, len(l.Prelude)+1+len(source)+1)
	wrapped = append(wrapped, l.Prelude...)
	if !strings.HasSuffix(l.Prelude, "\n") {
		wrapped = append(wrapped, '\n')
	}
	wrapped = append(wrapped, source...)
	if len(source) > 0 && source[len(source)-1] != '\n' {
		wrapped = append(wrapped, '\n')
	}
	return wrapped
}

// CompileCommand expands the compile template into an argument list.
func (l LanguageSpec) CompileCommand(workDir string) ([]string, error) {
	return buildCommand(l.CompileCmdTpl, l, workDir)
}

// RunCommand expands the run template into an argument list.
func (l LanguageSpec) RunCommand(workDir string) ([]string, error) {
	return buildCommand(l.RunCmdTpl, l, workDir)
}

func buildCommand(tpl string, lang LanguageSpec, workDir string) ([]string, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command template is required")
	}
	expanded := tpl
	expanded = strings.ReplaceAll(expanded, "{src}", filepath.Join(workDir, lang.SourceFile))
	expanded = strings.ReplaceAll(expanded, "{bin}", filepath.Join(workDir, lang.BinaryFile))
	fields, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command is empty after expansion")
	}
	return fields, nil
}

// Registry resolves language specs by id.
type Registry struct {
	languages map[string]LanguageSpec
}

// NewRegistry creates a registry from a config list. An empty list
// falls back to the built-in languages.
func NewRegistry(languages []LanguageSpec) *Registry {
	if len(languages) == 0 {
		languages = Builtin()
	}
	langMap := make(map[string]LanguageSpec, len(languages))
	for _, lang := range languages {
		if lang.ID == "" {
			continue
		}
		langMap[lang.ID] = lang
	}
	return &Registry{languages: langMap}
}

// Get returns a language spec by id.
func (r *Registry) Get(id string) (LanguageSpec, error) {
	if id == "" {
		return LanguageSpec{}, appErr.ValidationError("language", "required")
	}
	lang, ok := r.languages[id]
	if !ok {
		return LanguageSpec{}, appErr.New(appErr.LanguageNotSupported).WithDetail("language", id)
	}
	return lang, nil
}

// cppPrelude matches the header set every C++ submission is built against.
const cppPrelude = `#include <iostream>
#include <vector>
#include <string>
#include <algorithm>
#include <cmath>
#include <map>
#include <set>
#include <queue>
#include <stack>
using namespace std;
`

// Builtin returns the default language set.
func Builtin() []LanguageSpec {
	return []LanguageSpec{
		{
			ID:             "cpp",
			Name:           "C++17",
			SourceFile:     "main.cpp",
			BinaryFile:     "main",
			CompileEnabled: true,
			CompileCmdTpl:  "g++ -O2 -std=c++17 -o {bin} {src}",
			RunCmdTpl:      "{bin}",
			Prelude:        cppPrelude,
		},
		{
			ID:             "c",
			Name:           "C11",
			SourceFile:     "main.c",
			BinaryFile:     "main",
			CompileEnabled: true,
			CompileCmdTpl:  "gcc -O2 -std=c11 -o {bin} {src}",
			RunCmdTpl:      "{bin}",
		},
		{
			ID:             "python",
			Name:           "Python 3",
			SourceFile:     "main.py",
			CompileEnabled: true,
			// Surfaces syntax errors as compilation diagnostics.
			CompileCmdTpl: "python3 -m py_compile {src}",
			RunCmdTpl:     "python3 {src}",
		},
	}
}
