package profile_test

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gavel/internal/sandbox/profile"
	appErr "gavel/pkg/errors"
)

func TestBuildCompileCommand(t *testing.T) {
	lang := profile.LanguageSpec{
		ID:            "cpp",
		SourceFile:    "main.cpp",
		BinaryFile:    "main",
		CompileCmdTpl: "g++ -O2 -std=c++17 -o {bin} {src}",
	}
	cmd, err := lang.CompileCommand("/tmp/work")
	if err != nil {
		t.Fatalf("build command failed: %v", err)
	}
	want := []string{
		"g++", "-O2", "-std=c++17", "-o",
		filepath.Join("/tmp/work", "main"),
		filepath.Join("/tmp/work", "main.cpp"),
	}
	if !reflect.DeepEqual(cmd, want) {
		t.Fatalf("got %v, want %v", cmd, want)
	}
}

func TestBuildCommandEmptyTemplate(t *testing.T) {
	lang := profile.LanguageSpec{ID: "x"}
	if _, err := lang.RunCommand("/tmp"); err == nil {
		t.Fatal("expected error for empty template")
	}
}

func TestWrapSourcePrependsPrelude(t *testing.T) {
	lang := profile.LanguageSpec{Prelude: "#include <iostream>"}
	wrapped := string(lang.WrapSource([]byte("int main(){}")))
	if !strings.HasPrefix(wrapped, "#include <iostream>\n") {
		t.Fatalf("prelude missing: %q", wrapped)
	}
	if !strings.HasSuffix(wrapped, "int main(){}\n") {
		t.Fatalf("source must end with a newline: %q", wrapped)
	}
}

func TestWrapSourceNoPrelude(t *testing.T) {
	lang := profile.LanguageSpec{}
	if got := string(lang.WrapSource([]byte("x = 1"))); got != "x = 1" {
		t.Fatalf("source must pass through untouched: %q", got)
	}
}

func TestRegistryFallsBackToBuiltin(t *testing.T) {
	reg := profile.NewRegistry(nil)
	for _, id := range []string{"cpp", "c", "python"} {
		if _, err := reg.Get(id); err != nil {
			t.Errorf("builtin language %q missing: %v", id, err)
		}
	}
}

func TestRegistryUnknownLanguage(t *testing.T) {
	reg := profile.NewRegistry(nil)
	_, err := reg.Get("cobol")
	if !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
}

func TestRegistryOverride(t *testing.T) {
	reg := profile.NewRegistry([]profile.LanguageSpec{
		{ID: "python", RunCmdTpl: "pypy3 {src}", SourceFile: "main.py"},
	})
	lang, err := reg.Get("python")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if lang.RunCmdTpl != "pypy3 {src}" {
		t.Fatalf("config must replace the builtin set: %+v", lang)
	}
	if _, err := reg.Get("cpp"); err == nil {
		t.Fatal("builtin set must not leak past an explicit config")
	}
}
