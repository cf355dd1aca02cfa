package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/ardnew/zero/lang"
	"github.com/ardnew/zero/module"
)

type initCLI struct {
	Level  string `default:"info"`
	Pretty bool   `default:"true"`
	Depth  int    `default:"64"`
	Path   []string
	Init   Init `cmd:""`
}

func parseInit(t *testing.T, confPath string, args ...string) (*initCLI, *kong.Context) {
	t.Helper()

	var cli initCLI

	parser, err := kong.New(&cli,
		kong.Vars{ConfigIdentifier: confPath},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }),
	)
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}

	ktx, err := parser.Parse(append([]string{"init"}, args...))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	return &cli, ktx
}

func TestInit_WritesEvaluableConfig(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "zero", "config.0")

	cli, ktx := parseInit(t, confPath)

	if err := cli.Init.Run(WithContext(t.Context(), ktx)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(confPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	v, err := module.New(nil).Eval(t.Context(), string(data))
	if err != nil {
		t.Fatalf("generated config does not evaluate: %s", lang.Report(err))
	}

	rec, ok := v.(*lang.Record)
	if !ok {
		t.Fatalf("config value is %s, want record", lang.TypeOf(v))
	}

	want := map[string]any{"level": "info", "pretty": 1.0, "depth": 64.0}
	for k, w := range want {
		if got, _ := rec.Get(k); got != w {
			t.Errorf("%s = %v, want %v", k, got, w)
		}
	}

	if rec.Has("path") {
		t.Error("empty list flag was written")
	}
}

func TestInit_Exists(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "config.0")
	if err := os.WriteFile(confPath, []byte("x = 1\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cli, ktx := parseInit(t, confPath)

	err := cli.Init.Run(WithContext(t.Context(), ktx))
	if !errors.Is(err, ErrWriteConfig) || !errors.Is(err, ErrFileExists) {
		t.Fatalf("error = %v, want %v", err, ErrFileExists)
	}

	cli, ktx = parseInit(t, confPath, "--force")

	if err := cli.Init.Run(WithContext(t.Context(), ktx)); err != nil {
		t.Fatalf("Run --force: %v", err)
	}
}

func TestInit_Stdout(t *testing.T) {
	out := capture(t, "")
	confPath := filepath.Join(t.TempDir(), "config.0")

	cli, ktx := parseInit(t, confPath, "--stdout")

	if err := cli.Init.Run(WithContext(t.Context(), ktx)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if _, err := os.Stat(confPath); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("--stdout wrote %s", confPath)
	}

	if out.Len() == 0 {
		t.Error("--stdout printed nothing")
	}
}
