// Copyright 2026 The lx Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command lx is a convenience REPL and file runner for the lx package,
// recovered from the original C project's LX_BUILD_CLI build.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/Beariish/lx"
)

const version = "0.1"

// config is the optional REPL/runner tuning file, grounded on the
// original's compile-time LX_MEM_SIZE split between cell area and
// program text, now overridable at runtime instead of recompiled.
type config struct {
	Cells    int `yaml:"cells"`
	TextSize int `yaml:"text_size"`
}

func defaultConfig() config {
	return config{Cells: 1 << 16, TextSize: 1 << 20}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	cfgPath := flag.String("config", "", "path to a YAML file overriding cell/text area sizes")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lx: loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, err := lx.Open(cfg.Cells, cfg.TextSize, func(s string) { fmt.Print(s) })
	if err != nil {
		fmt.Fprintf(os.Stderr, "lx: %v\n", err)
		os.Exit(1)
	}

	env := ctx.NewEnv()
	env.Persist()
	installBuiltins(ctx, env)

	args := flag.Args()
	if len(args) == 0 {
		if err := repl(ctx, env); err != nil {
			fmt.Fprintf(os.Stderr, "lx: %v\n", err)
			os.Exit(1)
		}
		return
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "lx: reading %s: %v\n", args[0], err)
		os.Exit(1)
	}
	ctx.Run(env, string(source))
}

// installBuiltins wires the two CLI-only host functions the original
// exposed only from LX_BUILD_CLI: cells() and load(path).
func installBuiltins(ctx *lx.Context, env lx.Value) {
	ctx.SetEnvName(env, "cells", ctx.CFn("()", func(ctx *lx.Context, _ lx.Value) lx.Value {
		return ctx.Number(float64(ctx.CellCount()))
	}))

	ctx.SetEnvName(env, "load", ctx.CFn("path", func(ctx *lx.Context, callEnv lx.Value) lx.Value {
		path := ctx.GetEnvName(callEnv, "path")
		if !path.IsString() {
			return ctx.Nil()
		}
		source, err := os.ReadFile(path.String())
		if err != nil {
			return ctx.Nil()
		}
		fileEnv := ctx.NewEnv()
		fileEnv.Persist()
		ctx.Run(fileEnv, string(source))
		return fileEnv
	}))
}

// repl runs an interactive read-eval-print loop over stdin, using
// golang.org/x/term for raw-mode line editing when stdin is a terminal --
// the same library the retrieved corpus uses for terminal control in its
// own tooling -- and falling back to plain ReadLine otherwise (e.g. when
// stdin is piped, as in scripted tests).
func repl(ctx *lx.Context, env lx.Value) error {
	fmt.Printf("lx %s (:q to quit)\n", version)
	fmt.Printf("Cell count: %d\n", ctx.CellCount())

	fd := int(os.Stdin.Fd())
	t := term.NewTerminal(stdinWriter{}, ">> ")

	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err == nil {
			defer term.Restore(fd, oldState)
		}
	}

	for {
		line, err := t.ReadLine()
		if err != nil {
			return nil
		}
		if line == ":q" {
			return nil
		}
		val := ctx.Run(env, line)
		fmt.Fprintln(os.Stdout, ctx.Format(val))
	}
}

// stdinWriter adapts os.Stdin/os.Stdout into the io.ReadWriter
// golang.org/x/term.NewTerminal requires.
type stdinWriter struct{}

func (stdinWriter) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdinWriter) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
