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

// Package lx is a minimal, embeddable scripting interpreter that runs
// entirely inside a fixed-size cell arena the host provides up front.
//
// To use it, open a [Context] with [Open], optionally install native
// functions and bindings in an env built with [Context.NewEnv], and call
// [Context.Run] with source text. Values are dynamically typed: numbers,
// strings, symbols, lists, envs, and functions (both user-defined and
// native) all live as cells inside the Context's arena and are collected by
// a mark-and-sweep cycle whenever the arena runs out of free cells.
//
// # Support status
//
// This package implements the core language: the value model, the arena
// and its collector, lexical call frames with dynamic (not lexical)
// scoping, and the fused parse/eval recursive-descent evaluator. It does
// not implement a REPL or a file-loading built-in -- those live in cmd/lx,
// since they are host concerns, not core-language ones.
package lx
