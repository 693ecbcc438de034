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

//go:build !debug

// Package debug includes diagnostic helpers that are compiled out entirely
// unless the binary is built with `-tags debug`.
package debug

// Enabled is true when the binary is built with the debug tag.
const Enabled = false

// Log is a no-op in release builds.
func Log(context []any, operation string, format string, args ...any) {}

// Assert is a no-op in release builds.
func Assert(cond bool, format string, args ...any) {}

// EnterContext is a no-op in release builds.
func EnterContext(key uintptr) {}

// ExitContext is a no-op in release builds.
func ExitContext(key uintptr) {}
