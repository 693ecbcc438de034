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

//go:build debug

// Package debug includes diagnostic helpers that are compiled out entirely
// unless the binary is built with `-tags debug`.
package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/timandy/routine"
)

// Enabled is true when the binary is built with the debug tag.
const Enabled = true

type contextState struct {
	owner int64
	depth int
}

var (
	mu       sync.Mutex
	contexts = map[uintptr]*contextState{}
)

// Log prints a diagnostic line to stderr, tagged with the caller's
// package/file/line and the id of the goroutine that produced it.
//
// context is an optional leading (format, args...) pair rendered before
// operation, used to identify which arena/context a log line belongs to.
func Log(context []any, operation string, format string, args ...any) {
	skip := 1
	pc, file, line, _ := runtime.Caller(skip)
	fn := runtime.FuncForPC(pc)
	name := fn.Name()
	if slash := strings.LastIndex(name, "/"); slash >= 0 {
		name = name[slash+1:]
	}
	pkg := name
	if dot := strings.Index(pkg, "."); dot >= 0 {
		pkg = pkg[:dot]
	}

	buf := new(strings.Builder)
	fmt.Fprintf(buf, "%s/%s:%d [g%04d", pkg, filepath.Base(file), line, routine.Goid())
	if len(context) >= 1 {
		fmt.Fprintf(buf, ", "+context[0].(string), context[1:]...) //nolint:errcheck
	}
	fmt.Fprintf(buf, "] %s: ", operation)
	fmt.Fprintf(buf, format, args...)
	buf.WriteByte('\n')

	os.Stderr.WriteString(buf.String()) //nolint:errcheck
}

// Assert panics if cond is false. Compiled out entirely in release builds.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("lx: internal assertion failed: "+format, args...))
	}
}

// EnterContext records that the calling goroutine is now running inside the
// Context identified by key's Run/native-callback path, and panics if a
// different goroutine is already inside the same context.
//
// key should be a stable per-Context address (the *Context itself works).
// Callers must defer ExitContext(key) on the same key.
func EnterContext(key uintptr) {
	mu.Lock()
	defer mu.Unlock()

	gid := routine.Goid()
	st := contexts[key]
	if st == nil {
		st = &contextState{owner: gid}
		contexts[key] = st
	} else if st.depth > 0 && st.owner != gid {
		panic(fmt.Sprintf("lx: context entered from goroutine g%d while still running on g%d", gid, st.owner))
	}
	st.owner = gid
	st.depth++
}

// ExitContext undoes a matching EnterContext.
func ExitContext(key uintptr) {
	mu.Lock()
	defer mu.Unlock()

	st := contexts[key]
	if st == nil {
		return
	}
	st.depth--
	if st.depth == 0 {
		delete(contexts, key)
	}
}
