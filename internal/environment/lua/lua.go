// Package lua runs task bodies written in Lua inside a restricted
// interpreter.
package lua

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/spachava753/taskrun/internal/environment"
	"github.com/spachava753/taskrun/internal/models"
	"github.com/spachava753/taskrun/internal/security"
)

// Runtime runs .lua task files.
type Runtime struct{}

// New creates a Lua runtime.
func New() *Runtime {
	return &Runtime{}
}

func (r *Runtime) Name() string { return "lua" }

func (r *Runtime) Kind() models.BodyKind { return models.KindLua }

// Run executes the file in a fresh state. A numeric return value is the exit
// status; otherwise the status of the last exec call decides.
func (r *Runtime) Run(ctx context.Context, inv environment.Invocation) (code int, err error) {
	tools, err := environment.NewTools(ctx, inv)
	if err != nil {
		return -1, err
	}

	L := newState()
	defer L.Close()
	L.SetContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			code, err = -1, fmt.Errorf("lua panic: %v", rec)
		}
	}()

	L.SetGlobal("config", toLua(L, inv.Config))
	L.SetGlobal("args", toLua(L, stringsToAny(inv.Args)))
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		if inv.Stdout != nil {
			fmt.Fprintln(inv.Stdout, security.SanitizeOutput(strings.Join(parts, "\t"), inv.Limits.MaxLength, inv.Limits.MaxLines))
		}
		return 0
	}))
	L.SetGlobal("project_root", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(tools.ProjectRoot()))
		return 1
	}))
	L.SetGlobal("git_status", L.NewFunction(func(L *lua.LState) int {
		status, err := tools.GitStatus(ctx)
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LString(status))
		return 1
	}))
	L.SetGlobal("exec", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		var args []string
		for i := 2; i <= L.GetTop(); i++ {
			args = append(args, L.CheckString(i))
		}
		code, err := tools.Exec(ctx, name, args...)
		if err != nil {
			L.RaiseError("exec %s: %v", name, err)
			return 0
		}
		L.Push(lua.LNumber(code))
		return 1
	}))

	fn, err := L.LoadFile(inv.Path)
	if err != nil {
		return -1, fmt.Errorf("loading %s: %w", inv.Path, err)
	}
	L.Push(fn)
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		return -1, fmt.Errorf("running %s: %w", inv.Path, err)
	}

	if L.GetTop() > 0 {
		if n, ok := L.Get(1).(lua.LNumber); ok {
			slog.Debug("lua task returned status", "task", inv.TaskName, "status", int(n))
			return int(n), nil
		}
	}
	return tools.LastStatus(), nil
}

// newState opens only the base, table, string and math libraries and drops
// the functions that load code from disk or strings.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// toLua converts a decoded JSON value into a Lua value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case float64:
		return lua.LNumber(val)
	case int:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.RawSetString(k, toLua(L, val[k]))
		}
		return t
	default:
		return lua.LString(fmt.Sprint(val))
	}
}
