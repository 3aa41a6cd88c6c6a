package source

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// LuaLines runs a Lua chunk over the collected lines and uses its returned
// table as the item batch. The chunk sees the input as a global `lines`
// table (a 1-based array of strings) and must return a table whose elements
// are strings or tables; a table element becomes a record item through its
// text, path, lnum and col fields. A script error fails the load.
//
// The state is sandboxed: only the base, table, string and math libraries
// are opened, and dofile, loadfile, load, loadstring and require are
// removed, so a transform chunk cannot reach the filesystem or load code
// from disk.
func LuaLines(script string) Transform {
	return func(lines []string) ([]any, error) {
		L := lua.NewState(lua.Options{SkipOpenLibs: true})
		defer L.Close()
		if err := openSandboxLibs(L); err != nil {
			return nil, fmt.Errorf("source: lua transform: %w", err)
		}

		tbl := L.NewTable()
		for _, line := range lines {
			tbl.Append(lua.LString(line))
		}
		L.SetGlobal("lines", tbl)

		if err := L.DoString(script); err != nil {
			return nil, fmt.Errorf("source: lua transform: %w", err)
		}
		ret, ok := L.Get(-1).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("source: lua transform returned %s, want table", L.Get(-1).Type())
		}
		return luaValues(ret)
	}
}

// openSandboxLibs loads the safe library subset and removes the escape
// hatches that could load code from outside the chunk.
func openSandboxLibs(L *lua.LState) error {
	libs := []struct {
		name string
		open lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage}, // must be first
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return err
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return nil
}

// luaValues converts the returned table's array part to raw item values.
func luaValues(tbl *lua.LTable) ([]any, error) {
	n := tbl.Len()
	values := make([]any, 0, n)
	for i := 1; i <= n; i++ {
		switch v := tbl.RawGetInt(i).(type) {
		case lua.LString:
			values = append(values, string(v))
		case lua.LNumber:
			values = append(values, v.String())
		case *lua.LTable:
			values = append(values, luaRecord(v))
		default:
			return nil, fmt.Errorf("source: lua transform element %d is %s, want string or table", i, v.Type())
		}
	}
	return values, nil
}

// luaRecord flattens a returned table element into the map shape the picker
// classifies as a record item.
func luaRecord(tbl *lua.LTable) map[string]any {
	rec := make(map[string]any)
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			return
		}
		switch tv := v.(type) {
		case lua.LString:
			rec[string(key)] = string(tv)
		case lua.LNumber:
			rec[string(key)] = float64(tv)
		case lua.LBool:
			rec[string(key)] = bool(tv)
		}
	})
	return rec
}
