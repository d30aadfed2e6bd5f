package luadefaults

import lua "github.com/yuin/gopher-lua"

// NewConfigState returns a *lua.LState suited to evaluate configuration
// files: only the base, table and string libs are loaded and the base
// functions able to touch the filesystem are removed.
func NewConfigState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		IncludeGoStackTrace: true,
	})
	InjectConfigLibs(L)
	return L
}

// InjectConfigLibs loads the libs configuration code may use into L.
func InjectConfigLibs(L *lua.LState) {
	for _, pair := range []struct {
		n string
		f lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(pair.f),
			NRet:    0,
			Protect: true,
		}, lua.LString(pair.n)); err != nil {
			panic(err)
		}
	}
	for _, unsafe := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(unsafe, lua.LNil)
	}
}
