// Package scripting runs team bots written in Lua. Each team gets its own
// gopher-lua VM with a restricted standard library; the only way a bot can
// touch the world is the rc table bound to the current turn's gateway.
package scripting

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/gridclash/arena/internal/gateway"
)

// Bot is one team's program. Source wins over Path when both are set.
type Bot struct {
	Name   string
	Path   string
	Source string
}

func (b Bot) load() (string, string, error) {
	if b.Source != "" {
		name := b.Name
		if name == "" {
			name = "inline"
		}
		return b.Source, name, nil
	}
	raw, err := os.ReadFile(b.Path)
	if err != nil {
		return "", "", fmt.Errorf("read bot %s: %w", b.Path, err)
	}
	return string(raw), b.Path, nil
}

// removedGlobals are base functions a bot may not call: file access,
// chunk loading and the collector.
var removedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module", "collectgarbage", "newproxy"}

// vm wraps a single gopher-lua state. Single-goroutine access only (engine
// loop).
type vm struct {
	L    *lua.LState
	name string
	log  *zap.Logger

	api     *lua.LTable
	current *gateway.Gateway // nil between turns
}

func newVM(bot Bot, opts Options, rng *rand.Rand, log *zap.Logger) (*vm, error) {
	src, name, err := bot.load()
	if err != nil {
		return nil, err
	}
	L := lua.NewState(lua.Options{
		SkipOpenLibs:    true,
		CallStackSize:   opts.CallStackSize,
		RegistryMaxSize: opts.RegistryMaxSize,
	})
	v := &vm{L: L, name: name, log: log.With(zap.String("bot", name))}
	v.openLibs(rng)
	v.bindAPI()
	L.SetGlobal("rc", v.api)

	fn, err := L.Load(strings.NewReader(src), name)
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	L.Push(fn)
	if err := L.PCall(0, 0, nil); err != nil {
		L.Close()
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	if _, ok := L.GetGlobal("turn").(*lua.LFunction); !ok {
		L.Close()
		return nil, fmt.Errorf("bot %s: no turn function", name)
	}
	return v, nil
}

// openLibs loads base, table, string and math, then strips what a bot must
// not reach and rebinds the random functions to the match RNG.
func (v *vm) openLibs(rng *rand.Rand) {
	L := v.L
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range removedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("print", L.NewFunction(v.print))

	math, _ := L.GetGlobal(lua.MathLibName).(*lua.LTable)
	if math != nil {
		math.RawSetString("random", L.NewFunction(func(L *lua.LState) int {
			return luaRandom(L, rng)
		}))
		math.RawSetString("randomseed", L.NewFunction(func(*lua.LState) int { return 0 }))
	}
}

// luaRandom follows the stock math.random contract: no arguments gives a
// float in [0,1), one gives an integer in [1,m], two give one in [m,n].
func luaRandom(L *lua.LState, rng *rand.Rand) int {
	switch L.GetTop() {
	case 0:
		L.Push(lua.LNumber(rng.Float64()))
	case 1:
		m := L.CheckInt(1)
		if m < 1 {
			L.ArgError(1, "interval is empty")
		}
		L.Push(lua.LNumber(1 + rng.Intn(m)))
	default:
		m, n := L.CheckInt(1), L.CheckInt(2)
		if m > n {
			L.ArgError(2, "interval is empty")
		}
		L.Push(lua.LNumber(m + rng.Intn(n-m+1)))
	}
	return 1
}

func (v *vm) print(L *lua.LState) int {
	parts := make([]string, 0, L.GetTop())
	for i := 1; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	v.log.Debug("bot print", zap.String("msg", strings.Join(parts, "\t")))
	return 0
}

// call runs a global function if the bot defines it. A missing optional
// function is not an error.
func (v *vm) call(name string, nret int, args ...lua.LValue) (lua.LValue, bool, error) {
	fn, ok := v.L.GetGlobal(name).(*lua.LFunction)
	if !ok {
		return lua.LNil, false, nil
	}
	if err := v.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    nret,
		Protect: true,
	}, args...); err != nil {
		return lua.LNil, true, err
	}
	if nret == 0 {
		return lua.LNil, true, nil
	}
	ret := v.L.Get(-1)
	v.L.Pop(1)
	return ret, true, nil
}

func (v *vm) close() {
	if v.L != nil {
		v.L.Close()
		v.L = nil
	}
}
