// Package ai bridges enemy AI decisions out to Lua scripts: Decide hands
// an enemy's state to a script-defined enemy_ai hook and returns the
// Idle/Pursue/Attack state it picks. No game system calls Decide; enemies
// follow the built-in Go state machine in EnemyMovementSystem.
package ai

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM. Single-goroutine access only.
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine loads every .lua file directly under scriptsDir. A missing
// directory is not an error: the engine then has no scripts loaded and
// Decide returns (nil, nil).
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	e := &Engine{vm: vm, log: log}

	entries, err := os.ReadDir(scriptsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return e, nil
		}
		vm.Close()
		return nil, fmt.Errorf("ai: read scripts dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(scriptsDir, entry.Name())
		if err := vm.DoFile(path); err != nil {
			vm.Close()
			return nil, fmt.Errorf("ai: load %s: %w", path, err)
		}
		log.Debug("loaded enemy ai script", zap.String("file", path))
	}
	return e, nil
}

func (e *Engine) Close() { e.vm.Close() }

// Context is the decision input handed to the Lua "enemy_ai" global, if
// the scripts define one.
type Context struct {
	EnemyID    uint32
	X, Y       float32
	Health     int32
	MaxHealth  int32
	State      string // "idle" | "pursue" | "attack"
	HasTarget  bool
	TargetX    float32
	TargetY    float32
	TargetDist float32
}

// Decision is the Lua function's (optional) verdict, overriding the
// built-in state machine for this enemy this tick.
type Decision struct {
	NextState string
}

// Decide calls the "enemy_ai" Lua global with ctx and returns its
// decision. Returns (nil, nil) if no script defines the hook — callers
// should fall back to the default Go AI in that case. A script error or
// panic is caught and logged; it never crashes the simulation thread.
func (e *Engine) Decide(ctx Context) (decision *Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("enemy ai script panicked", zap.Any("recover", r), zap.Uint32("enemy_id", ctx.EnemyID))
			decision, err = nil, fmt.Errorf("ai: script panic: %v", r)
		}
	}()

	fn := e.vm.GetGlobal("enemy_ai")
	if fn == lua.LNil {
		return nil, nil
	}

	t := e.vm.NewTable()
	t.RawSetString("enemy_id", lua.LNumber(ctx.EnemyID))
	t.RawSetString("x", lua.LNumber(ctx.X))
	t.RawSetString("y", lua.LNumber(ctx.Y))
	t.RawSetString("health", lua.LNumber(ctx.Health))
	t.RawSetString("max_health", lua.LNumber(ctx.MaxHealth))
	t.RawSetString("state", lua.LString(ctx.State))
	t.RawSetString("has_target", lua.LBool(ctx.HasTarget))
	t.RawSetString("target_x", lua.LNumber(ctx.TargetX))
	t.RawSetString("target_y", lua.LNumber(ctx.TargetY))
	t.RawSetString("target_dist", lua.LNumber(ctx.TargetDist))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		return nil, fmt.Errorf("ai: enemy_ai call: %w", err)
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, nil
	}
	next := tbl.RawGetString("next_state")
	if s, ok := next.(lua.LString); ok {
		return &Decision{NextState: string(s)}, nil
	}
	return nil, nil
}
