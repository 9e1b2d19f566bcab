package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the size formulas (drain, steal,
// escape and reaction chances). Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// Load core scripts first, then feature scripts
	corePath := filepath.Join(scriptsDir, "core")
	if err := e.loadDir(corePath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load core scripts: %w", err)
	}

	// Optional override directories; later files redefine earlier globals.
	for _, sub := range []string{"interaction", "resolution", "override"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source, typically to override one formula.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load lua chunk: %w", err)
	}
	return nil
}

// DrainContext holds pre-packed data for one attach-loop drain step.
type DrainContext struct {
	Kind      string  // "grab", "hug"
	SizeRatio float64 // holder scale / held scale
	Strength  float64 // link strength multiplier
	DrainRate float64 // tuning base rate per second
	Delta     float64 // seconds of simulation time since the previous step
	Ally      bool    // held entity is friendly to the holder
}

// DrainResult is the stamina to remove from each side.
type DrainResult struct {
	Holder float64
	Held   float64
}

// AttachDrain calls the Lua attach_drain function.
func (e *Engine) AttachDrain(ctx DrainContext) DrainResult {
	t := e.vm.NewTable()
	t.RawSetString("kind", lua.LString(ctx.Kind))
	t.RawSetString("size_ratio", lua.LNumber(ctx.SizeRatio))
	t.RawSetString("strength", lua.LNumber(ctx.Strength))
	t.RawSetString("drain_rate", lua.LNumber(ctx.DrainRate))
	t.RawSetString("delta", lua.LNumber(ctx.Delta))
	t.RawSetString("ally", lua.LBool(ctx.Ally))

	rt, ok := e.callTableFunc("attach_drain", t)
	if !ok {
		return DrainResult{}
	}
	return DrainResult{
		Holder: lFloat(rt, "holder"),
		Held:   lFloat(rt, "held"),
	}
}

// StealContext holds pre-packed data for one hug size-steal step.
type StealContext struct {
	SizeRatio   float64
	HolderScale float64
	HeldScale   float64
	Delta       float64
}

// StealResult is the scale moved from held to holder and the stamina drains.
type StealResult struct {
	HeldScale     float64 // scale removed from the held entity
	HolderScale   float64 // scale added to the holder
	HeldStamina   float64
	HolderStamina float64
}

// HugSteal calls the Lua hug_steal function.
func (e *Engine) HugSteal(ctx StealContext) StealResult {
	t := e.vm.NewTable()
	t.RawSetString("size_ratio", lua.LNumber(ctx.SizeRatio))
	t.RawSetString("holder_scale", lua.LNumber(ctx.HolderScale))
	t.RawSetString("held_scale", lua.LNumber(ctx.HeldScale))
	t.RawSetString("delta", lua.LNumber(ctx.Delta))

	rt, ok := e.callTableFunc("hug_steal", t)
	if !ok {
		return StealResult{}
	}
	return StealResult{
		HeldScale:     lFloat(rt, "held_scale"),
		HolderScale:   lFloat(rt, "holder_scale"),
		HeldStamina:   lFloat(rt, "held_stamina"),
		HolderStamina: lFloat(rt, "holder_stamina"),
	}
}

// EscapeContext carries the two uniform rolls so the script stays deterministic.
type EscapeContext struct {
	HolderScale float64
	HeldScale   float64
	Strength    float64
	HolderRoll  float64 // [0,1)
	HeldRoll    float64 // [0,1)
}

// Escaped calls the Lua escape_roll function. Script errors keep the hold.
func (e *Engine) Escaped(ctx EscapeContext) bool {
	t := e.vm.NewTable()
	t.RawSetString("holder_scale", lua.LNumber(ctx.HolderScale))
	t.RawSetString("held_scale", lua.LNumber(ctx.HeldScale))
	t.RawSetString("strength", lua.LNumber(ctx.Strength))
	t.RawSetString("holder_roll", lua.LNumber(ctx.HolderRoll))
	t.RawSetString("held_roll", lua.LNumber(ctx.HeldRoll))

	v, ok := e.callValueFunc("escape_roll", t)
	if !ok {
		return false
	}
	return lua.LVAsBool(v)
}

// SqueezeContext holds pre-packed data for a hand attack on a held entity.
type SqueezeContext struct {
	Damage    float64
	SizeRatio float64
	Strength  float64
}

// SqueezeDamage calls the Lua squeeze_damage function.
func (e *Engine) SqueezeDamage(ctx SqueezeContext) float64 {
	t := e.vm.NewTable()
	t.RawSetString("damage", lua.LNumber(ctx.Damage))
	t.RawSetString("size_ratio", lua.LNumber(ctx.SizeRatio))
	t.RawSetString("strength", lua.LNumber(ctx.Strength))

	v, ok := e.callValueFunc("squeeze_damage", t)
	if !ok {
		return ctx.Damage
	}
	return float64(lua.LVAsNumber(v))
}

// ReactionChance calls the Lua reaction_chance(kind, initiator_scale) function.
// The result is clamped to [0,1].
func (e *Engine) ReactionChance(kind string, initiatorScale float64) float64 {
	fn := e.vm.GetGlobal("reaction_chance")
	if fn == lua.LNil {
		e.log.Error("lua function reaction_chance not found")
		return 0
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(kind), lua.LNumber(initiatorScale)); err != nil {
		e.log.Error("lua reaction_chance error", zap.Error(err))
		return 0
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)

	chance := float64(lua.LVAsNumber(result))
	switch {
	case chance < 0:
		return 0
	case chance > 1:
		return 1
	}
	return chance
}

// --- Lua helpers ---

// lFloat reads a number field from a Lua table.
func lFloat(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// callValueFunc calls a Lua function taking one context table and returns
// its single result.
func (e *Engine) callValueFunc(name string, arg lua.LValue) (lua.LValue, bool) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		e.log.Error("lua function not found", zap.String("name", name))
		return lua.LNil, false
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, arg); err != nil {
		e.log.Error("lua call error", zap.String("func", name), zap.Error(err))
		return lua.LNil, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	return result, true
}

// callTableFunc is callValueFunc for functions returning a table.
func (e *Engine) callTableFunc(name string, arg lua.LValue) (*lua.LTable, bool) {
	v, ok := e.callValueFunc(name, arg)
	if !ok {
		return nil, false
	}
	rt, ok := v.(*lua.LTable)
	if !ok {
		e.log.Error("lua function returned non-table", zap.String("func", name))
		return nil, false
	}
	return rt, true
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
