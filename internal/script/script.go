// Package script runs Lua note scripts against a Performer.
//
// Scripts see these globals:
//
//	note_on(note [, velocity])      -> id
//	freq_on(hz [, velocity])        -> id
//	note_off(id)
//	set_freq(id, hz)
//	lfo(depth_semitones, rate_hz [, waveform])
//	wait(seconds)
//	play(note, seconds [, velocity])
//	note_to_freq(note)              -> hz
//
// Time only passes in wait, through the Runner's Clock.
package script

import (
	"context"
	"fmt"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/cbegin/wtsynth-go/internal/lfo"
	"github.com/cbegin/wtsynth-go/internal/tuning"
)

const defaultVelocity = 100

// Performer receives the note events a script produces. Ids returned by the
// note-on methods are negative when no voice started.
type Performer interface {
	NoteOn(note, velocity int) int
	NoteOnFrequency(freq float64, velocity int) int
	NoteOff(id int)
	SetFrequency(id int, freq float64)
	SetPitchLFO(depth, rateHz float64, waveform int)
}

// Clock lets time pass for wait.
type Clock interface {
	Wait(ctx context.Context, d time.Duration) error
}

// SleepClock waits in real time.
type SleepClock struct{}

func (SleepClock) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Runner executes scripts. A Runner may run several scripts one after
// another but not concurrently.
type Runner struct {
	perf  Performer
	clock Clock
	ctx   context.Context
}

func NewRunner(perf Performer, clock Clock) *Runner {
	if clock == nil {
		clock = SleepClock{}
	}
	return &Runner{perf: perf, clock: clock}
}

// RunFile executes the script at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	return r.run(ctx, path, func(L *lua.LState) error { return L.DoFile(path) })
}

// RunString executes src.
func (r *Runner) RunString(ctx context.Context, src string) error {
	return r.run(ctx, "<string>", func(L *lua.LState) error { return L.DoString(src) })
}

func (r *Runner) run(ctx context.Context, name string, exec func(*lua.LState) error) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	r.ctx = ctx
	r.register(L)
	if err := exec(L); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("script %s: %w", name, err)
	}
	return nil
}

func (r *Runner) register(L *lua.LState) {
	for name, fn := range map[string]lua.LGFunction{
		"note_on":      r.noteOn,
		"freq_on":      r.freqOn,
		"note_off":     r.noteOff,
		"set_freq":     r.setFreq,
		"lfo":          r.setLFO,
		"wait":         r.wait,
		"play":         r.play,
		"note_to_freq": noteToFreq,
	} {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func checkNote(L *lua.LState, n int) int {
	note := L.CheckInt(n)
	if note < 0 || note > 127 {
		L.ArgError(n, "note must be in 0..127")
	}
	return note
}

func (r *Runner) noteOn(L *lua.LState) int {
	note := checkNote(L, 1)
	vel := L.OptInt(2, defaultVelocity)
	L.Push(lua.LNumber(r.perf.NoteOn(note, vel)))
	return 1
}

func (r *Runner) freqOn(L *lua.LState) int {
	hz := float64(L.CheckNumber(1))
	if hz <= 0 {
		L.ArgError(1, "frequency must be positive")
	}
	vel := L.OptInt(2, defaultVelocity)
	L.Push(lua.LNumber(r.perf.NoteOnFrequency(hz, vel)))
	return 1
}

func (r *Runner) noteOff(L *lua.LState) int {
	r.perf.NoteOff(L.CheckInt(1))
	return 0
}

func (r *Runner) setFreq(L *lua.LState) int {
	id := L.CheckInt(1)
	hz := float64(L.CheckNumber(2))
	r.perf.SetFrequency(id, hz)
	return 0
}

func (r *Runner) setLFO(L *lua.LState) int {
	depth := float64(L.CheckNumber(1))
	rate := float64(L.CheckNumber(2))
	wave, err := lfo.ParseWaveform(L.OptString(3, "triangle"))
	if err != nil {
		L.ArgError(3, err.Error())
	}
	r.perf.SetPitchLFO(depth, rate, wave)
	return 0
}

func seconds(L *lua.LState, n int) time.Duration {
	s := float64(L.CheckNumber(n))
	if s < 0 {
		L.ArgError(n, "duration must not be negative")
	}
	return time.Duration(s * float64(time.Second))
}

func (r *Runner) wait(L *lua.LState) int {
	if err := r.clock.Wait(r.ctx, seconds(L, 1)); err != nil {
		L.RaiseError("wait: %v", err)
	}
	return 0
}

func (r *Runner) play(L *lua.LState) int {
	note := checkNote(L, 1)
	d := seconds(L, 2)
	vel := L.OptInt(3, defaultVelocity)
	id := r.perf.NoteOn(note, vel)
	if err := r.clock.Wait(r.ctx, d); err != nil {
		L.RaiseError("play: %v", err)
	}
	if id >= 0 {
		r.perf.NoteOff(id)
	}
	return 0
}

func noteToFreq(L *lua.LState) int {
	L.Push(lua.LNumber(tuning.NoteToFreq(L.CheckInt(1))))
	return 1
}
