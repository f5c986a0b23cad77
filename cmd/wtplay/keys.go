package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/golang/glog"
	"golang.org/x/term"

	"github.com/cbegin/wtsynth-go"
)

// keyboard maps a row of keys onto semitones above the base note, piano
// style: the home row is the white keys, the row above the black keys.
const keyboard = "awsedftgyhujkolp;'"

// playKeys reads raw key presses from stdin. Each press starts a note that is
// released after hold; z and x shift the octave, q or Ctrl-C quits.
//
// Release timers report back on a channel so every trigger happens on this
// goroutine.
func playKeys(ctx context.Context, pl *wtsynth.Player, base, velocity int, hold time.Duration) error {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return fmt.Errorf("-keys needs a terminal on stdin")
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)
	fmt.Print("keys: " + keyboard + "  z/x octave  q quit\r\n")

	pressed := make(chan byte)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				close(pressed)
				return
			}
			if n == 1 {
				pressed <- buf[0]
			}
		}
	}()

	released := make(chan int, 64)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-released:
			pl.NoteOff(id)
		case k, ok := <-pressed:
			if !ok {
				return nil
			}
			switch k {
			case 'q', 3:
				return nil
			case 'z':
				base = max(base-12, 0)
				continue
			case 'x':
				base = min(base+12, 115)
				continue
			}
			i := strings.IndexByte(keyboard, k)
			if i < 0 {
				continue
			}
			id := pl.NoteOn(base+i, velocity)
			if id < 0 {
				continue
			}
			log.V(1).Infof("note %d on (id %d)", base+i, id)
			time.AfterFunc(hold, func() { released <- id })
		}
	}
}
