// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"

	"github.com/Faultbox/simple3d/internal/engine/camera"
)

// EventType distinguishes processed events.
type EventType int

const (
	EventNone EventType = iota
	EventQuit
	EventWindowResize
	EventKeyDown
	EventKeyUp
	EventMouseMove
	EventMouseDown
	EventMouseUp
)

// Event represents a processed input event.
type Event struct {
	Type   EventType
	Key    sdl.Scancode
	Width  int
	Height int
	MouseX int
	MouseY int
	Button uint8
}

// Input keeps the events of the last Update and the held state the camera
// reads.
type Input struct {
	events []Event

	held           map[sdl.Scancode]bool
	look           bool
	mouseX, mouseY float32
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		events: make([]Event, 0, 16),
		held:   make(map[sdl.Scancode]bool),
	}
}

// Update polls SDL events. It returns true when the window was closed.
func (i *Input) Update() bool {
	i.events = i.events[:0]

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		if i.handle(event) {
			return true
		}
	}
	return false
}

func (i *Input) handle(event sdl.Event) (quit bool) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.events = append(i.events, Event{Type: EventQuit})
		return true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_RESIZED || e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			i.events = append(i.events, Event{
				Type:   EventWindowResize,
				Width:  int(e.Data1),
				Height: int(e.Data2),
			})
		}

	case *sdl.KeyboardEvent:
		key := e.Keysym.Scancode
		switch e.Type {
		case sdl.KEYDOWN:
			i.held[key] = true
			if e.Repeat == 0 {
				i.events = append(i.events, Event{Type: EventKeyDown, Key: key})
			}
		case sdl.KEYUP:
			delete(i.held, key)
			i.events = append(i.events, Event{Type: EventKeyUp, Key: key})
		}

	case *sdl.MouseMotionEvent:
		i.mouseX, i.mouseY = float32(e.X), float32(e.Y)
		i.events = append(i.events, Event{
			Type:   EventMouseMove,
			MouseX: int(e.X),
			MouseY: int(e.Y),
		})

	case *sdl.MouseButtonEvent:
		typ := EventMouseUp
		if e.Type == sdl.MOUSEBUTTONDOWN {
			typ = EventMouseDown
		}
		if e.Button == sdl.BUTTON_RIGHT {
			i.look = typ == EventMouseDown
		}
		i.mouseX, i.mouseY = float32(e.X), float32(e.Y)
		i.events = append(i.events, Event{
			Type:   typ,
			MouseX: int(e.X),
			MouseY: int(e.Y),
			Button: e.Button,
		})
	}
	return false
}

// Events returns the events from the last Update.
func (i *Input) Events() []Event {
	return i.events
}

// IsKeyPressed checks if a specific key was pressed this frame.
func (i *Input) IsKeyPressed(scancode sdl.Scancode) bool {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key == scancode {
			return true
		}
	}
	return false
}

// IsKeyDown reports whether a key is held.
func (i *Input) IsKeyDown(scancode sdl.Scancode) bool {
	return i.held[scancode]
}

// Camera returns the held movement keys and, while the right button is
// down, the cursor position.
func (i *Input) Camera() camera.Input {
	return camera.Input{
		Forward: i.held[sdl.SCANCODE_W],
		Back:    i.held[sdl.SCANCODE_S],
		Left:    i.held[sdl.SCANCODE_A],
		Right:   i.held[sdl.SCANCODE_D],
		Up:      i.held[sdl.SCANCODE_SPACE],
		Down:    i.held[sdl.SCANCODE_LCTRL],
		Look:    i.look,
		MouseX:  i.mouseX,
		MouseY:  i.mouseY,
	}
}

// DigitPressed returns n for the first of keys 1-9 pressed this frame.
func (i *Input) DigitPressed() (n int, ok bool) {
	for _, e := range i.events {
		if e.Type == EventKeyDown && e.Key >= sdl.SCANCODE_1 && e.Key <= sdl.SCANCODE_9 {
			return int(e.Key-sdl.SCANCODE_1) + 1, true
		}
	}
	return 0, false
}
