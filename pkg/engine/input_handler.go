package engine

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// InputHandler tracks a fixed set of keys between frames so that a press
// is reported once.
type InputHandler struct {
	poll         func(glfw.Key) bool
	keys         []glfw.Key
	currentKeys  map[glfw.Key]bool
	previousKeys map[glfw.Key]bool
}

// NewInputHandler watches the given keys of a window.
func NewInputHandler(window *glfw.Window, keys ...glfw.Key) *InputHandler {
	return newInputHandler(func(k glfw.Key) bool {
		return window.GetKey(k) == glfw.Press
	}, keys...)
}

func newInputHandler(poll func(glfw.Key) bool, keys ...glfw.Key) *InputHandler {
	return &InputHandler{
		poll:         poll,
		keys:         keys,
		currentKeys:  make(map[glfw.Key]bool, len(keys)),
		previousKeys: make(map[glfw.Key]bool, len(keys)),
	}
}

// Update samples the keys; call once per frame after polling events.
func (ih *InputHandler) Update() {
	for _, k := range ih.keys {
		ih.previousKeys[k] = ih.currentKeys[k]
		ih.currentKeys[k] = ih.poll(k)
	}
}

func (ih *InputHandler) IsKeyDown(key glfw.Key) bool {
	return ih.currentKeys[key]
}

// IsKeyPressed reports a key that went down in this frame.
func (ih *InputHandler) IsKeyPressed(key glfw.Key) bool {
	return ih.currentKeys[key] && !ih.previousKeys[key]
}

// IsKeyReleased reports a key that went up in this frame.
func (ih *InputHandler) IsKeyReleased(key glfw.Key) bool {
	return !ih.currentKeys[key] && ih.previousKeys[key]
}
