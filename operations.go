package main

import (
	"encoding/json"
	"fmt"
)

type Commands = []Command

// Command is one user gesture forwarded by the front end. Exactly one of the
// payload fields is set for commands that carry arguments.
type Command struct {
	Type        string
	Select      *SelectCommand
	Delete      *DeleteCommand
	Reorder     *ReorderCommand
	ResizeBegin *ResizeBeginCommand
	ResizeMove  *ResizeMoveCommand
}

const (
	CommandSelect            = "select"
	CommandToggleOrientation = "toggle_orientation"
	CommandDelete            = "delete"
	CommandClear             = "clear"
	CommandReorder           = "reorder"
	CommandResizeBegin       = "resize_begin"
	CommandResizeMove        = "resize_move"
	CommandResizeEnd         = "resize_end"
	CommandProcess           = "process"
	CommandReingest          = "reingest"
)

// unmarshal
func (c *Command) UnmarshalJSON(data []byte) error {
	var cmd struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("failed to unmarshal command: %w", err)
	}

	*c = Command{Type: cmd.Type}
	var payload any
	switch cmd.Type {
	case CommandSelect:
		c.Select = &SelectCommand{}
		payload = c.Select
	case CommandDelete:
		c.Delete = &DeleteCommand{}
		payload = c.Delete
	case CommandReorder:
		c.Reorder = &ReorderCommand{}
		payload = c.Reorder
	case CommandResizeBegin:
		c.ResizeBegin = &ResizeBeginCommand{}
		payload = c.ResizeBegin
	case CommandResizeMove:
		c.ResizeMove = &ResizeMoveCommand{}
		payload = c.ResizeMove
	case CommandToggleOrientation, CommandClear, CommandResizeEnd, CommandProcess, CommandReingest:
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd.Type)
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("failed to unmarshal %s command: %w", cmd.Type, err)
	}
	return nil
}

func (c Command) String() string {
	switch {
	case c.Select != nil:
		return fmt.Sprintf("%s(%d)", c.Type, c.Select.Index)
	case c.Delete != nil:
		return fmt.Sprintf("%s(%d)", c.Type, c.Delete.Index)
	case c.Reorder != nil:
		return fmt.Sprintf("%s(%d->%d)", c.Type, c.Reorder.Source, c.Reorder.Target)
	case c.ResizeBegin != nil:
		return fmt.Sprintf("%s(%d,%s)", c.Type, c.ResizeBegin.Index, c.ResizeBegin.Handle)
	}
	return c.Type
}

type SelectCommand struct {
	Index int `json:"index"`
}

type DeleteCommand struct {
	Index int `json:"index"`
}

type ReorderCommand struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

type ResizeBeginCommand struct {
	Index  int     `json:"index"`
	Handle Handle  `json:"handle"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`

	// ViewWidth and ViewHeight are the rendered preview size in the same
	// pixel space as X and Y.
	ViewWidth  float64 `json:"view_width"`
	ViewHeight float64 `json:"view_height"`
}

type ResizeMoveCommand struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
