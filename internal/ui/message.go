package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/lunamare/tidesync/internal/tasks"
)

// MsgKind enumerates all message types in the monitor.
type MsgKind int

// Msg represents all possible messages in the monitor (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var _ tea.Msg = Msg{}

const (
	MsgProgress MsgKind = iota
	MsgStreamClosed
)

// progressMsg is the constructor for [MsgProgress]
func progressMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgress, data: update}
}

// streamClosedMsg is the constructor for [MsgStreamClosed]
func streamClosedMsg() Msg {
	return Msg{kind: MsgStreamClosed}
}
