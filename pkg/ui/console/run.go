package console

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"litegram/pkg/bot"
	"litegram/pkg/bus"
)

// DispatchFunc runs one update cycle for raw update JSON. (*bot.Bot).RunRaw satisfies it.
type DispatchFunc func(ctx context.Context, raw []byte) (bot.Report, error)

// Run starts the interactive console. Replies are read from mb, which should be
// the bus behind the API given to the bot.
func Run(ctx context.Context, dispatch DispatchFunc, mb *bus.MessageBus, updates *Updates) error {
	m := newModel(ctx, dispatch, mb, updates)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	return err
}
