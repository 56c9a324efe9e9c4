package tui

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roach88/tagstamp/internal/catalog"
	"github.com/roach88/tagstamp/internal/engine"
)

// Run shows the palette until the user quits or ctx is cancelled. A
// pending reorder is saved on the way out.
func Run(ctx context.Context, cat *catalog.Catalog, eng *engine.Engine, opts ...Option) error {
	m := New(ctx, cat, eng, opts...)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	cancel := eng.Subscribe(func(u engine.Update) {
		p.Send(StateMsg(u.State))
	})
	defer cancel()
	// Catalog listeners run on the mutating goroutine, which may be the
	// program loop itself.
	cat.OnChange(func() {
		go p.Send(CatalogChangedMsg{})
	})

	_, err := p.Run()
	m.Finish()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
