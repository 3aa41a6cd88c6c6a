package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/dshills/quickpick/config"
	"github.com/dshills/quickpick/picker"
)

// errAborted reports that the user dismissed the picker without choosing.
var errAborted = errors.New("aborted")

// wakeInterval is how often background match and load progress is folded
// into a redraw.
const wakeInterval = 40 * time.Millisecond

var (
	promptStyle = tcell.StyleDefault.Bold(true)
	queryStyle  = tcell.StyleDefault
	statusStyle = tcell.StyleDefault.Dim(true)
	itemStyle   = tcell.StyleDefault
)

// ui owns the terminal screen and renders one session.
type ui struct {
	screen   tcell.Screen
	session  *picker.Session
	prompt   string
	maxWidth int

	mu     sync.Mutex
	msg    picker.Message
	msgSeq uint64

	finiOnce sync.Once
}

func newUI(cfg config.Config) (*ui, error) {
	screen, err := newScreen()
	if err != nil {
		return nil, fmt.Errorf("opening terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("initializing terminal: %w", err)
	}
	return &ui{screen: screen, prompt: cfg.UI.Prompt, maxWidth: cfg.UI.MaxWidth}, nil
}

// newScreen opens the terminal. With stdin on a pipe the items came from it,
// so the screen talks to the controlling tty instead.
func newScreen() (tcell.Screen, error) {
	if stdinPiped() {
		tty, err := tcell.NewDevTty()
		if err != nil {
			return nil, err
		}
		return tcell.NewTerminfoScreenFromTty(tty)
	}
	return tcell.NewScreen()
}

// notify records the latest session message for the status line. It is
// called from session goroutines.
func (u *ui) notify(m picker.Message) {
	u.mu.Lock()
	u.msg = m
	u.msgSeq++
	u.mu.Unlock()
}

func (u *ui) close() {
	u.finiOnce.Do(func() { u.screen.Fini() })
}

// run drives the event loop until the user picks or dismisses.
func (u *ui) run(ctx context.Context) ([]string, error) {
	defer u.close()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go u.screen.ChannelEvents(events, quit)
	go u.wake(ctx, quit)

	for {
		if ctx.Err() != nil {
			return nil, errAborted
		}
		u.draw()

		select {
		case <-ctx.Done():
			return nil, errAborted
		case ev, ok := <-events:
			if !ok {
				return nil, errAborted
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				u.screen.Sync()
			case *tcell.EventKey:
				picked, done, err := u.handleKey(ev)
				if done {
					return picked, err
				}
			}
			// Interrupts fall through to the redraw.
		}
	}
}

// wake posts an interrupt whenever the visible snapshot moved, so background
// loads and match applies show up without input.
func (u *ui) wake(ctx context.Context, quit <-chan struct{}) {
	tick := time.NewTicker(wakeInterval)
	defer tick.Stop()

	var last uiSnapshot
	for {
		select {
		case <-ctx.Done():
			_ = u.screen.PostEvent(tcell.NewEventInterrupt(nil)) // best-effort; unblocks the loop
			return
		case <-quit:
			return
		case <-tick.C:
			snap := u.snapshot()
			if snap != last {
				last = snap
				_ = u.screen.PostEvent(tcell.NewEventInterrupt(nil)) // best-effort; queue may be full
			}
		}
	}
}

// uiSnapshot is the part of the session state a redraw depends on.
type uiSnapshot struct {
	gen    uint64
	busy   bool
	count  int
	total  int
	cursor int
	state  picker.State
	msgSeq uint64
}

func (u *ui) snapshot() uiSnapshot {
	u.mu.Lock()
	seq := u.msgSeq
	u.mu.Unlock()

	s := u.session
	return uiSnapshot{
		gen:    s.Generation(),
		busy:   s.Busy(),
		count:  s.MatchCount(),
		total:  s.Len(),
		cursor: s.Cursor(),
		state:  s.State(),
		msgSeq: seq,
	}
}

// handleKey maps one key event onto session operations. done reports that
// the loop should end, with picked carrying the chosen lines.
func (u *ui) handleKey(ev *tcell.EventKey) (picked []string, done bool, err error) {
	s := u.session
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return nil, true, errAborted
	case tcell.KeyEnter:
		return u.picked(), true, nil
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		s.Backspace()
	case tcell.KeyDelete:
		s.DeleteAtCaret()
	case tcell.KeyCtrlU:
		s.TruncateBeforeCaret()
	case tcell.KeyLeft:
		s.CaretLeft()
	case tcell.KeyRight:
		s.CaretRight()
	case tcell.KeyHome, tcell.KeyCtrlA:
		s.CaretHome()
	case tcell.KeyEnd, tcell.KeyCtrlE:
		s.CaretEnd()
	case tcell.KeyUp, tcell.KeyCtrlP:
		s.MoveCursor(-1)
	case tcell.KeyDown, tcell.KeyCtrlN:
		s.MoveCursor(1)
	case tcell.KeyTab:
		if idx := s.CurrentIndex(); idx >= 0 {
			s.ToggleMark(idx)
		}
		s.MoveCursor(1)
	case tcell.KeyBacktab:
		if idx := s.CurrentIndex(); idx >= 0 {
			s.ToggleMark(idx)
		}
		s.MoveCursor(-1)
	case tcell.KeyRune:
		s.Type(string(ev.Rune()))
	}
	return nil, false, nil
}

// picked resolves Enter: the marked items in item order, else the item under
// the cursor.
func (u *ui) picked() []string {
	s := u.session
	if marked := s.MarkedItems(); len(marked) > 0 {
		out := make([]string, len(marked))
		for i, it := range marked {
			out[i] = it.Text
		}
		return out
	}
	if it, ok := s.Current(); ok {
		return []string{it.Text}
	}
	return nil
}

// draw renders the prompt, the status line, and the visible match window.
func (u *ui) draw() {
	s := u.session
	screen := u.screen
	w, h := screen.Size()
	if w <= 0 || h <= 0 {
		return
	}
	screen.Clear()

	max := w
	if u.maxWidth > 0 && u.maxWidth < w {
		max = u.maxWidth
	}

	// Prompt and query, with the terminal cursor at the caret.
	x := drawText(screen, 0, 0, max, promptStyle, u.prompt)
	entries := s.QueryEntries()
	caret := s.Caret()
	cx := x
	for i, e := range entries {
		if i == caret {
			cx = x
		}
		x = drawText(screen, x, 0, max, queryStyle, e)
	}
	if caret >= len(entries) {
		cx = x
	}
	screen.ShowCursor(cx, 0)

	if h >= 2 {
		drawText(screen, 2, 1, max, statusStyle, u.statusLine())
	}

	rows := h - 2
	if rows > 0 {
		u.drawItems(rows, max)
	}

	screen.Show()
}

func (u *ui) statusLine() string {
	s := u.session
	status := fmt.Sprintf("%d/%d", s.MatchCount(), s.Len())
	if n := len(s.Marked()); n > 0 {
		status += fmt.Sprintf(" (%d marked)", n)
	}
	if s.Busy() {
		status += " ..."
	}
	u.mu.Lock()
	msg := u.msg
	u.mu.Unlock()
	if msg.Text != "" {
		status += fmt.Sprintf("  [%s] %s", msg.Namespace, msg.Text)
	}
	return status
}

// drawItems renders the match window starting at row 2, scrolled so the
// cursor row stays visible.
func (u *ui) drawItems(rows, max int) {
	s := u.session
	cursor := s.Cursor()
	off := 0
	if cursor >= rows {
		off = cursor - rows + 1
	}

	marked := make(map[int]struct{})
	for _, idx := range s.Marked() {
		marked[idx] = struct{}{}
	}

	for row := 0; row < rows; row++ {
		pos := off + row
		idx, ok := s.MatchIndexAt(pos)
		if !ok {
			break
		}
		item, ok := s.ItemAt(idx)
		if !ok {
			continue
		}

		style := itemStyle
		if pos == cursor {
			style = style.Reverse(true)
		}
		prefix := "  "
		if _, m := marked[idx]; m {
			prefix = "* "
		}
		y := 2 + row
		x := drawText(u.screen, 0, y, max, style, prefix)
		drawText(u.screen, x, y, max, style, item.Text)
	}
}

// drawText draws text from column x on row y, clipping at max columns, and
// returns the column after the last cell drawn. Grapheme clusters stay
// whole: the leading rune carries the cluster, zero-width input is skipped.
func drawText(screen tcell.Screen, x, y, max int, style tcell.Style, text string) int {
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		cw := runewidth.StringWidth(g.Str())
		if cw == 0 {
			continue
		}
		if x+cw > max {
			break
		}
		runes := g.Runes()
		screen.SetContent(x, y, runes[0], runes[1:], style)
		x += cw
	}
	return x
}
