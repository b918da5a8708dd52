package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"quickclip/internal/config"
	"quickclip/internal/logging"
	"quickclip/internal/navigation"
	"quickclip/internal/server"
	"quickclip/internal/service"
	"quickclip/pkg/types"
)

func newTUICmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Interactive terminal launcher",
		Long: `Opens a keyboard-driven list of pinned and recent clips. The clipboard is
captured while the launcher is open. Logs go to quickclip.log in the data
directory.

Keys: up/k and down/j move, enter copies (or launches), d deletes, p pins,
ctrl-x clears everything, / filters, tab switches to quick links, q quits.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runTUI(v) },
	}

	f := cmd.Flags()
	f.Bool(config.KeyHeadless, false, "do not touch the system clipboard")
	addStorageFlags(cmd)
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runTUI(v *viper.Viper) error {
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return err
	}
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "quickclip.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer logFile.Close()
	logging.Setup(logFile, logging.FormatJSON, logging.ParseLevel(cfg.LogLevel, slog.LevelInfo))

	release, err := server.ClaimPID(cfg.DataDir, false)
	if err != nil {
		return err
	}
	defer release()

	a, err := openApp(cfg, true)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.start(ctx); err != nil {
		a.persister.Close()
		return err
	}

	ui, err := newLauncherUI(a.svc)
	if err != nil {
		a.close(ctx)
		return err
	}
	runErr := ui.run(ctx)
	return errors.Join(runErr, a.close(context.Background()))
}

// launcherUI draws the service view and maps keys to navigation intents.
type launcherUI struct {
	svc        *service.ClipboardService
	screen     tcell.Screen
	offset     int
	searchMode bool
	status     string
}

func newLauncherUI(svc *service.ClipboardService) (*launcherUI, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to create screen: %w", err)
	}

	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize screen: %w", err)
	}

	// Set default style
	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset))

	ui := &launcherUI{svc: svc, screen: screen}
	svc.RegisterHandler(ui)
	return ui, nil
}

// HandleView wakes the event loop so captures show up while the list is open.
func (ui *launcherUI) HandleView(service.View) {
	ui.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

func (ui *launcherUI) run(ctx context.Context) error {
	defer ui.screen.Fini()
	ui.svc.FocusGained()
	nav := ui.svc.Controller()

	for {
		ui.draw()

		switch ev := ui.screen.PollEvent().(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			ui.screen.Sync()
		case *tcell.EventInterrupt:
			// redraw
		case *tcell.EventKey:
			ui.status = ""
			if ui.searchMode {
				ui.handleSearchKey(ev)
				continue
			}

			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return nil
			case tcell.KeyUp, tcell.KeyCtrlP:
				nav.OnPrev()
			case tcell.KeyDown, tcell.KeyCtrlN:
				nav.OnNext()
			case tcell.KeyTab:
				ui.toggleMode()
			case tcell.KeyDelete:
				ui.report(nav.OnDeleteSelected(ctx))
			case tcell.KeyCtrlX:
				ui.report(nav.OnClearAll(ctx))
			case tcell.KeyEnter:
				out, err := nav.OnActivate(ctx)
				if err != nil {
					ui.report(err)
					continue
				}
				switch out {
				case navigation.OutcomeRejected:
					ui.status = "type a query for this link first"
				case navigation.OutcomeNone:
				default:
					return nil
				}
			case tcell.KeyRune:
				switch ev.Rune() {
				case 'j':
					nav.OnNext()
				case 'k':
					nav.OnPrev()
				case 'd':
					ui.report(nav.OnDeleteSelected(ctx))
				case 'p':
					out, err := nav.OnTogglePin(ctx)
					if err != nil {
						ui.report(err)
					} else if out == navigation.PinOutcomeQuotaExceeded {
						ui.status = "pin limit reached, unpin something first"
					}
				case '/':
					ui.searchMode = true
				case 'q':
					return nil
				}
			}
		}
	}
}

func (ui *launcherUI) handleSearchKey(ev *tcell.EventKey) {
	query := ui.svc.View().Query
	switch ev.Key() {
	case tcell.KeyEscape:
		ui.searchMode = false
		ui.svc.SetQuery("")
	case tcell.KeyEnter:
		ui.searchMode = false
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if r := []rune(query); len(r) > 0 {
			ui.svc.SetQuery(string(r[:len(r)-1]))
		}
	case tcell.KeyRune:
		ui.svc.SetQuery(query + string(ev.Rune()))
	}
}

func (ui *launcherUI) toggleMode() {
	if ui.svc.View().Mode == service.ModeLauncher {
		ui.svc.SetMode(service.ModeClipboard)
	} else {
		ui.svc.SetMode(service.ModeLauncher)
	}
}

func (ui *launcherUI) report(err error) {
	if err != nil {
		slog.Warn("action failed", "err", err)
		ui.status = err.Error()
	}
}

// line is one row of the list: a category label or an item.
type line struct {
	text     string
	label    bool
	selected bool
	pinned   bool
}

func layout(view service.View, width int) []line {
	var lines []line
	for _, g := range view.Groups {
		lines = append(lines, line{text: g.Label, label: true})
		for i, item := range g.Items {
			sel := view.Cursor.Valid && view.Cursor.Category == g.Label && view.Cursor.Index == i
			text := item.Title
			if item.Kind == string(types.KindImage) && item.Image != nil {
				text = fmt.Sprintf("[image %dx%d]", item.Image.Width, item.Image.Height)
			}
			text = strings.ReplaceAll(text, "\n", " ")
			if limit := width - 4; limit > 3 && len([]rune(text)) > limit {
				text = string([]rune(text)[:limit-3]) + "..."
			}
			lines = append(lines, line{text: "  " + text, selected: sel, pinned: item.Pinned})
		}
	}
	return lines
}

func (ui *launcherUI) draw() {
	ui.screen.Clear()
	width, height := ui.screen.Size()
	view := ui.svc.View()

	// Draw header
	headerStyle := tcell.StyleDefault.Reverse(true)
	header := " Clipboard History "
	if view.Mode == service.ModeLauncher {
		header = " Launcher "
	}
	drawStringCenter(ui.screen, 0, header, headerStyle)

	helpStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	help := "↑/k ↓/j Move  Enter:Copy  d:Delete  p:Pin  ^X:Clear  /:Search  Tab:Mode  q:Quit"
	drawStringCenter(ui.screen, 1, help, helpStyle)

	if ui.searchMode || view.Query != "" {
		searchStyle := tcell.StyleDefault.Reverse(ui.searchMode)
		cursor := ""
		if ui.searchMode {
			cursor = "█"
		}
		drawString(ui.screen, 0, 2, fmt.Sprintf(" Search: %s%s", view.Query, cursor), searchStyle)
	} else {
		drawString(ui.screen, 0, 2, strings.Repeat("─", width), tcell.StyleDefault)
	}

	lines := layout(view, width)
	visibleHeight := height - 4
	ui.scrollTo(lines, visibleHeight)

	end := ui.offset + visibleHeight
	if end > len(lines) {
		end = len(lines)
	}
	for i, l := range lines[ui.offset:end] {
		style := tcell.StyleDefault
		switch {
		case l.label:
			style = style.Bold(true).Foreground(tcell.ColorAqua)
		case l.selected:
			style = style.Reverse(true)
		case l.pinned:
			style = style.Foreground(tcell.ColorGreen)
		}
		drawString(ui.screen, 0, i+3, l.text, style)
	}

	// Draw footer
	footer := ui.status
	if footer == "" && len(lines) == 0 {
		footer = "nothing here yet"
	}
	drawString(ui.screen, 0, height-1, footer, tcell.StyleDefault.Foreground(tcell.ColorRed))
	if view.Selected != nil {
		status := fmt.Sprintf(" %s %d ", view.Cursor.Category, view.Cursor.Index+1)
		drawString(ui.screen, width-len([]rune(status)), height-1, status, tcell.StyleDefault)
	}

	ui.screen.Show()
}

// scrollTo keeps the selected row inside the visible window.
func (ui *launcherUI) scrollTo(lines []line, visibleHeight int) {
	if visibleHeight <= 0 {
		return
	}
	selected := -1
	for i, l := range lines {
		if l.selected {
			selected = i
			break
		}
	}
	if ui.offset > len(lines) {
		ui.offset = 0
	}
	if selected < 0 {
		return
	}
	// Keep the category label above the first item visible.
	top := selected
	if top > 0 && lines[top-1].label {
		top--
	}
	if selected-ui.offset >= visibleHeight {
		ui.offset = selected - visibleHeight + 1
	} else if top < ui.offset {
		ui.offset = top
	}
}

func drawString(s tcell.Screen, x, y int, str string, style tcell.Style) {
	for i, r := range []rune(str) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

func drawStringCenter(s tcell.Screen, y int, str string, style tcell.Style) {
	w, _ := s.Size()
	x := (w - len([]rune(str))) / 2
	if x < 0 {
		x = 0
	}
	drawString(s, x, y, str, style)
}
