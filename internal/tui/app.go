// Package tui is the terminal front-end. It renders projection snapshots
// and turns key presses into engine commands.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/dchat/internal/backend"
	"github.com/matheus3301/dchat/internal/bus"
	"github.com/matheus3301/dchat/internal/command"
	"github.com/matheus3301/dchat/internal/engine"
	dmodel "github.com/matheus3301/dchat/internal/model"
	"github.com/matheus3301/dchat/internal/texcache"
	"github.com/matheus3301/dchat/internal/tui/keys"
	"github.com/matheus3301/dchat/internal/tui/model"
	"github.com/matheus3301/dchat/internal/tui/ui"
	"github.com/matheus3301/dchat/internal/tui/views"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const headerHeight = 5

// Engine is the part of the sync engine the App drives.
type Engine interface {
	Start(ctx context.Context) error
	Stop()
}

// Options configures an App.
type Options struct {
	Profile string
	Theme   *ui.Theme
	Cache   *texcache.Cache
	// Bus carries login changes to flash; optional.
	Bus    *bus.Bus
	Logger *zap.Logger
}

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	pages    *ui.Pages
	body     *tview.Flex
	vm       *model.ViewModel
	engine   Engine
	backend  backend.Backend
	registry *keys.Registry
	theme    *ui.Theme
	bus      *bus.Bus
	logger   *zap.Logger

	accountInfo *ui.AccountInfo
	menu        *ui.Menu
	crumbs      *ui.Crumbs
	prompt      *ui.Prompt
	statusBar   *ui.StatusBar

	accounts *views.AccountList
	chatList *views.ChatList
	thread   *views.MessageThread
	detail   *views.AccountDetail
	login    *views.LoginForm
	help     *views.HelpView
	pageView map[string]ui.Component

	// ready is set once the engine runs. UI goroutine only.
	ready         bool
	bootstrapping atomic.Bool
	runErr        error

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application. vm must be the Repainter of eng.
func NewApp(vm *model.ViewModel, eng Engine, be backend.Backend, opts Options) *App {
	if opts.Theme == nil {
		opts.Theme = ui.DefaultTheme()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	theme := opts.Theme

	a := &App{
		app:         tview.NewApplication(),
		pages:       ui.NewPages(),
		vm:          vm,
		engine:      eng,
		backend:     be,
		registry:    keys.NewRegistry(),
		theme:       theme,
		bus:         opts.Bus,
		logger:      opts.Logger,
		accountInfo: ui.NewAccountInfo(theme, opts.Profile),
		menu:        ui.NewMenu(theme, headerHeight),
		crumbs:      ui.NewCrumbs(theme),
		prompt:      ui.NewPrompt(theme),
		statusBar:   ui.NewStatusBar(theme),
		accounts:    views.NewAccountList(theme),
		chatList:    views.NewChatList(theme),
		thread:      views.NewMessageThread(theme, opts.Cache),
		detail:      views.NewAccountDetail(theme, opts.Cache),
		login:       views.NewLoginForm(theme),
		help:        views.NewHelpView(theme),
		ctx:         ctx,
		cancel:      cancel,
	}
	a.pageView = map[string]ui.Component{
		pageAccounts: a.accounts,
		pageChats:    a.chatList,
		pageChat:     a.thread,
		pageDetail:   a.detail,
		pageLogin:    a.login,
		pageHelp:     a.help,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	a.setupHelp()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(
		keys.Rune(':', "command", a.showPrompt(ui.PromptCommand)),
		keys.Rune('?', "help", func() { a.show(pageHelp) }),
		keys.Special(tcell.KeyCtrlR, "reconnect", func() { a.send(command.MaybeNetwork{}) }),
		keys.Special(tcell.KeyEscape, "back", func() { a.pages.Pop() }),
		keys.Rune('q', "quit", a.Stop),
	)

	a.registry.Add(pageAccounts,
		keys.Special(tcell.KeyEnter, "switch", func() {
			if id, ok := a.accounts.SelectedAccount(); ok {
				a.selectAccount(id)
			}
		}),
		keys.Rune('d', "details", func() {
			if id, ok := a.accounts.SelectedAccount(); ok {
				a.showDetail(id)
			}
		}),
		keys.Rune('a', "add account", func() { a.show(pageLogin) }),
	)
	for n := 1; n <= 9; n++ {
		a.registry.Add(pageAccounts, hidden(keys.Rune(rune('0'+n), "", func() {
			if id, ok := a.accounts.AccountAt(n); ok {
				a.selectAccount(id)
			}
		})))
	}

	a.registry.Add(pageChats,
		keys.Special(tcell.KeyEnter, "open", func() {
			if c, ok := a.chatList.SelectedChat(); ok {
				a.openChat(c.ID)
			}
		}),
		keys.Rune('/', "filter", a.showPrompt(ui.PromptFilter)),
		keys.Rune('p', "pin", a.togglePin),
		keys.Rune('A', "archive", a.toggleArchive),
		keys.Rune('a', "accounts", func() { a.show(pageAccounts) }),
		keys.Rune('d', "details", func() {
			if id := a.vm.State().Shared.SelectedAccount; id != nil {
				a.showDetail(*id)
			}
		}),
		keys.Rune('n', "add account", func() { a.show(pageLogin) }),
	)
	for n := 1; n <= 9; n++ {
		a.registry.Add(pageChats, hidden(keys.Rune(rune('0'+n), "", func() {
			if c, ok := a.chatList.ChatAt(n); ok {
				a.openChat(c.ID)
			}
		})))
	}

	a.registry.Add(pageChat,
		keys.Rune('i', "write", func() { a.app.SetFocus(a.thread.Composer()) }),
		keys.Rune('[', "earlier", a.loadEarlier),
		keys.Rune('p', "pin", a.togglePin),
		keys.Rune('A', "archive", a.toggleArchive),
		keys.Rune('c', "accept", a.acceptRequest),
		keys.Rune('b', "block", a.blockChat),
	)
}

func hidden(a keys.Action) keys.Action {
	a.Hidden = true
	return a
}

func (a *App) setupCallbacks() {
	a.pages.SetOnChange(func(stack []string) {
		labels := make([]string, 0, len(stack))
		for _, name := range stack {
			labels = append(labels, a.pageView[name].Name())
		}
		a.crumbs.Update(labels)
		page := a.pages.Current()
		a.menu.Update(a.registry.Hints(page))
		if c, ok := a.pageView[page]; ok {
			c.Render(a.vm.State())
			a.app.SetFocus(a.focusTarget(page))
		}
	})

	a.chatList.SetOnNeedMore(func(w dmodel.Range) {
		a.send(command.LoadChatList{Start: w.Start, End: w.End})
	})

	a.thread.SetOnSubmit(func(text string) {
		cmd, err := ParseInput(text)
		if errors.Is(err, ErrEmptyInput) {
			return
		}
		if err != nil {
			a.flashErr(err)
			return
		}
		a.send(cmd)
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.chatList.SetFilter(strings.TrimSpace(text))
		case ui.PromptCommand:
			a.runCommand(text)
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)

	a.login.SetOnSubmit(a.addAccount)
	a.login.SetOnError(a.flashErr)
	a.login.SetOnCancel(func() {
		if !a.ready {
			a.Stop()
			return
		}
		a.pages.Pop()
	})
}

func (a *App) setupLayout() {
	for name, c := range a.pageView {
		a.pages.AddPage(name, c, true, false)
	}

	header := tview.NewFlex().
		AddItem(a.accountInfo, 40, 0, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(ui.NewLogo(a.theme), 30, 0, false)

	a.body = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, headerHeight, 0, false).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.statusBar, 1, 0, false)
	a.body.SetBackgroundColor(a.theme.BgColor)

	a.app.SetRoot(a.body, true)
	a.app.SetInputCapture(a.handleKey)
}

func (a *App) setupHelp() {
	commands := make([]keys.Hint, 0, len(commandHelp))
	for _, c := range commandHelp {
		commands = append(commands, keys.Hint{Key: c[0], Description: c[1]})
	}
	a.help.SetSections([]views.HelpSection{
		{Title: "Everywhere", Hints: a.registry.GlobalHints()},
		{Title: "Accounts", Hints: a.registry.PageHints(pageAccounts)},
		{Title: "Chats", Hints: a.registry.PageHints(pageChats)},
		{Title: "Chat", Hints: a.registry.PageHints(pageChat)},
		{Title: "Commands", Hints: commands},
		{Title: "Composer", Hints: []keys.Hint{
			{Key: "/file <path> [caption]", Description: "send a file"},
			{Key: "/image <path> [caption]", Description: "send an image"},
			{Key: "//text", Description: "send text starting with /"},
		}},
	})
}

func (a *App) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	page := a.pages.Current()
	focused := a.app.GetFocus()

	if focused == a.thread.Composer() && ev.Key() == tcell.KeyEscape {
		a.app.SetFocus(a.thread.Messages())
		return nil
	}
	// Text inputs and the login form handle their own keys.
	if _, ok := focused.(*tview.InputField); ok {
		return ev
	}
	if page == pageLogin {
		return ev
	}
	if !a.ready && ev.Key() != tcell.KeyCtrlC {
		if ev.Rune() == 'q' {
			a.Stop()
		}
		return nil
	}
	if a.registry.Handle(page, ev) {
		return nil
	}
	return ev
}

func (a *App) focusTarget(page string) tview.Primitive {
	if page == pageChat {
		return a.thread.Messages()
	}
	return a.pageView[page]
}

func (a *App) show(page string) {
	if page == pageLogin {
		a.login.SetFirstAccount(!a.ready)
		a.login.Reset()
	}
	a.pages.Push(page)
}

func (a *App) showPrompt(mode ui.PromptMode) func() {
	return func() {
		a.prompt.Activate(mode)
		if mode == ui.PromptFilter {
			a.prompt.SetText(a.chatList.Filter())
		}
		a.body.ResizeItem(a.prompt, 3, 0)
		a.app.SetFocus(a.prompt)
	}
}

func (a *App) hidePrompt() {
	a.body.ResizeItem(a.prompt, 0, 0)
	a.app.SetFocus(a.focusTarget(a.pages.Current()))
}

func (a *App) runCommand(text string) {
	res, err := resolveCommand(ParseCommand(text), a.vm.State())
	if err != nil {
		a.flashErr(err)
		return
	}
	if res.quit {
		a.Stop()
		return
	}
	if res.cmd != nil && !a.send(res.cmd) {
		return
	}
	if res.page != "" {
		a.show(res.page)
	}
}

// send queues cmd for the engine. Failures are flashed.
func (a *App) send(cmd command.Command) bool {
	if !a.ready {
		a.vm.Flash.Warn("add an account first")
		a.renderStatus()
		return false
	}
	ok := a.vm.Send(cmd)
	if !ok {
		a.renderStatus()
	}
	return ok
}

func (a *App) flashErr(err error) {
	a.vm.Flash.Err(err)
	a.renderStatus()
}

func (a *App) selectAccount(id uint32) {
	if a.send(command.SelectAccount{Account: id}) {
		a.chatList.SetFilter("")
		a.pages.Push(pageChats)
	}
}

func (a *App) showDetail(id uint32) {
	if a.send(command.GetAccountDetail{Account: id}) {
		a.pages.Push(pageDetail)
	}
}

func (a *App) openChat(chat uint32) {
	acc := a.vm.State().Shared.SelectedAccount
	if acc == nil {
		return
	}
	if a.send(command.SelectChat{Account: *acc, Chat: chat}) {
		a.pages.Push(pageChat)
	}
}

// targetChat is the chat under the cursor on the chat list, or the open
// chat elsewhere.
func (a *App) targetChat() (uint32, dmodel.ChatSummary, bool) {
	s := a.vm.State()
	if s.Shared.SelectedAccount == nil {
		return 0, dmodel.ChatSummary{}, false
	}
	acc := *s.Shared.SelectedAccount
	if a.pages.Current() == pageChats {
		c, ok := a.chatList.SelectedChat()
		return acc, c, ok
	}
	if s.Shared.SelectedChat == nil {
		return 0, dmodel.ChatSummary{}, false
	}
	return acc, *s.Shared.SelectedChat, true
}

func (a *App) togglePin() {
	acc, c, ok := a.targetChat()
	if !ok {
		return
	}
	if c.IsPinned {
		a.send(command.UnpinChat{Account: acc, Chat: c.ID})
		return
	}
	a.send(command.PinChat{Account: acc, Chat: c.ID})
}

func (a *App) toggleArchive() {
	acc, c, ok := a.targetChat()
	if !ok {
		return
	}
	if c.IsArchived {
		a.send(command.UnarchiveChat{Account: acc, Chat: c.ID})
		return
	}
	a.send(command.ArchiveChat{Account: acc, Chat: c.ID})
}

func (a *App) acceptRequest() {
	acc, c, ok := a.targetChat()
	if !ok {
		return
	}
	if !c.IsContactRequest {
		a.vm.Flash.Warn("not a contact request")
		a.renderStatus()
		return
	}
	a.send(command.AcceptContactRequest{Account: acc, Chat: c.ID})
}

func (a *App) blockChat() {
	if acc, c, ok := a.targetChat(); ok {
		a.send(command.BlockContact{Account: acc, Chat: c.ID})
	}
}

func (a *App) loadEarlier() {
	w, ok := a.thread.EarlierWindow(a.vm.State())
	if !ok {
		a.vm.Flash.Info("no earlier messages")
		a.renderStatus()
		return
	}
	a.send(command.LoadMessageList{Start: w.Start, End: w.End})
}

// addAccount sends a Login or ImportAccount command. Without a running
// engine it creates the first account instead.
func (a *App) addAccount(cmd command.Command) {
	if a.ready {
		if a.send(cmd) {
			a.vm.Flash.Info("adding account")
			a.pages.Pop()
		}
		return
	}
	if !a.bootstrapping.CompareAndSwap(false, true) {
		return
	}
	a.vm.Flash.Info("setting up your account")
	a.renderStatus()
	go a.bootstrap(cmd)
}

func (a *App) bootstrap(cmd command.Command) {
	defer a.bootstrapping.Store(false)

	id, err := engine.Bootstrap(a.ctx, a.backend, cmd)
	if err != nil {
		a.logger.Warn("first account setup failed", zap.Error(err))
		a.vm.Flash.Err(err)
		a.vm.RequestRepaint()
		return
	}
	a.logger.Info("first account created", zap.Uint32("account", id))
	a.start()
}

// start runs the engine and shows the chat list, or the login form when
// there is no account yet.
func (a *App) start() {
	err := a.engine.Start(a.ctx)
	switch {
	case errors.Is(err, engine.ErrNoAccounts):
		a.app.QueueUpdateDraw(func() {
			a.login.SetFirstAccount(true)
			a.login.Reset()
			a.pages.Reset(pageLogin)
		})
	case err != nil:
		a.runErr = fmt.Errorf("start engine: %w", err)
		a.app.Stop()
	default:
		a.app.QueueUpdateDraw(func() {
			a.ready = true
			a.pages.Reset(pageAccounts)
			a.pages.Push(pageChats)
		})
	}
}

func (a *App) render() {
	s := a.vm.State()
	a.vm.SurfaceErrors(s)
	a.accountInfo.Render(s)
	if c, ok := a.pageView[a.pages.Current()]; ok {
		c.Render(s)
	}
	a.renderStatus()
}

func (a *App) renderStatus() {
	a.statusBar.Update(a.vm.Flash.Current())
}

// renderLoop redraws on every repaint request and once a second for the
// clock and flash expiry.
func (a *App) renderLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.vm.Repaints():
			a.app.QueueUpdateDraw(a.render)
		case <-ticker.C:
			a.app.QueueUpdateDraw(a.renderStatus)
		}
	}
}

// Run starts the engine and blocks until the user quits.
func (a *App) Run() error {
	a.pages.Reset(pageChats)
	a.vm.Flash.Info("loading")
	a.renderStatus()

	go a.renderLoop()
	if a.bus != nil {
		go a.vm.WatchLogins(a.ctx, a.bus)
	}
	go a.start()

	err := a.app.Run()
	a.cancel()
	a.engine.Stop()
	if err != nil {
		return err
	}
	return a.runErr
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
