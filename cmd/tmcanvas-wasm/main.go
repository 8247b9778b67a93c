//go:build js && wasm
// +build js,wasm

// Command tmcanvas-wasm is the browser client served by tmcanvas serve. It
// draws the topicmap handed over in window.tmcanvasTopicmap on the
// #tmcanvas element.
package main

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"syscall/js"
	"time"

	"github.com/recera/tmcanvas/internal/localstore"
	"github.com/recera/tmcanvas/pkg/animate"
	"github.com/recera/tmcanvas/pkg/canvas"
	"github.com/recera/tmcanvas/pkg/debug"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/surface/canvas2d"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

var (
	document js.Value
	window   js.Value
	logger   *slog.Logger
)

// loop runs everything that touches the canvas, in order. JS callbacks
// must not block, so they post here.
var loop = make(chan func(), 256)

func post(fn func()) {
	select {
	case loop <- fn:
	default:
		logger.Warn("event dropped, loop busy")
	}
}

type app struct {
	canvas  *canvas.Canvas
	surface *canvas2d.Surface
	exec    *canvas.QueueExecutor
	menu    js.Value
	funcs   []js.Func

	// menuFuncs are released with the menu.
	menuFuncs []js.Func
}

func main() {
	document = js.Global().Get("document")
	window = js.Global().Get("window")
	logger = debug.EnableLogging(slog.LevelInfo)

	a, err := start()
	if err != nil {
		logger.Error("tmcanvas failed to start", "err", err)
		return
	}
	logger.Info("tmcanvas started", "topicmap", a.canvas.Snapshot().Name)

	for {
		select {
		case fn := <-loop:
			fn()
		case cont := <-a.exec.C:
			cont()
		}
	}
}

func start() (*app, error) {
	var tm topicmap.Topicmap
	if raw := window.Get("tmcanvasTopicmap"); raw.Truthy() {
		if err := json.Unmarshal([]byte(raw.String()), &tm); err != nil {
			return nil, err
		}
	}

	a := &app{exec: canvas.NewQueueExecutor(64)}
	sources := iconSources(&tm)
	icons := style.NewTracker(sources...)
	surface, err := canvas2d.New(document.Call("getElementById", "tmcanvas"), canvas2d.Options{
		OnIconLoaded: func(src string) {
			icons.Done(src)
			post(func() { a.canvas.Draw() })
		},
		OnIconFailed: func(src string) {
			logger.Warn("icon load failed", "source", src)
			icons.Done(src)
		},
	})
	if err != nil {
		return nil, err
	}
	surface.Fit()
	a.surface = surface

	store := localstore.New(logger)
	store.Seed(&tm)

	a.canvas = canvas.New(surface, canvas.Collaborators{
		Persistence: store,
		Styles:      stylesFor(&tm),
		Commands:    canvas.CommandsFunc(a.commandsFor),
	}, canvas.Options{
		Logger:       logger,
		TopicmapType: tm.Type,
		Executor:     a.exec,
		Animate:      a.animate,
		Icons:        icons,
	})
	a.canvas.Hooks.Error.On(func(err *canvas.OpError) {
		logger.Error("canvas operation failed", "err", err)
	})
	a.canvas.Hooks.MenuOpened.On(a.showMenu)
	a.canvas.Hooks.MenuClosed.On(func(*canvas.Menu) { a.hideMenu() })
	a.canvas.Load(&tm)
	surface.Preload(sources...)
	logger.Debug("loading icons", "pending", icons.Pending())

	a.bind(surface)
	return a, nil
}

// iconSources lists the icon of every type the topicmap declares.
func iconSources(tm *topicmap.Topicmap) []string {
	var out []string
	for _, t := range tm.Types {
		if t.Icon != "" {
			out = append(out, t.Icon)
		}
	}
	return out
}

// stylesFor registers the icon of every type the topicmap declares. The
// browser loads them from their source on first draw.
func stylesFor(tm *topicmap.Topicmap) *style.Table {
	table := style.NewTable()
	for _, t := range tm.Types {
		if t.Icon == "" {
			continue
		}
		table.SetIcon(t.URI, &style.Icon{Source: t.Icon, Width: style.DefaultIconSize, Height: style.DefaultIconSize})
	}
	return table
}

// animate steps a sequence from a timer goroutine; the steps themselves
// run on the loop.
func (a *app) animate(seq *animate.Sequence) {
	go func() {
		for !seq.Done() {
			time.Sleep(seq.Delay())
			done := make(chan struct{})
			post(func() {
				seq.Advance()
				close(done)
			})
			<-done
		}
	}()
}

func pointer(ev js.Value) canvas.PointerEvent {
	p := canvas.PointerEvent{X: ev.Get("offsetX").Int(), Y: ev.Get("offsetY").Int()}
	switch ev.Get("button").Int() {
	case 1:
		p.Button = canvas.ButtonMiddle
	case 2:
		p.Button = canvas.ButtonSecondary
	}
	if ev.Get("shiftKey").Bool() {
		p.Mods |= canvas.ModShift
	}
	if ev.Get("altKey").Bool() {
		p.Mods |= canvas.ModAlt
	}
	if ev.Get("ctrlKey").Bool() {
		p.Mods |= canvas.ModCtrl
	}
	return p
}

func (a *app) on(target js.Value, event string, prevent bool, fn func(ev js.Value)) {
	a.funcs = append(a.funcs, listen(target, event, prevent, fn))
}

func listen(target js.Value, event string, prevent bool, fn func(ev js.Value)) js.Func {
	f := js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := args[0]
		if prevent {
			ev.Call("preventDefault")
		}
		post(func() { fn(ev) })
		return nil
	})
	target.Call("addEventListener", event, f)
	return f
}

func (a *app) bind(surface *canvas2d.Surface) {
	el := document.Call("getElementById", "tmcanvas")
	c := a.canvas

	a.on(el, "mousedown", false, func(ev js.Value) {
		if ev.Get("button").Int() == 0 {
			c.PointerDown(pointer(ev))
		}
	})
	a.on(el, "mousemove", false, func(ev js.Value) { c.PointerMove(pointer(ev)) })
	a.on(el, "mouseup", false, func(ev js.Value) { c.PointerUp(pointer(ev)) })
	a.on(el, "mouseleave", false, func(js.Value) { c.PointerLeave() })
	a.on(el, "dblclick", false, func(ev js.Value) { c.DoubleClick(pointer(ev)) })
	a.on(el, "contextmenu", true, func(ev js.Value) { c.ContextMenu(pointer(ev)) })
	a.on(el, "wheel", true, func(ev js.Value) {
		c.Pan(topicmap.Point{X: -ev.Get("deltaX").Int(), Y: -ev.Get("deltaY").Int()})
	})
	a.on(document, "keydown", false, func(ev js.Value) {
		if ev.Get("key").String() == "Escape" {
			c.DismissMenu()
			c.CancelGesture()
		}
	})
	a.on(window, "resize", false, func(js.Value) {
		w, h := surface.Fit()
		c.Resize(w, h)
	})
}

// commandsFor offers the canvas operations the browser can run without a
// detail panel.
func (a *app) commandsFor(target canvas.Target, _ string) []canvas.Command {
	c := a.canvas
	switch target.Kind {
	case canvas.TargetTopic:
		return []canvas.Command{
			{Label: "Associate", Handler: func(t canvas.Target) { c.BeginAssociation(t.ID) }},
			{Label: "Center", Handler: func(t canvas.Target) {
				if topic := c.Store().Topic(t.ID); topic != nil {
					c.ScrollToCenter(topic.Position())
				}
			}},
			{Separator: true},
			{Label: "Hide", Handler: func(t canvas.Target) { c.HideTopic(t.ID) }},
			{Label: "Delete", Handler: func(t canvas.Target) { c.DeleteTopic(t.ID) }},
		}
	case canvas.TargetAssociation:
		return []canvas.Command{
			{Label: "Hide", Handler: func(t canvas.Target) { c.HideAssociation(t.ID) }},
			{Label: "Delete", Handler: func(t canvas.Target) { c.DeleteAssociation(t.ID) }},
		}
	case canvas.TargetCanvas:
		return []canvas.Command{
			{Label: "New topic here", Handler: func(t canvas.Target) {
				p := t.Point
				c.CreateTopic("dm4.notes.note", "New Topic", &p)
			}},
		}
	}
	return nil
}

// showMenu renders the open context menu as a positioned list.
func (a *app) showMenu(m *canvas.Menu) {
	a.hideMenu()
	ul := document.Call("createElement", "ul")
	st := ul.Get("style")
	st.Set("cssText", "position:fixed;margin:0;padding:4px 0;list-style:none;background:#fff;"+
		"border:1px solid #ccc;box-shadow:0 2px 6px rgba(0,0,0,.2);font:13px sans-serif;")
	st.Set("left", strconv.Itoa(m.Screen.X)+"px")
	st.Set("top", strconv.Itoa(m.Screen.Y)+"px")

	for i, cmd := range m.Commands {
		li := document.Call("createElement", "li")
		if cmd.Separator {
			li.Get("style").Set("cssText", "border-top:1px solid #ddd;margin:4px 0;")
			ul.Call("appendChild", li)
			continue
		}
		li.Set("textContent", cmd.Label)
		li.Get("style").Set("cssText", "padding:2px 16px;cursor:pointer;")
		i := i
		a.menuFuncs = append(a.menuFuncs, listen(li, "mousedown", true, func(js.Value) {
			if err := a.canvas.InvokeMenu(i); err != nil {
				logger.Warn("menu command failed", "err", err)
			}
		}))
		ul.Call("appendChild", li)
	}
	document.Get("body").Call("appendChild", ul)
	a.menu = ul
}

func (a *app) hideMenu() {
	if a.menu.Truthy() {
		a.menu.Call("remove")
	}
	a.menu = js.Undefined()
	for _, f := range a.menuFuncs {
		f.Release()
	}
	a.menuFuncs = nil
}
