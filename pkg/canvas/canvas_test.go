package canvas

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"

	"github.com/recera/tmcanvas/internal/testharness"
	"github.com/recera/tmcanvas/pkg/animate"
	"github.com/recera/tmcanvas/pkg/style"
	"github.com/recera/tmcanvas/pkg/topicmap"
	"github.com/recera/tmcanvas/pkg/viewmodel"
)

func pt(x, y int) topicmap.Point { return topicmap.Point{X: x, Y: y} }

// fixture: A(1) at (100,100) and B(2) at (300,100) joined by association
// 10; C(3) at (300,300) on its own; D(4) known to the server but hidden.
func fixture() *topicmap.Topicmap {
	return &topicmap.Topicmap{
		ID:   100,
		Name: "fixture",
		Topics: []topicmap.PlacedTopic{
			{Topic: topicmap.Topic{ID: 1, TypeURI: "t", Label: "A"}, X: 100, Y: 100, Visible: true},
			{Topic: topicmap.Topic{ID: 2, TypeURI: "t", Label: "B"}, X: 300, Y: 100, Visible: true},
			{Topic: topicmap.Topic{ID: 3, TypeURI: "t", Label: "C"}, X: 300, Y: 300, Visible: true},
			{Topic: topicmap.Topic{ID: 4, TypeURI: "t", Label: "D"}, X: 0, Y: 0, Visible: false},
		},
		Associations: []topicmap.Association{
			{ID: 10, TypeURI: "r", Role1: 1, Role2: 2},
		},
	}
}

type harness struct {
	c       *Canvas
	surface *testharness.Surface
	persist *testharness.Persistence
	errs    []*OpError
}

func newHarness(t *testing.T, opts Options, collab Collaborators) *harness {
	t.Helper()
	h := &harness{
		surface: testharness.NewSurface(800, 600),
		persist: testharness.NewPersistence(),
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(1, 2))
	}
	if collab.Persistence == nil {
		collab.Persistence = h.persist
	}
	if collab.Styles == nil {
		collab.Styles = style.NewTable()
	}
	h.c = New(h.surface, collab, opts)
	h.c.Hooks.Error.On(func(e *OpError) { h.errs = append(h.errs, e) })

	tm := fixture()
	h.persist.Seed(tm)
	h.c.Load(tm)
	return h
}

func (h *harness) click(x, y int) {
	h.c.PointerDown(PointerEvent{X: x, Y: y})
	h.c.PointerUp(PointerEvent{X: x, Y: y})
}

func (h *harness) drag(from, to topicmap.Point, mods Modifiers) {
	h.c.PointerDown(PointerEvent{X: from.X, Y: from.Y, Mods: mods})
	h.c.PointerMove(PointerEvent{X: (from.X + to.X) / 2, Y: (from.Y + to.Y) / 2, Mods: mods})
	h.c.PointerMove(PointerEvent{X: to.X, Y: to.Y, Mods: mods})
	h.c.PointerUp(PointerEvent{X: to.X, Y: to.Y, Mods: mods})
}

func TestLoadShowsVisibleTopics(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	if n := h.c.Store().TopicCount(); n != 3 {
		t.Errorf("Expected 3 visible topics, got %d", n)
	}
	if h.c.TopicmapID() != 100 {
		t.Errorf("Expected topicmap 100, got %d", h.c.TopicmapID())
	}
	if h.surface.Count(testharness.OpClear) == 0 {
		t.Error("Expected Load to draw")
	}
}

func TestFirstDrawWaitsForIcons(t *testing.T) {
	exec := &testharness.ManualExecutor{}
	tracker := style.NewTracker("note.png", "person.png")
	h := newHarness(t, Options{Executor: exec, Icons: tracker}, Collaborators{})

	if n := h.surface.Count(testharness.OpClear); n != 0 {
		t.Errorf("Expected no draw before icons settled, got %d clears", n)
	}
	tracker.Done("note.png")
	tracker.Done("person.png")
	if exec.Pending() != 1 {
		t.Fatalf("Expected one scheduled draw, got %d", exec.Pending())
	}
	exec.Flush()
	if n := h.surface.Count(testharness.OpClear); n != 1 {
		t.Errorf("Expected one draw once icons settled, got %d", n)
	}
	if len(h.surface.Texts()) == 0 {
		t.Error("Expected labels drawn")
	}
}

func TestHitTest(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	tests := []struct {
		name  string
		p     topicmap.Point
		topic topicmap.ID
		assoc topicmap.ID
	}{
		{"topic center", pt(100, 100), 1, 0},
		{"just outside topic", pt(100+12+1, 100), 0, 10},
		{"on association", pt(200, 101), 0, 10},
		{"off association", pt(200, 150), 0, 0},
		{"empty", pt(600, 500), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotTopic, gotAssoc topicmap.ID
			if topic := h.c.FindTopicAt(tt.p); topic != nil {
				gotTopic = topic.ID
			}
			if a := h.c.FindAssociationAt(tt.p); a != nil {
				gotAssoc = a.ID
			}
			if gotTopic != tt.topic {
				t.Errorf("Expected topic %d, got %d", tt.topic, gotTopic)
			}
			if gotAssoc != tt.assoc {
				t.Errorf("Expected association %d, got %d", tt.assoc, gotAssoc)
			}
		})
	}
}

func TestPanRoundTrip(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	orig := h.c.Translation()

	h.c.Pan(pt(30, -20))
	if topic := h.c.TopicAtScreen(130, 80); topic == nil || topic.ID != 1 {
		t.Errorf("Expected topic 1 at translated screen position, got %v", topic)
	}
	if topic := h.c.TopicAtScreen(100, 100); topic != nil {
		t.Errorf("Expected nothing at the old screen position, got %d", topic.ID)
	}

	h.c.Pan(pt(-30, 20))
	if h.c.Translation() != orig {
		t.Errorf("Expected translation %v restored, got %v", orig, h.c.Translation())
	}
	if topic := h.c.TopicAtScreen(100, 100); topic == nil || topic.ID != 1 {
		t.Errorf("Expected topic 1 hit again, got %v", topic)
	}
}

func TestPointerPanCommitsTranslation(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	var changed []topicmap.Point
	h.c.Hooks.TranslationChanged.On(func(p topicmap.Point) { changed = append(changed, p) })

	h.c.PointerDown(PointerEvent{X: 500, Y: 500})
	if h.c.Mode() != ModeCanvasPanning {
		t.Fatalf("Expected panning, got %v", h.c.Mode())
	}
	h.c.PointerMove(PointerEvent{X: 540, Y: 520})
	if h.c.Translation() != pt(40, 20) {
		t.Errorf("Expected live translation (40,20), got %v", h.c.Translation())
	}
	if len(h.persist.CallsTo("SetTranslation")) != 0 {
		t.Error("Expected no persistence before release")
	}
	h.c.PointerUp(PointerEvent{X: 540, Y: 520})

	calls := h.persist.CallsTo("SetTranslation")
	if len(calls) != 1 || calls[0].Point != pt(40, 20) || calls[0].ID != 100 {
		t.Errorf("Expected one SetTranslation((40,20)) for topicmap 100, got %+v", calls)
	}
	if len(changed) != 1 {
		t.Errorf("Expected one TranslationChanged, got %d", len(changed))
	}
	if h.c.Mode() != ModeIdle {
		t.Errorf("Expected idle after release, got %v", h.c.Mode())
	}
}

func TestClickSelectsAndResets(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})

	h.click(100, 100)
	if hl := h.c.Store().Highlight(); !hl.Is(viewmodel.HighlightTopic, 1) {
		t.Errorf("Expected topic 1 highlighted, got %+v", hl)
	}
	if sel, ok := h.c.Selected(); !ok || sel.Kind != TargetTopic || sel.ID != 1 {
		t.Errorf("Expected topic 1 selected, got %+v %v", sel, ok)
	}

	h.click(200, 101)
	if hl := h.c.Store().Highlight(); !hl.Is(viewmodel.HighlightAssociation, 10) {
		t.Errorf("Expected association 10 highlighted, got %+v", hl)
	}

	h.click(600, 500)
	if hl := h.c.Store().Highlight(); hl.Kind != viewmodel.HighlightNone {
		t.Errorf("Expected no highlight, got %+v", hl)
	}
	if _, ok := h.c.Selected(); ok {
		t.Error("Expected selection reset")
	}
	if n := len(h.persist.CallsTo("SetTranslation")); n != 0 {
		t.Errorf("Expected a click not to commit a pan, got %d calls", n)
	}
}

func TestDragTopic(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	var moved []TopicMoved
	h.c.Hooks.TopicMoved.On(func(m TopicMoved) { moved = append(moved, m) })

	h.c.PointerDown(PointerEvent{X: 100, Y: 100})
	h.c.PointerMove(PointerEvent{X: 102, Y: 101})
	if p := h.c.Store().Topic(1).Position(); p != pt(100, 100) {
		t.Errorf("Expected no movement below threshold, got %v", p)
	}
	h.c.PointerMove(PointerEvent{X: 150, Y: 120})
	if p := h.c.Store().Topic(1).Position(); p != pt(150, 120) {
		t.Errorf("Expected topic at (150,120), got %v", p)
	}
	if h.c.Translation() != pt(0, 0) {
		t.Errorf("Expected dragging not to pan, got %v", h.c.Translation())
	}
	h.c.PointerUp(PointerEvent{X: 150, Y: 120})

	calls := h.persist.CallsTo("MoveTopic")
	if len(calls) != 1 || calls[0].ID != 1 || calls[0].Point != pt(150, 120) {
		t.Errorf("Expected MoveTopic(1,(150,120)), got %+v", calls)
	}
	if p, _ := h.persist.Position(100, 1); p != pt(150, 120) {
		t.Errorf("Expected server position updated, got %v", p)
	}
	if len(moved) != 1 || moved[0].From != pt(100, 100) || moved[0].To != pt(150, 120) {
		t.Errorf("Expected one TopicMoved from (100,100), got %+v", moved)
	}
	if hl := h.c.Store().Highlight(); hl.Kind != viewmodel.HighlightNone {
		t.Errorf("Expected a drag not to select, got %+v", hl)
	}
}

func TestPointerLeaveEndsGesture(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.PointerDown(PointerEvent{X: 300, Y: 300})
	h.c.PointerMove(PointerEvent{X: 340, Y: 300})
	h.c.PointerLeave()

	if h.c.Mode() != ModeIdle {
		t.Errorf("Expected idle after leave, got %v", h.c.Mode())
	}
	if calls := h.persist.CallsTo("MoveTopic"); len(calls) != 1 || calls[0].Point != pt(340, 300) {
		t.Errorf("Expected drag committed on leave, got %+v", calls)
	}

	h.c.PointerMove(PointerEvent{X: 400, Y: 400})
	if p := h.c.Store().Topic(3).Position(); p != pt(340, 300) {
		t.Errorf("Expected no movement after leave, got %v", p)
	}
}

func TestSecondaryButtonIgnored(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.PointerDown(PointerEvent{X: 100, Y: 100, Button: ButtonSecondary})
	if h.c.Mode() != ModeIdle {
		t.Errorf("Expected idle, got %v", h.c.Mode())
	}
}

func TestNonPrimaryReleaseIgnored(t *testing.T) {
	for _, b := range []Button{ButtonSecondary, ButtonMiddle} {
		h := newHarness(t, Options{}, Collaborators{})
		h.c.PointerDown(PointerEvent{X: 100, Y: 100})
		h.c.PointerMove(PointerEvent{X: 150, Y: 150})
		h.c.PointerUp(PointerEvent{X: 150, Y: 150, Button: b})
		if h.c.Mode() != ModeTopicDragging {
			t.Errorf("Button %d: expected drag to continue, got %v", b, h.c.Mode())
		}
		if n := len(h.persist.CallsTo("MoveTopic")); n != 0 {
			t.Errorf("Button %d: expected no move committed, got %d", b, n)
		}
		h.c.PointerUp(PointerEvent{X: 150, Y: 150})
		if n := len(h.persist.CallsTo("MoveTopic")); n != 1 {
			t.Errorf("Button %d: expected primary release to commit, got %d", b, n)
		}

		if err := h.c.BeginAssociation(1); err != nil {
			t.Fatal(err)
		}
		h.c.PointerMove(PointerEvent{X: 300, Y: 300})
		h.c.PointerUp(PointerEvent{X: 300, Y: 300, Button: b})
		if h.c.Mode() != ModeAssociationPulling {
			t.Errorf("Button %d: expected pull to continue, got %v", b, h.c.Mode())
		}
		if n := len(h.persist.CallsTo("CreateAssociation")); n != 0 {
			t.Errorf("Button %d: expected no association, got %d", b, n)
		}
	}
}

func TestAssociationPull(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	var created []topicmap.Association
	h.c.Hooks.AssociationCreated.On(func(a topicmap.Association) { created = append(created, a) })

	h.c.PointerDown(PointerEvent{X: 100, Y: 100, Mods: ModShift})
	if h.c.Mode() != ModeAssociationPulling {
		t.Fatalf("Expected pulling, got %v", h.c.Mode())
	}
	h.surface.Reset()
	h.c.PointerMove(PointerEvent{X: 250, Y: 200, Mods: ModShift})
	rubber := false
	for _, op := range h.surface.Filter(testharness.OpLine) {
		if op.A == pt(100, 100) && op.B == pt(250, 200) {
			rubber = true
		}
	}
	if !rubber {
		t.Error("Expected rubber band line from origin to pointer")
	}
	if p := h.c.Store().Topic(1).Position(); p != pt(100, 100) {
		t.Errorf("Expected pulling not to move the topic, got %v", p)
	}

	h.c.PointerUp(PointerEvent{X: 300, Y: 300})
	if len(created) != 1 || created[0].Role1 != 1 || created[0].Role2 != 3 {
		t.Fatalf("Expected association 1-3 created, got %+v", created)
	}
	if a := h.c.Store().Association(created[0].ID); a == nil {
		t.Error("Expected created association displayed under its server id")
	}
	if h.c.Store().AssociationCount() != 2 {
		t.Errorf("Expected 2 associations, got %d", h.c.Store().AssociationCount())
	}
}

func TestAssociationPullCancel(t *testing.T) {
	tests := []struct {
		name      string
		allowSelf bool
		release   topicmap.Point
		created   bool
	}{
		{"empty canvas", false, pt(600, 500), false},
		{"origin topic", false, pt(100, 100), false},
		{"origin topic with self loops", true, pt(100, 100), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{AllowSelfLoops: tt.allowSelf}, Collaborators{})
			h.c.PointerDown(PointerEvent{X: 100, Y: 100, Mods: ModShift})
			h.c.PointerMove(PointerEvent{X: tt.release.X + 10, Y: tt.release.Y})
			h.c.PointerUp(PointerEvent{X: tt.release.X, Y: tt.release.Y})

			got := len(h.persist.CallsTo("CreateAssociation")) == 1
			if got != tt.created {
				t.Errorf("Expected created=%v, got %v", tt.created, got)
			}
			if h.c.Mode() != ModeIdle {
				t.Errorf("Expected idle, got %v", h.c.Mode())
			}
		})
	}
}

func TestBeginAssociationFromCommand(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	if err := h.c.BeginAssociation(99); !errors.Is(err, ErrNoTopic) {
		t.Errorf("Expected ErrNoTopic, got %v", err)
	}
	if err := h.c.BeginAssociation(2); err != nil {
		t.Fatal(err)
	}

	h.c.PointerMove(PointerEvent{X: 200, Y: 250})
	h.c.PointerDown(PointerEvent{X: 500, Y: 500})
	if h.c.Mode() != ModeAssociationPulling {
		t.Errorf("Expected pull to suppress panning, got %v", h.c.Mode())
	}
	if h.c.Translation() != pt(0, 0) {
		t.Errorf("Expected no pan, got %v", h.c.Translation())
	}

	h.c.PointerUp(PointerEvent{X: 300, Y: 300})
	calls := h.persist.CallsTo("CreateAssociation")
	if len(calls) != 1 || calls[0].ID != 2 {
		t.Errorf("Expected association from topic 2, got %+v", calls)
	}
}

func TestContextMenuCancelsPull(t *testing.T) {
	commands := CommandsFunc(func(Target, string) []Command {
		return []Command{{Label: "Hide"}}
	})
	h := newHarness(t, Options{}, Collaborators{Commands: commands})
	if err := h.c.BeginAssociation(1); err != nil {
		t.Fatal(err)
	}
	h.c.PointerMove(PointerEvent{X: 300, Y: 300})

	m := h.c.ContextMenu(PointerEvent{X: 300, Y: 300, Button: ButtonSecondary})
	if m == nil || m.Target.ID != 3 {
		t.Fatalf("Expected menu for topic 3, got %+v", m)
	}
	if h.c.Mode() != ModeIdle {
		t.Errorf("Expected pull cancelled, got %v", h.c.Mode())
	}
	if n := len(h.persist.CallsTo("CreateAssociation")); n != 0 {
		t.Errorf("Expected no association created, got %d", n)
	}
	if h.c.Store().AssociationCount() != 1 {
		t.Errorf("Expected 1 association, got %d", h.c.Store().AssociationCount())
	}
}

func TestContextMenuCancelsDrag(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.PointerDown(PointerEvent{X: 100, Y: 100})
	h.c.PointerMove(PointerEvent{X: 150, Y: 150})
	h.c.ContextMenu(PointerEvent{X: 150, Y: 150, Button: ButtonSecondary})

	if p := h.c.Store().Topic(1).Position(); p != pt(100, 100) {
		t.Errorf("Expected topic back at (100,100), got %v", p)
	}
	if n := len(h.persist.CallsTo("MoveTopic")); n != 0 {
		t.Errorf("Expected no move committed, got %d", n)
	}
}

func TestClusterMove(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.drag(pt(200, 100), pt(250, 150), 0)

	want := map[topicmap.ID]topicmap.Point{1: pt(150, 150), 2: pt(350, 150), 3: pt(300, 300)}
	for id, p := range want {
		if got := h.c.Store().Topic(id).Position(); got != p {
			t.Errorf("Topic %d: expected %v, got %v", id, p, got)
		}
	}
	calls := h.persist.CallsTo("MoveTopic")
	if len(calls) != 2 || calls[0].ID != 1 || calls[1].ID != 2 {
		t.Errorf("Expected MoveTopic for 1 and 2, got %+v", calls)
	}
	if h.c.Translation() != pt(0, 0) {
		t.Errorf("Expected cluster move not to pan, got %v", h.c.Translation())
	}
}

func TestClusterMoveFollowsChains(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.ShowAssociation(topicmap.Association{ID: 11, Role1: 2, Role2: 3}, false)

	h.drag(pt(200, 100), pt(200, 140), 0)
	if n := len(h.persist.CallsTo("MoveTopic")); n != 3 {
		t.Errorf("Expected 3 moves, got %d", n)
	}
	want := map[topicmap.ID]topicmap.Point{1: pt(100, 140), 2: pt(300, 140), 3: pt(300, 340)}
	for id, p := range want {
		if got := h.c.Store().Topic(id).Position(); got != p {
			t.Errorf("Topic %d: expected %v, got %v", id, p, got)
		}
	}
}

func TestDoubleClickRequestsReveal(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	var got []topicmap.ID
	h.c.Hooks.TopicRevealRequested.On(func(id topicmap.ID) { got = append(got, id) })

	h.c.DoubleClick(PointerEvent{X: 300, Y: 100})
	h.c.DoubleClick(PointerEvent{X: 600, Y: 500})
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("Expected reveal of topic 2 only, got %v", got)
	}
	if h.c.Store().TopicCount() != 3 {
		t.Error("Expected double click not to change the view")
	}
}

func TestContextMenu(t *testing.T) {
	var invoked []Target
	commands := CommandsFunc(func(target Target, where string) []Command {
		if where != MenuContext {
			t.Errorf("Expected %q, got %q", MenuContext, where)
		}
		switch target.Kind {
		case TargetTopic:
			return []Command{
				{Label: "Hide", Handler: func(t Target) { invoked = append(invoked, t) }},
				{Separator: true},
				{Label: "Delete", Handler: func(t Target) { invoked = append(invoked, t) }},
			}
		case TargetCanvas:
			return []Command{{Label: "Create", Handler: func(t Target) { invoked = append(invoked, t) }}}
		}
		return nil
	})
	h := newHarness(t, Options{}, Collaborators{Commands: commands})

	m := h.c.ContextMenu(PointerEvent{X: 100, Y: 100, Button: ButtonSecondary})
	if m == nil || m.Target.Kind != TargetTopic || m.Target.ID != 1 {
		t.Fatalf("Expected topic menu, got %+v", m)
	}
	if sel, _ := h.c.Selected(); sel.ID != 1 {
		t.Errorf("Expected context click to select topic 1, got %+v", sel)
	}
	if err := h.c.InvokeMenu(1); err == nil {
		t.Error("Expected error invoking a separator")
	}
	if err := h.c.InvokeMenu(2); err != nil {
		t.Fatal(err)
	}
	if h.c.Menu() != nil {
		t.Error("Expected menu closed after invocation")
	}
	if len(invoked) != 1 || invoked[0].ID != 1 {
		t.Errorf("Expected Delete invoked on topic 1, got %+v", invoked)
	}

	if m := h.c.ContextMenu(PointerEvent{X: 200, Y: 101}); m != nil {
		t.Errorf("Expected no menu without association commands, got %+v", m)
	}

	h.c.Pan(pt(10, 10))
	m = h.c.ContextMenu(PointerEvent{X: 610, Y: 510})
	if m == nil || m.Target.Kind != TargetCanvas || m.Target.Point != pt(600, 500) {
		t.Fatalf("Expected canvas menu at canvas (600,500), got %+v", m)
	}
	h.c.PointerDown(PointerEvent{X: 20, Y: 20})
	if h.c.Menu() != nil {
		t.Error("Expected outside press to dismiss the menu")
	}
	if h.c.Mode() != ModeIdle {
		t.Errorf("Expected dismissing press to be consumed, got %v", h.c.Mode())
	}
	if err := h.c.InvokeMenu(0); err == nil {
		t.Error("Expected error invoking without a menu")
	}
}

func TestApplyDirectivesReplay(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.SelectTopic(1)

	err := h.c.ApplyDirectives([]topicmap.Directive{
		topicmap.MustDirective(topicmap.UpdateTopic, topicmap.Topic{ID: 1, Label: "B"}),
		topicmap.MustDirective(topicmap.UpdateTopic, topicmap.Topic{ID: 77, Label: "absent"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	topic := h.c.Store().Topic(1)
	if topic.Label != "B" || topic.Position() != pt(100, 100) {
		t.Errorf("Expected label B at (100,100), got %q at %v", topic.Label, topic.Position())
	}

	typeOnly := topicmap.Directive{Type: topicmap.UpdateTopic, Arg: []byte(`{"id": 2, "type_uri": "u"}`)}
	if err := h.c.ApplyDirectives([]topicmap.Directive{typeOnly}); err != nil {
		t.Fatal(err)
	}
	if b := h.c.Store().Topic(2); b.Label != "B" || b.TypeURI != "u" {
		t.Errorf("Expected label B kept with type u, got %q %q", b.Label, b.TypeURI)
	}

	dirs := []topicmap.Directive{
		topicmap.MustDirective(topicmap.DeleteAssociation, topicmap.Association{ID: 10}),
		topicmap.MustDirective(topicmap.DeleteTopic, topicmap.Topic{ID: 1}),
	}
	for i := 0; i < 2; i++ {
		if err := h.c.ApplyDirectives(dirs); err != nil {
			t.Fatalf("Replay %d: %v", i, err)
		}
	}
	if h.c.Store().Topic(1) != nil || h.c.Store().Association(10) != nil {
		t.Error("Expected topic 1 and association 10 removed")
	}
	if hl := h.c.Store().Highlight(); hl.Kind != viewmodel.HighlightNone {
		t.Errorf("Expected highlight cleared, got %+v", hl)
	}
	if _, ok := h.c.Selected(); ok {
		t.Error("Expected selection reset after the selected topic was deleted")
	}
}

func TestApplyDirectivesStopsAtUnknown(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	err := h.c.ApplyDirectives([]topicmap.Directive{
		topicmap.MustDirective(topicmap.UpdateTopic, topicmap.Topic{ID: 1, Label: "first"}),
		{Type: "REFRESH_EVERYTHING"},
		topicmap.MustDirective(topicmap.UpdateTopic, topicmap.Topic{ID: 2, Label: "never"}),
	})
	if !errors.Is(err, topicmap.ErrUnknownDirective) {
		t.Fatalf("Expected ErrUnknownDirective, got %v", err)
	}
	if h.c.Store().Topic(1).Label != "first" {
		t.Error("Expected directive before the unknown one applied")
	}
	if h.c.Store().Topic(2).Label != "B" {
		t.Error("Expected directive after the unknown one skipped")
	}

	err = h.c.ApplyDirectives([]topicmap.Directive{{Type: topicmap.UpdateTopic, Arg: []byte(`{"id":`)}})
	if err == nil {
		t.Error("Expected error for undecodable argument")
	}
}

func TestTopicTypeDirectiveRestyles(t *testing.T) {
	styles := style.NewTable()
	h := newHarness(t, Options{}, Collaborators{Styles: styles})
	styles.SetIcon("t", &style.Icon{Source: "t.png", Width: 40, Height: 30})

	err := h.c.ApplyDirectives([]topicmap.Directive{
		topicmap.MustDirective(topicmap.UpdateTopicType, topicmap.TopicType{URI: "t"}),
	})
	if err != nil {
		t.Fatal(err)
	}
	if topic := h.c.Store().Topic(1); topic.Width != 40 || topic.Height != 30 {
		t.Errorf("Expected 40x30 icon, got %dx%d", topic.Width, topic.Height)
	}
}

func TestDanglingAssociationNotDrawn(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.Load(&topicmap.Topicmap{
		ID:           100,
		Topics:       []topicmap.PlacedTopic{{Topic: topicmap.Topic{ID: 1}, X: 10, Y: 10, Visible: true}},
		Associations: []topicmap.Association{{ID: 10, Role1: 1, Role2: 2}},
	})
	h.surface.Reset()
	h.c.Draw()
	if n := h.surface.Count(testharness.OpLine); n != 0 {
		t.Errorf("Expected no line for association 10, got %d", n)
	}
	if h.c.FindAssociationAt(pt(10, 10)) != nil {
		t.Error("Expected dangling association not to be hit")
	}
}

func TestHideTopicClearsHighlight(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.SelectTopic(1)
	if !h.c.HideTopic(1) {
		t.Fatal("Expected topic 1 hidden")
	}
	if h.c.HideTopic(1) {
		t.Error("Expected second hide to report absent")
	}
	if h.c.Store().Association(10) != nil {
		t.Error("Expected attached association hidden")
	}
	if hl := h.c.Store().Highlight(); hl.Kind != viewmodel.HighlightNone {
		t.Errorf("Expected no highlight, got %+v", hl)
	}
	h.surface.Reset()
	h.c.Draw()
	if n := h.surface.Count(testharness.OpFill); n != 0 {
		t.Errorf("Expected no glow, got %d", n)
	}
	if n := len(h.persist.CallsTo("DeleteTopic")); n != 0 {
		t.Errorf("Expected hide to stay local, got %d deletes", n)
	}
}

func TestOptimisticCreateTopic(t *testing.T) {
	exec := &testharness.ManualExecutor{}
	h := newHarness(t, Options{Executor: exec}, Collaborators{})
	var created []topicmap.Topic
	h.c.Hooks.TopicCreated.On(func(tp topicmap.Topic) { created = append(created, tp) })

	pos := pt(500, 400)
	topic, err := h.c.CreateTopic("t", "New", &pos)
	if err != nil {
		t.Fatal(err)
	}
	if !topic.ID.Temporary() {
		t.Errorf("Expected temporary id, got %d", topic.ID)
	}
	if h.c.Store().Topic(topic.ID) == nil {
		t.Error("Expected topic displayed before the server answered")
	}
	if err := h.c.UpdateTopic(topicmap.Topic{ID: topic.ID, Label: "x"}); !errors.Is(err, ErrPending) {
		t.Errorf("Expected ErrPending updating a pending topic, got %v", err)
	}

	exec.Flush()
	if topic.ID.Temporary() {
		t.Fatalf("Expected server id after flush, got %d", topic.ID)
	}
	if h.c.Store().Topic(topic.ID) != topic || topic.Position() != pos {
		t.Errorf("Expected same topic at %v, got %v", pos, topic.Position())
	}
	if sel, _ := h.c.Selected(); sel.ID != topic.ID {
		t.Errorf("Expected selection to follow the new id, got %d", sel.ID)
	}
	if !h.c.Store().Highlight().Is(viewmodel.HighlightTopic, topic.ID) {
		t.Error("Expected highlight to follow the new id")
	}
	if len(created) != 1 || created[0].ID != topic.ID {
		t.Errorf("Expected TopicCreated for %d, got %+v", topic.ID, created)
	}
	if p, ok := h.persist.Position(100, topic.ID); !ok || p != pos {
		t.Errorf("Expected position persisted, got %v %v", p, ok)
	}
}

func TestDragSurvivesCreateAnswer(t *testing.T) {
	exec := &testharness.ManualExecutor{}
	h := newHarness(t, Options{Executor: exec}, Collaborators{})
	pos := pt(500, 400)
	topic, err := h.c.CreateTopic("t", "New", &pos)
	if err != nil {
		t.Fatal(err)
	}

	h.c.PointerDown(PointerEvent{X: 500, Y: 400})
	h.c.PointerMove(PointerEvent{X: 520, Y: 400})
	exec.Flush()
	if topic.ID.Temporary() {
		t.Fatalf("Expected server id after flush, got %d", topic.ID)
	}
	h.c.PointerMove(PointerEvent{X: 600, Y: 450})
	h.c.PointerUp(PointerEvent{X: 600, Y: 450})
	exec.Flush()

	if p := topic.Position(); p != pt(600, 450) {
		t.Errorf("Expected topic at (600,450), got %v", p)
	}
	if p, ok := h.persist.Position(100, topic.ID); !ok || p != pt(600, 450) {
		t.Errorf("Expected (600,450) persisted for %d, got %v %v", topic.ID, p, ok)
	}
}

func TestAssociationClickSurvivesCreateAnswer(t *testing.T) {
	exec := &testharness.ManualExecutor{}
	h := newHarness(t, Options{Executor: exec}, Collaborators{})
	h.c.PointerDown(PointerEvent{X: 100, Y: 100, Mods: ModShift})
	h.c.PointerUp(PointerEvent{X: 300, Y: 300})
	a := h.c.Store().Associations()[1]
	if !a.ID.Temporary() {
		t.Fatalf("Expected pending association, got %d", a.ID)
	}
	h.click(600, 500)

	h.c.PointerDown(PointerEvent{X: 200, Y: 200})
	exec.Flush()
	h.c.PointerUp(PointerEvent{X: 200, Y: 200})

	if a.ID.Temporary() {
		t.Fatalf("Expected server id, got %d", a.ID)
	}
	if sel, ok := h.c.Selected(); !ok || sel.Kind != TargetAssociation || sel.ID != a.ID {
		t.Errorf("Expected association %d selected, got %+v", a.ID, sel)
	}
}

func TestCreateTopicFailureRollsBack(t *testing.T) {
	boom := errors.New("boom")
	h := newHarness(t, Options{}, Collaborators{})
	h.persist.FailNext("CreateTopic", boom)

	before := h.c.Store().TopicCount()
	if _, err := h.c.CreateTopic("t", "New", nil); err != nil {
		t.Fatal(err)
	}
	if h.c.Store().TopicCount() != before {
		t.Errorf("Expected rollback to %d topics, got %d", before, h.c.Store().TopicCount())
	}
	if len(h.errs) != 1 || !errors.Is(h.errs[0], boom) || h.errs[0].Op != "create topic" {
		t.Errorf("Expected create topic error, got %+v", h.errs)
	}
	if _, ok := h.c.Selected(); ok {
		t.Error("Expected selection of the rolled back topic reset")
	}
}

func TestCreateAssociationValidation(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	if _, err := h.c.CreateAssociation("r", 1, 99); !errors.Is(err, ErrNoTopic) {
		t.Errorf("Expected ErrNoTopic, got %v", err)
	}
	var oe *OpError
	_, err := h.c.CreateAssociation("r", 99, 1)
	if !errors.As(err, &oe) || oe.ID != 99 {
		t.Errorf("Expected OpError for 99, got %v", err)
	}

	a, err := h.c.CreateAssociation("r", 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID.Temporary() || h.c.Store().Association(a.ID) != a {
		t.Errorf("Expected association adopted under server id, got %d", a.ID)
	}
}

func TestNoPersistence(t *testing.T) {
	c := New(testharness.NewSurface(100, 100), Collaborators{}, Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if _, err := c.CreateTopic("t", "x", nil); !errors.Is(err, ErrNoPersistence) {
		t.Errorf("Expected ErrNoPersistence, got %v", err)
	}
	c.ShowTopic(topicmap.Topic{ID: 1}, &topicmap.Point{X: 50, Y: 50}, false)
	if err := c.MoveTopic(1, pt(60, 60)); err != nil {
		t.Errorf("Expected local move without persistence, got %v", err)
	}
}

func TestDeleteTopicReplaysServerDirectives(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	if err := h.c.DeleteTopic(1); err != nil {
		t.Fatal(err)
	}
	if h.c.Store().Topic(1) != nil || h.c.Store().Association(10) != nil {
		t.Error("Expected topic 1 and association 10 gone")
	}
	if _, err := h.persist.FetchTopic(context.Background(), 1); err == nil {
		t.Error("Expected topic deleted on the server")
	}

	if err := h.c.DeleteTopic(1); err != nil {
		t.Fatal(err)
	}
	if len(h.errs) != 1 || h.errs[0].Op != "delete topic" {
		t.Errorf("Expected server error reported, got %+v", h.errs)
	}
}

func TestUpdateTopicAndAssociation(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	if err := h.c.UpdateTopic(topicmap.Topic{ID: 2, Label: "Bee"}); err != nil {
		t.Fatal(err)
	}
	if got, _ := h.persist.FetchTopic(context.Background(), 2); got.Label != "Bee" {
		t.Errorf("Expected server label Bee, got %q", got.Label)
	}
	if h.c.Store().Topic(2).Label != "Bee" {
		t.Error("Expected view label Bee")
	}
	if err := h.c.UpdateTopic(topicmap.Topic{ID: 99}); !errors.Is(err, ErrNoTopic) {
		t.Errorf("Expected ErrNoTopic, got %v", err)
	}

	if err := h.c.UpdateAssociation(topicmap.Association{ID: 10, TypeURI: "r2"}); err != nil {
		t.Fatal(err)
	}
	if a := h.c.Store().Association(10); a.TypeURI != "r2" || a.Role1 != 1 {
		t.Errorf("Expected type r2 with roles kept, got %+v", a)
	}
	if err := h.c.DeleteAssociation(10); err != nil {
		t.Fatal(err)
	}
	if h.c.Store().Association(10) != nil {
		t.Error("Expected association deleted")
	}
}

func TestRevealTopicAndAssociation(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	if err := h.c.RevealTopic(4, true); err != nil {
		t.Fatal(err)
	}
	topic := h.c.Store().Topic(4)
	if topic == nil {
		t.Fatal("Expected topic 4 revealed")
	}
	if sel, _ := h.c.Selected(); sel.ID != 4 {
		t.Errorf("Expected topic 4 selected, got %+v", sel)
	}
	if calls := h.persist.CallsTo("MoveTopic"); len(calls) != 1 || calls[0].Point != topic.Position() {
		t.Errorf("Expected placement persisted, got %+v", calls)
	}

	h.c.HideTopic(2)
	if err := h.c.RevealAssociation(10, false); err != nil {
		t.Fatal(err)
	}
	if h.c.Store().Association(10) == nil || h.c.Store().Topic(2) == nil {
		t.Error("Expected association 10 revealed together with topic 2")
	}

	if err := h.c.RevealTopic(404, false); err != nil {
		t.Fatal(err)
	}
	if len(h.errs) != 1 {
		t.Errorf("Expected fetch failure reported, got %+v", h.errs)
	}
}

func TestFreePlacementNearSelection(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.SelectTopic(3)
	topic := h.c.ShowTopic(topicmap.Topic{ID: 50}, nil, false)
	d := topic.Position().Sub(pt(300, 300))
	if d.X*d.X+d.Y*d.Y > 1500*1500 {
		t.Errorf("Expected placement near the selection, got %v", topic.Position())
	}
	if topic.Bounds().Overlaps(h.c.Store().Topic(3).Bounds()) {
		t.Error("Expected no overlap with the selected topic")
	}
}

func TestGridPlacementScrollsToFirst(t *testing.T) {
	h := newHarness(t, Options{}, Collaborators{})
	h.c.Load(&topicmap.Topicmap{ID: 100})
	h.c.BeginGrid()

	seen := map[topicmap.Point]bool{}
	var first topicmap.Point
	for i := 1; i <= 3; i++ {
		topic := h.c.ShowTopic(topicmap.Topic{ID: topicmap.ID(i)}, nil, false)
		if seen[topic.Position()] {
			t.Errorf("Expected distinct grid positions, got %v twice", topic.Position())
		}
		seen[topic.Position()] = true
		if i == 1 {
			first = topic.Position()
		}
	}
	h.c.EndGrid()

	if first != pt(50, 50) {
		t.Errorf("Expected first grid position (50,50), got %v", first)
	}
	if want := pt(400-50, 300-50); h.c.Translation() != want {
		t.Errorf("Expected first position centered with translation %v, got %v", want, h.c.Translation())
	}
	if n := len(h.persist.CallsTo("SetTranslation")); n != 1 {
		t.Errorf("Expected the scroll committed once, got %d", n)
	}
	if h.c.Store().GridActive() {
		t.Error("Expected grid inactive after EndGrid")
	}
}

func TestScrollCancelledByPress(t *testing.T) {
	var pending *animate.Sequence
	h := newHarness(t, Options{Animate: func(s *animate.Sequence) { pending = s }}, Collaborators{})

	seq := h.c.ScrollToCenter(pt(100, 100))
	if seq == nil || seq != pending || !h.c.Scrolling() {
		t.Fatal("Expected a pending scroll")
	}
	seq.Advance()
	mid := h.c.Translation()
	if mid == pt(0, 0) {
		t.Error("Expected the first step to move the canvas")
	}

	h.c.PointerDown(PointerEvent{X: 600, Y: 500})
	if !seq.Cancelled() || h.c.Scrolling() {
		t.Error("Expected press to cancel the scroll")
	}
	if seq.Advance() {
		t.Error("Expected cancelled sequence not to advance")
	}
	if h.c.Translation() != mid {
		t.Errorf("Expected translation to stay at %v, got %v", mid, h.c.Translation())
	}
	calls := h.persist.CallsTo("SetTranslation")
	if len(calls) != 1 || calls[0].Point != mid {
		t.Errorf("Expected reached translation %v committed once, got %+v", mid, calls)
	}
	if got := h.persist.Translation(100); got != mid {
		t.Errorf("Expected stored translation %v, got %v", mid, got)
	}

	h.c.PointerUp(PointerEvent{X: 600, Y: 500})
	if n := len(h.persist.CallsTo("SetTranslation")); n != 1 {
		t.Errorf("Expected click after cancel not to commit again, got %d", n)
	}
}

func TestScrollReplacedBeforeFirstStep(t *testing.T) {
	var pending *animate.Sequence
	h := newHarness(t, Options{Animate: func(s *animate.Sequence) { pending = s }}, Collaborators{})

	first := h.c.ScrollToCenter(pt(100, 100))
	first.Advance()
	mid := h.c.Translation()
	second := h.c.PanTo(pt(0, 0))
	if second == nil || pending != second || !first.Cancelled() {
		t.Fatal("Expected the second scroll to replace the first")
	}
	h.c.PointerDown(PointerEvent{X: 600, Y: 500})

	calls := h.persist.CallsTo("SetTranslation")
	if len(calls) != 1 || calls[0].Point != mid {
		t.Errorf("Expected %v committed once, got %+v", mid, calls)
	}
}

func TestSnapshotSkipsPending(t *testing.T) {
	exec := &testharness.ManualExecutor{}
	h := newHarness(t, Options{Executor: exec}, Collaborators{})
	h.c.CreateTopic("t", "pending", nil)

	tm := h.c.Snapshot()
	if len(tm.Topics) != 3 || len(tm.Associations) != 1 {
		t.Errorf("Expected 3 topics and 1 association, got %d and %d", len(tm.Topics), len(tm.Associations))
	}
	if tm.ID != 100 || tm.Name != "fixture" {
		t.Errorf("Expected topicmap identity kept, got %d %q", tm.ID, tm.Name)
	}
}

func TestEventOnOff(t *testing.T) {
	var e Event[int]
	var got []int
	off1 := e.On(func(v int) { got = append(got, v) })
	e.On(func(v int) { got = append(got, v*10) })
	e.Emit(1)
	off1()
	off1()
	e.Emit(2)
	want := []int{1, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected %v, got %v", want, got)
			break
		}
	}
	if e.Len() != 1 {
		t.Errorf("Expected 1 listener, got %d", e.Len())
	}
}

func TestQueueExecutor(t *testing.T) {
	q := NewQueueExecutor(4)
	ran := 0
	for i := 0; i < 3; i++ {
		q.Go(func() func() { return func() { ran++ } })
	}
	q.Go(func() func() { return nil })
	q.Wait()
	if n := q.Drain(); n != 3 || ran != 3 {
		t.Errorf("Expected 3 continuations, got %d (ran %d)", n, ran)
	}
}

func TestOpErrorFormat(t *testing.T) {
	err := &OpError{Op: "move topic", ID: 7, Err: ErrNoTopic}
	if err.Error() != "canvas: move topic 7: topic not displayed" {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrNoTopic) {
		t.Error("Expected OpError to unwrap")
	}
}

func TestCancelGesture(t *testing.T) {
	tests := []struct {
		name  string
		press PointerEvent
		check func(t *testing.T, h *harness)
	}{
		{"drag", PointerEvent{X: 100, Y: 100}, func(t *testing.T, h *harness) {
			if p := h.c.Store().Topic(1).Position(); p != pt(100, 100) {
				t.Errorf("Expected topic back at (100,100), got %v", p)
			}
		}},
		{"pan", PointerEvent{X: 600, Y: 500}, func(t *testing.T, h *harness) {
			if h.c.Translation() != pt(0, 0) {
				t.Errorf("Expected translation restored, got %v", h.c.Translation())
			}
		}},
		{"cluster", PointerEvent{X: 200, Y: 100}, func(t *testing.T, h *harness) {
			if p := h.c.Store().Topic(2).Position(); p != pt(300, 100) {
				t.Errorf("Expected topic 2 back at (300,100), got %v", p)
			}
		}},
		{"pull", PointerEvent{X: 100, Y: 100, Mods: ModShift}, func(t *testing.T, h *harness) {
			if h.c.Store().AssociationCount() != 1 {
				t.Errorf("Expected no association created, got %d", h.c.Store().AssociationCount())
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, Options{}, Collaborators{})
			h.c.PointerDown(tt.press)
			h.c.PointerMove(PointerEvent{X: tt.press.X + 40, Y: tt.press.Y + 200, Mods: tt.press.Mods})
			h.c.CancelGesture()

			if h.c.Mode() != ModeIdle {
				t.Errorf("Expected idle, got %v", h.c.Mode())
			}
			tt.check(t, h)
			if n := len(h.persist.Calls()); n != 0 {
				t.Errorf("Expected nothing persisted, got %+v", h.persist.Calls())
			}
			h.c.PointerUp(PointerEvent{X: 300, Y: 300})
			if n := len(h.persist.Calls()); n != 0 {
				t.Errorf("Expected release after cancel to do nothing, got %+v", h.persist.Calls())
			}
		})
	}
}
