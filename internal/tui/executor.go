package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/tmcanvas/pkg/animate"
)

// continueMsg carries the on-loop half of a collaborator call.
type continueMsg struct {
	fn func()
}

// stepMsg advances an animation by one step.
type stepMsg struct {
	seq *animate.Sequence
}

// cmdQueue turns collaborator calls and animations into bubbletea
// commands. It implements canvas.Executor; the model drains it after
// every update so the commands reach the program.
type cmdQueue struct {
	cmds []tea.Cmd
}

// Go implements canvas.Executor.
func (q *cmdQueue) Go(task func() func()) {
	q.cmds = append(q.cmds, func() tea.Msg {
		if cont := task(); cont != nil {
			return continueMsg{fn: cont}
		}
		return nil
	})
}

// Animate schedules the first step of seq after its delay.
func (q *cmdQueue) Animate(seq *animate.Sequence) {
	q.cmds = append(q.cmds, stepAfter(seq))
}

func stepAfter(seq *animate.Sequence) tea.Cmd {
	return tea.Tick(seq.Delay(), func(time.Time) tea.Msg {
		return stepMsg{seq: seq}
	})
}

// drain returns the queued commands as one and empties the queue.
func (q *cmdQueue) drain() tea.Cmd {
	if len(q.cmds) == 0 {
		return nil
	}
	cmds := q.cmds
	q.cmds = nil
	return tea.Batch(cmds...)
}
