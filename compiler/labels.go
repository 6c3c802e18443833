package compiler

import (
	"errors"
	"fmt"
)

// ErrLoopControl is returned for break or continue outside a loop.
var ErrLoopControl = errors.New("break or continue outside a loop")

// Labels hands out label suffixes from a single program-wide sequence.
type Labels struct {
	next int
}

// New returns the next suffix.
func (l *Labels) New() int {
	n := l.next
	l.next++
	return n
}

// Count returns how many suffixes have been handed out.
func (l *Labels) Count() int {
	return l.next
}

// Label formats a label name from a construct prefix and a suffix.
func Label(prefix string, n int) string {
	return fmt.Sprintf("%s_%d", prefix, n)
}

// loopLabels holds the jump targets of the enclosing loops. break and
// continue read the top; the owning loop pops on exit.
type loopLabels struct {
	breaks    []string
	continues []string
}

func (l *loopLabels) push(brk, cont string) {
	l.breaks = append(l.breaks, brk)
	l.continues = append(l.continues, cont)
}

func (l *loopLabels) pop() {
	l.breaks = l.breaks[:len(l.breaks)-1]
	l.continues = l.continues[:len(l.continues)-1]
}

func (l *loopLabels) breakTarget() (string, error) {
	if len(l.breaks) == 0 {
		return "", fmt.Errorf("%w: break", ErrLoopControl)
	}
	return l.breaks[len(l.breaks)-1], nil
}

func (l *loopLabels) continueTarget() (string, error) {
	if len(l.continues) == 0 {
		return "", fmt.Errorf("%w: continue", ErrLoopControl)
	}
	return l.continues[len(l.continues)-1], nil
}
