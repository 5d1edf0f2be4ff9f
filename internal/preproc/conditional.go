package preproc

// CondState is the tri-state a conditional-inclusion stack entry can hold,
// grounded on directives.c's int cond_stack[] using 1/0/-1 for the same
// three states.
type CondState int8

const (
	// Active means tokens under this level are emitted and nested
	// directives are processed normally.
	Active CondState = 1
	// Inactive means this branch's condition was false, but an enclosing
	// #elif/#else in the same group could still become Active.
	Inactive CondState = 0
	// Skip means either an enclosing level is not Active, or a sibling
	// branch in this #if/#elif/#else group has already been taken:
	// tokens are discarded and only conditional-nesting directives are
	// recognized.
	Skip CondState = -1
)

// CondStack tracks nested #if/#ifdef/#ifndef ... #elif ... #else ...
// #endif groups. Grounded directly on directiver_next's handling of
// cond_stack: entering if/ifdef/ifndef pushes Active, Inactive or Skip depending on
// the parent's state and the condition's value; elif/else replace the top
// entry; endif pops.
type CondStack struct {
	stack []CondState
	// taken marks, per nesting level, whether some branch in the current
	// group has already evaluated true, so a later #elif/#else in the
	// same group is forced to Skip rather than re-evaluating.
	taken []bool
}

// NewCondStack returns an empty stack (conceptually: the top-level
// translation unit, which is always Active).
func NewCondStack() *CondStack {
	return &CondStack{}
}

// Active reports whether tokens at the current nesting level should be
// emitted: true exactly when the stack is empty (top level) or its top
// entry is Active.
func (c *CondStack) Active() bool {
	return c.top() == Active
}

func (c *CondStack) top() CondState {
	if len(c.stack) == 0 {
		return Active
	}
	return c.stack[len(c.stack)-1]
}

// parentActive reports whether the current top level (the enclosing level
// of a group about to be pushed) permits a new level to become Active.
func (c *CondStack) parentActive() bool {
	if len(c.stack) == 0 {
		return true
	}
	return c.stack[len(c.stack)-1] == Active
}

// PushIf enters a new #if/#ifdef/#ifndef group; cond is the directive's own
// evaluated truth value. If the enclosing level is not itself Active, the
// new level is forced to Skip regardless of cond (a false outer branch
// must not let an inner #if ever become Active).
func (c *CondStack) PushIf(cond bool) {
	active := c.parentActive()
	var s CondState
	switch {
	case !active:
		s = Skip
	case cond:
		s = Active
	default:
		s = Inactive
	}
	c.stack = append(c.stack, s)
	c.taken = append(c.taken, s == Active)
}

// Elif transitions the current group on an #elif: if the group already had
// a taken branch, or the enclosing level is not Active, this branch is
// forced Skip; otherwise cond decides Active vs Inactive, same as PushIf.
func (c *CondStack) Elif(cond bool) error {
	if len(c.stack) == 0 {
		return errNoMatchingIf("elif")
	}
	i := len(c.stack) - 1
	switch {
	case !c.parentActiveAt(i):
		c.stack[i] = Skip
	case c.taken[i]:
		c.stack[i] = Skip
	case cond:
		c.stack[i] = Active
		c.taken[i] = true
	default:
		c.stack[i] = Inactive
	}
	return nil
}

// Else transitions the current group on an #else: Active unless a prior
// branch in the group already fired, or the enclosing level is inactive.
func (c *CondStack) Else() error {
	if len(c.stack) == 0 {
		return errNoMatchingIf("else")
	}
	i := len(c.stack) - 1
	switch {
	case !c.parentActiveAt(i):
		c.stack[i] = Skip
	case c.taken[i]:
		c.stack[i] = Skip
	default:
		c.stack[i] = Active
		c.taken[i] = true
	}
	return nil
}

// Endif closes the innermost group.
func (c *CondStack) Endif() error {
	if len(c.stack) == 0 {
		return errNoMatchingIf("endif")
	}
	c.stack = c.stack[:len(c.stack)-1]
	c.taken = c.taken[:len(c.taken)-1]
	return nil
}

func (c *CondStack) parentActiveAt(i int) bool {
	if i == 0 {
		return true
	}
	return c.stack[i-1] == Active
}

// Depth reports current conditional nesting depth (0 at top level); used
// to detect unterminated #if groups at end of file.
func (c *CondStack) Depth() int {
	return len(c.stack)
}

type condError string

func errNoMatchingIf(directive string) error {
	return condError("#" + directive + " without matching #if")
}

func (e condError) Error() string { return string(e) }
