package parser

// block is one lexical level of local-variable declarations within the
// function currently being compiled: a name to stack-slot-index mapping.
// Declaring a name already present in the current block is an error;
// declaring a name already present in an outer block shadows it.
type block struct {
	vars map[string]int
}

func newBlock() *block {
	return &block{vars: make(map[string]int)}
}

// function tracks the block stack and slot allocation for one function (or
// the implicit top-level __ctor__) being compiled. Slots are allocated
// monotonically and never reused once a block closes: simpler than a
// register allocator, and the spec imposes no bound that would require
// slot reuse.
type function struct {
	blocks   []*block
	nextSlot int // 0 is reserved for the saved call state
	maxSlot  int
	params   int
}

func newFunction() *function {
	f := &function{nextSlot: 1}
	f.pushBlock()
	return f
}

func (f *function) pushBlock() { f.blocks = append(f.blocks, newBlock()) }
func (f *function) popBlock()  { f.blocks = f.blocks[:len(f.blocks)-1] }

func (f *function) current() *block { return f.blocks[len(f.blocks)-1] }

// declare assigns a new slot to name in the current block. It fails if name
// is already declared in that same block.
func (f *function) declare(name string) (int, error) {
	cur := f.current()
	if _, ok := cur.vars[name]; ok {
		return 0, &Error{Msg: "duplicate local name " + name}
	}
	slot := f.nextSlot
	f.nextSlot++
	if f.nextSlot-1 > f.maxSlot {
		f.maxSlot = f.nextSlot - 1
	}
	cur.vars[name] = slot
	return slot, nil
}

// resolve searches the block stack from innermost to outermost.
func (f *function) resolve(name string) (int, bool) {
	for i := len(f.blocks) - 1; i >= 0; i-- {
		if slot, ok := f.blocks[i].vars[name]; ok {
			return slot, true
		}
	}
	return 0, false
}

// extraLocals is the count of additional (non-parameter) local slots
// declared, i.e. the function-frame "reservation" the emitted prologue
// must patch in.
func (f *function) extraLocals() int {
	return f.maxSlot - f.params
}
