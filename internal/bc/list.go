package bc

import (
	"fmt"

	"fortio.org/safecast"
)

// Ref is a stable handle to an instruction in a List. A Ref stays valid across
// edits elsewhere in the list and becomes invalid once its instruction is removed.
type Ref struct {
	idx int32
	gen uint32
}

// NoRef is the invalid handle returned at the ends of the list.
var NoRef = Ref{idx: -1}

// IsNone reports whether r is NoRef.
func (r Ref) IsNone() bool { return r.idx < 0 }

type node struct {
	instr Instr
	prev  int32
	next  int32
	gen   uint32
	live  bool
}

// List is an ordered instruction sequence stored in a generational arena.
// Nodes are linked by index, freed slots are reused with a bumped generation.
type List struct {
	nodes     []node
	free      []int32
	head      int32
	tail      int32
	count     int
	nextLabel LabelID
}

// NewList returns an empty list.
func NewList() *List {
	return &List{head: -1, tail: -1}
}

// ListOf builds a list holding instrs in order.
func ListOf(instrs ...Instr) *List {
	l := NewList()
	for _, ins := range instrs {
		l.Append(ins)
	}
	return l
}

// Len returns the number of live instructions.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return l.count
}

// NewLabel allocates a label unique within l.
func (l *List) NewLabel() LabelID {
	l.nextLabel++
	return l.nextLabel
}

func (l *List) reserveLabel(id LabelID) {
	if id > l.nextLabel {
		l.nextLabel = id
	}
}

func (l *List) alloc(ins Instr) int32 {
	if ins.Op == OpLabel || ins.Op.IsJump() {
		l.reserveLabel(ins.Label)
	}
	if n := len(l.free); n > 0 {
		idx := l.free[n-1]
		l.free = l.free[:n-1]
		nd := &l.nodes[idx]
		nd.instr = ins
		nd.prev, nd.next = -1, -1
		nd.live = true
		return idx
	}
	idx, err := safecast.Conv[int32](len(l.nodes))
	if err != nil {
		panic(fmt.Errorf("bc: instruction arena overflow: %w", err))
	}
	l.nodes = append(l.nodes, node{instr: ins, prev: -1, next: -1, live: true})
	return idx
}

func (l *List) ref(idx int32) Ref {
	if idx < 0 {
		return NoRef
	}
	return Ref{idx: idx, gen: l.nodes[idx].gen}
}

// Valid reports whether r still designates a live instruction of l.
func (l *List) Valid(r Ref) bool {
	if l == nil || r.idx < 0 || int(r.idx) >= len(l.nodes) {
		return false
	}
	nd := &l.nodes[r.idx]
	return nd.live && nd.gen == r.gen
}

// At returns the instruction designated by r for in-place edits, or nil.
func (l *List) At(r Ref) *Instr {
	if !l.Valid(r) {
		return nil
	}
	return &l.nodes[r.idx].instr
}

// First returns the first instruction.
func (l *List) First() Ref {
	if l == nil {
		return NoRef
	}
	return l.ref(l.head)
}

// Last returns the last instruction.
func (l *List) Last() Ref {
	if l == nil {
		return NoRef
	}
	return l.ref(l.tail)
}

// Next returns the instruction following r.
func (l *List) Next(r Ref) Ref {
	if !l.Valid(r) {
		return NoRef
	}
	return l.ref(l.nodes[r.idx].next)
}

// Prev returns the instruction preceding r.
func (l *List) Prev(r Ref) Ref {
	if !l.Valid(r) {
		return NoRef
	}
	return l.ref(l.nodes[r.idx].prev)
}

// Append adds ins at the end.
func (l *List) Append(ins Instr) Ref {
	idx := l.alloc(ins)
	l.link(idx, l.tail)
	return l.ref(idx)
}

// InsertAfter inserts ins right after r. NoRef inserts at the front.
func (l *List) InsertAfter(r Ref, ins Instr) Ref {
	after := int32(-1)
	if !r.IsNone() {
		if !l.Valid(r) {
			return NoRef
		}
		after = r.idx
	}
	idx := l.alloc(ins)
	l.link(idx, after)
	return l.ref(idx)
}

// link places the allocated node idx after node after (-1 means at the front).
func (l *List) link(idx, after int32) {
	nd := &l.nodes[idx]
	if after < 0 {
		nd.prev = -1
		nd.next = l.head
		if l.head >= 0 {
			l.nodes[l.head].prev = idx
		}
		l.head = idx
	} else {
		nd.prev = after
		nd.next = l.nodes[after].next
		if nd.next >= 0 {
			l.nodes[nd.next].prev = idx
		}
		l.nodes[after].next = idx
	}
	if nd.next < 0 {
		l.tail = idx
	}
	l.count++
}

// Remove unlinks r. It reports whether r was live.
func (l *List) Remove(r Ref) bool {
	if !l.Valid(r) {
		return false
	}
	nd := &l.nodes[r.idx]
	if nd.prev >= 0 {
		l.nodes[nd.prev].next = nd.next
	} else {
		l.head = nd.next
	}
	if nd.next >= 0 {
		l.nodes[nd.next].prev = nd.prev
	} else {
		l.tail = nd.prev
	}
	nd.live = false
	nd.gen++
	nd.prev, nd.next = -1, -1
	nd.instr = Instr{}
	l.free = append(l.free, r.idx)
	l.count--
	return true
}

// Set replaces the instruction at r, keeping r valid.
func (l *List) Set(r Ref, ins Instr) bool {
	p := l.At(r)
	if p == nil {
		return false
	}
	*p = ins
	return true
}

// Splice moves every instruction of other right after r (NoRef: at the front)
// and leaves other empty. Labels of other are renumbered so they cannot clash
// with labels already used by l. It returns the last moved instruction, or r
// when other is empty.
func (l *List) Splice(r Ref, other *List) Ref {
	if other == nil || other.Len() == 0 {
		return r
	}
	if !r.IsNone() && !l.Valid(r) {
		return NoRef
	}
	relabel := make(map[LabelID]LabelID)
	mapLabel := func(id LabelID) LabelID {
		if id == NoLabel {
			return id
		}
		if nl, ok := relabel[id]; ok {
			return nl
		}
		nl := l.NewLabel()
		relabel[id] = nl
		return nl
	}
	at := r
	for _, ins := range other.Instrs() {
		if ins.Op == OpLabel || ins.Op.IsJump() {
			ins.Label = mapLabel(ins.Label)
		}
		at = l.InsertAfter(at, ins)
	}
	*other = *NewList()
	return at
}

// Refs snapshots the handles of all instructions in order.
func (l *List) Refs() []Ref {
	if l == nil {
		return nil
	}
	out := make([]Ref, 0, l.count)
	for i := l.head; i >= 0; i = l.nodes[i].next {
		out = append(out, l.ref(i))
	}
	return out
}

// Instrs copies all instructions in order.
func (l *List) Instrs() []Instr {
	if l == nil {
		return nil
	}
	out := make([]Instr, 0, l.count)
	for i := l.head; i >= 0; i = l.nodes[i].next {
		out = append(out, l.nodes[i].instr)
	}
	return out
}

// Clone returns a compacted copy of l. Refs of l are not valid in the copy.
func (l *List) Clone() *List {
	c := ListOf(l.Instrs()...)
	if l != nil && l.nextLabel > c.nextLabel {
		c.nextLabel = l.nextLabel
	}
	return c
}
