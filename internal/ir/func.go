package ir

import (
	"fmt"

	"fortio.org/safecast"
)

// Func is one function's instruction graph: an arena of instructions
// addressed by ValueID, basic blocks holding ordered instruction handles,
// and the entry block.
type Func struct {
	Name   string
	Params []ValueID
	Blocks []Block
	Entry  BlockID

	insts []Instr
}

// Block is an ordered run of instruction handles ending in a terminator.
type Block struct {
	ID     BlockID
	Instrs []ValueID
}

// Terminated reports whether the block ends in a terminator instruction.
func (b *Block) Terminated(f *Func) bool {
	if b == nil || len(b.Instrs) == 0 {
		return false
	}
	return f.Instr(b.Instrs[len(b.Instrs)-1]).Kind.IsTerminator()
}

// NewFunc creates an empty function with no blocks.
func NewFunc(name string) *Func {
	return &Func{Name: name, Entry: NoBlock}
}

// Instr returns the arena entry for v. The pointer stays valid until the
// next arena growth; do not hold it across emits.
func (f *Func) Instr(v ValueID) *Instr {
	return &f.insts[v]
}

// NumValues returns the number of arena slots, erased tombstones included.
func (f *Func) NumValues() int {
	return len(f.insts)
}

// Users returns v's consumer list with multiplicity. The slice aliases
// internal state; callers that mutate the graph while iterating must copy.
func (f *Func) Users(v ValueID) []ValueID {
	return f.insts[v].users
}

// NumUsers returns the number of consumer edges pointing at v.
func (f *Func) NumUsers(v ValueID) int {
	return len(f.insts[v].users)
}

// AddBlock appends a new empty block and returns its ID. The first block
// becomes the entry.
func (f *Func) AddBlock() BlockID {
	id32, err := safecast.Conv[int32](len(f.Blocks))
	if err != nil {
		panic(fmt.Errorf("block id overflow: %w", err))
	}
	id := BlockID(id32)
	f.Blocks = append(f.Blocks, Block{ID: id})
	if f.Entry == NoBlock {
		f.Entry = id
	}
	return id
}

// AddParam registers an incoming parameter value.
func (f *Func) AddParam(name string) ValueID {
	v := f.alloc(Instr{Kind: InstrParam, Name: name, Block: NoBlock})
	f.Params = append(f.Params, v)
	return v
}

func (f *Func) alloc(in Instr) ValueID {
	id32, err := safecast.Conv[int32](len(f.insts))
	if err != nil {
		panic(fmt.Errorf("value id overflow: %w", err))
	}
	f.insts = append(f.insts, in)
	return ValueID(id32)
}

// append places in at the end of block b, registering one consumer edge per
// operand.
func (f *Func) append(b BlockID, in Instr) ValueID {
	in.Block = b
	v := f.alloc(in)
	for _, arg := range f.insts[v].Args {
		f.addUse(arg, v)
	}
	f.Blocks[b].Instrs = append(f.Blocks[b].Instrs, v)
	return v
}

func (f *Func) addUse(def, user ValueID) {
	f.insts[def].users = append(f.insts[def].users, user)
}

// removeUse drops one occurrence of user from def's consumer list.
func (f *Func) removeUse(def, user ValueID) {
	us := f.insts[def].users
	for i, u := range us {
		if u == user {
			f.insts[def].users = append(us[:i], us[i+1:]...)
			return
		}
	}
	panic(fmt.Sprintf("ir: %%v%d is not a user of %%v%d", user, def))
}

// EmitAlloc appends a stack allocation of the named type.
func (f *Func) EmitAlloc(b BlockID, name, typ string) ValueID {
	return f.append(b, Instr{Kind: InstrAlloc, Name: name, Alloc: AllocInstr{Type: typ}})
}

// EmitBitcast appends a pure reinterpretation of src.
func (f *Func) EmitBitcast(b BlockID, name string, src ValueID) ValueID {
	return f.append(b, Instr{Kind: InstrBitcast, Name: name, Args: []ValueID{src}})
}

// EmitFieldAddr appends an offset of field idx off base.
func (f *Func) EmitFieldAddr(b BlockID, name string, base ValueID, idx int) ValueID {
	return f.append(b, Instr{Kind: InstrFieldAddr, Name: name, Args: []ValueID{base}, Field: FieldInstr{Index: idx}})
}

// EmitCall appends a call to callee. special marks the shared
// constructor/destructor family tag.
func (f *Func) EmitCall(b BlockID, callee string, special bool, args ...ValueID) ValueID {
	return f.append(b, Instr{Kind: InstrCall, Args: args, Call: CallInstr{Callee: callee, Special: special}})
}

// EmitLifetime appends a lifetime bracket marker over obj.
func (f *Func) EmitLifetime(b BlockID, end bool, obj ValueID) ValueID {
	return f.append(b, Instr{Kind: InstrLifetime, Args: []ValueID{obj}, Lifetime: LifetimeInstr{End: end}})
}

// EmitLoad appends a load through addr.
func (f *Func) EmitLoad(b BlockID, name string, addr ValueID) ValueID {
	return f.append(b, Instr{Kind: InstrLoad, Name: name, Args: []ValueID{addr}})
}

// EmitStore appends a store of val through addr.
func (f *Func) EmitStore(b BlockID, addr, val ValueID) ValueID {
	return f.append(b, Instr{Kind: InstrStore, Args: []ValueID{addr, val}})
}

// EmitReturn appends a return terminator; pass NoValue for a bare return.
func (f *Func) EmitReturn(b BlockID, v ValueID) ValueID {
	in := Instr{Kind: InstrReturn}
	if v != NoValue {
		in.Args = []ValueID{v}
	}
	return f.append(b, in)
}

// EmitGoto appends an unconditional branch terminator.
func (f *Func) EmitGoto(b BlockID, target BlockID) ValueID {
	return f.append(b, Instr{Kind: InstrGoto, Goto: GotoInstr{Target: target}})
}

// EmitIf appends a conditional branch terminator.
func (f *Func) EmitIf(b BlockID, cond ValueID, then, els BlockID) ValueID {
	return f.append(b, Instr{Kind: InstrIf, Args: []ValueID{cond}, If: IfInstr{Then: then, Else: els}})
}

// EmitUnreachable appends an unreachable terminator.
func (f *Func) EmitUnreachable(b BlockID) ValueID {
	return f.append(b, Instr{Kind: InstrUnreachable})
}

// Successors returns the blocks control can branch to from b.
func (f *Func) Successors(b BlockID) []BlockID {
	blk := &f.Blocks[b]
	if len(blk.Instrs) == 0 {
		return nil
	}
	term := f.Instr(blk.Instrs[len(blk.Instrs)-1])
	switch term.Kind {
	case InstrGoto:
		return []BlockID{term.Goto.Target}
	case InstrIf:
		return []BlockID{term.If.Then, term.If.Else}
	}
	// ret and unreachable have no successors
	return nil
}

// Erase removes v from the graph. v must have no remaining consumers; the
// check is a hard runtime invariant, not a debug-only assert, because an
// erase with live consumers would leave dangling operand edges behind.
func (f *Func) Erase(v ValueID) {
	in := &f.insts[v]
	if in.Kind == InstrInvalid {
		panic(fmt.Sprintf("ir: double erase of %%v%d", v))
	}
	if len(in.users) != 0 {
		panic(fmt.Sprintf("ir: erase of %%v%d with %d remaining users", v, len(in.users)))
	}
	for _, arg := range in.Args {
		f.removeUse(arg, v)
	}
	if in.Block != NoBlock {
		blk := &f.Blocks[in.Block]
		for i, iv := range blk.Instrs {
			if iv == v {
				blk.Instrs = append(blk.Instrs[:i], blk.Instrs[i+1:]...)
				break
			}
		}
	}
	*in = Instr{Kind: InstrInvalid, Block: NoBlock}
}

// ReplaceAllUses rewrites every operand edge pointing at from so it points
// at to. After the call from has no consumers.
func (f *Func) ReplaceAllUses(from, to ValueID) {
	if from == to {
		return
	}
	users := f.insts[from].users
	f.insts[from].users = nil
	for _, u := range users {
		args := f.insts[u].Args
		for i, a := range args {
			if a == from {
				args[i] = to
				f.addUse(to, u)
				break
			}
		}
	}
}
