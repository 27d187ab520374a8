package ir

// ValueID is a stable handle for an instruction (or parameter) in a
// function's arena. IDs are never reused within a function; erased slots
// stay behind as InstrInvalid tombstones.
type ValueID int32

// NoValue marks an absent value reference.
const NoValue ValueID = -1

// BlockID identifies a basic block within a function.
type BlockID int32

// NoBlock marks an absent block reference (parameters live outside blocks).
const NoBlock BlockID = -1

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	// InstrInvalid marks an erased arena slot.
	InstrInvalid InstrKind = iota
	// InstrParam represents an incoming function parameter.
	InstrParam
	// InstrAlloc represents a stack allocation (automatic storage).
	InstrAlloc
	// InstrCall represents a call instruction.
	InstrCall
	// InstrBitcast represents a pure type reinterpretation of a value.
	InstrBitcast
	// InstrFieldAddr represents a field/element offset off a base value.
	InstrFieldAddr
	// InstrLifetime represents a lifetime bracket marker over a storage value.
	InstrLifetime
	// InstrLoad represents a load through an address value.
	InstrLoad
	// InstrStore represents a store of a value through an address.
	InstrStore
	// InstrReturn terminates a block by returning from the function.
	InstrReturn
	// InstrGoto terminates a block with an unconditional branch.
	InstrGoto
	// InstrIf terminates a block with a two-way conditional branch.
	InstrIf
	// InstrUnreachable terminates a block that control never leaves.
	InstrUnreachable
)

// IsTerminator reports whether the kind ends a basic block.
func (k InstrKind) IsTerminator() bool {
	switch k {
	case InstrReturn, InstrGoto, InstrIf, InstrUnreachable:
		return true
	}
	return false
}

func (k InstrKind) String() string {
	switch k {
	case InstrInvalid:
		return "invalid"
	case InstrParam:
		return "param"
	case InstrAlloc:
		return "alloc"
	case InstrCall:
		return "call"
	case InstrBitcast:
		return "bitcast"
	case InstrFieldAddr:
		return "fieldaddr"
	case InstrLifetime:
		return "lifetime"
	case InstrLoad:
		return "load"
	case InstrStore:
		return "store"
	case InstrReturn:
		return "ret"
	case InstrGoto:
		return "goto"
	case InstrIf:
		return "if"
	case InstrUnreachable:
		return "unreachable"
	}
	return "unknown"
}

// Instr represents one instruction. Operand values live in Args so use
// bookkeeping is uniform across kinds; kind-specific attributes live in the
// payload structs below.
type Instr struct {
	Kind InstrKind

	// Name is the optional %name from the textual format; printing falls
	// back to %vN when empty.
	Name string

	// Block is the owning block, or NoBlock for parameters.
	Block BlockID

	// Args are operand value references, in operand order.
	Args []ValueID

	// users are the reverse edges of Args: every instruction that lists
	// this one as an operand, with multiplicity. Maintained by Func.
	users []ValueID

	Call     CallInstr
	Alloc    AllocInstr
	Field    FieldInstr
	Lifetime LifetimeInstr
	Goto     GotoInstr
	If       IfInstr
}

// CallInstr carries the call-specific attributes. The arguments themselves
// are the instruction's Args.
type CallInstr struct {
	// Callee is the symbolic target name.
	Callee string

	// Special marks the call as invoking a value type's special member
	// family (copy/move constructor or destructor). The tag is shared
	// across the family; argument arity disambiguates.
	Special bool
}

// AllocInstr carries the allocated type name, kept for printing only.
type AllocInstr struct {
	Type string
}

// FieldInstr carries the field index of an offset operation. The base
// address is Args[0].
type FieldInstr struct {
	Index int
}

// LifetimeInstr distinguishes the start and end brackets. The storage value
// is Args[0].
type LifetimeInstr struct {
	End bool
}

// GotoInstr carries the unconditional branch target.
type GotoInstr struct {
	Target BlockID
}

// IfInstr carries the branch targets; the condition is Args[0].
type IfInstr struct {
	Then BlockID
	Else BlockID
}
