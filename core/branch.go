package core

import "fmt"

// BranchKind discriminates the four terminator shapes the engine
// understands. Equality and Inequality carry their destinations in a
// normalized polarity (see BranchFromMnemonic) so that two binaries
// compiled with opposite jump conditions still align slot-for-slot.
type BranchKind uint8

const (
	BranchReturn BranchKind = iota
	BranchNeutral
	BranchEquality
	BranchInequality
)

func (k BranchKind) String() string {
	switch k {
	case BranchReturn:
		return "return"
	case BranchNeutral:
		return "neutral"
	case BranchEquality:
		return "equality"
	case BranchInequality:
		return "inequality"
	}
	return fmt.Sprintf("branch(%d)", uint8(k))
}

// Branch is a block terminator.
//
//	Return:     no destinations
//	Neutral:    A = unconditional target
//	Equality:   A = taken-if-equal, B = taken-if-not-equal
//	Inequality: A = taken-if-greater, B = taken-if-less
type Branch struct {
	Kind BranchKind `codec:"T" json:"kind"`
	A    Dest       `codec:"A" json:"a"`
	B    Dest       `codec:"B" json:"b"`
}

func ReturnBranch() Branch         { return Branch{Kind: BranchReturn} }
func NeutralBranch(to Dest) Branch { return Branch{Kind: BranchNeutral, A: to} }
func EqualityBranch(eq, ne Dest) Branch {
	return Branch{Kind: BranchEquality, A: eq, B: ne}
}
func InequalityBranch(gt, lt Dest) Branch {
	return Branch{Kind: BranchInequality, A: gt, B: lt}
}

// BranchFromMnemonic normalizes a terminator mnemonic into a Branch.
// jump is the explicit target, fail the fallthrough. The condition
// polarity is folded into the slot order: `jne L` and the recompiled
// `je Lneg` land their semantically-equal destinations in the same slot.
func BranchFromMnemonic(mnemonic string, jump, fail Dest) Branch {
	switch mnemonic {
	case "ret", "retn", "retf":
		return ReturnBranch()
	case "b", "br", "bx", "bxr", "jmp":
		return NeutralBranch(jump)
	case "ble", "blt", "bls", "jb", "jl", "jle", "jbe":
		return InequalityBranch(fail, jump)
	case "bge", "bgt", "bhi", "ja", "jg", "jge", "jae":
		return InequalityBranch(jump, fail)
	case "beq", "bpl", "je", "jz", "jp":
		return EqualityBranch(jump, fail)
	case "bne", "bmi", "jne", "jnz", "jnp":
		return EqualityBranch(fail, jump)
	default:
		// unrecognized conditional: fall through conservatively
		return NeutralBranch(fail)
	}
}
