package core

import (
	"reflect"
	"testing"
)

// TestStringXrefSingleSite: a literal referenced exactly once on both
// sides binds the enclosing functions directly (scenario: one "hello"
// reference in each binary).
func TestStringXrefSingleSite(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "foo", 0x100)
	addFn(in, "bar", 0x180, blk(0x180, 0x200, ReturnBranch(), nil, "hello"))
	in.Strings["hello"] = &StringRef{Literal: "hello", Xrefs: []Address{site(0x210, 0x200, 0x180)}}

	addFn(out, "", 0xA000, blk(0xA000, 0x2000, ReturnBranch(), nil, "hello"))
	out.Strings["hello"] = &StringRef{Literal: "hello", Xrefs: []Address{site(0x2010, 0x2000, 0xA000)}}

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()

	batch := StringXref().Run(pair, db)
	if !reflect.DeepEqual(batch, map[string]uint64{"bar": 0xA000}) {
		t.Fatalf("batch=%v", batch)
	}

	db.Process(batch)
	if b := db.Binds["bar"]; b.State != BindUnverified || b.Addr != 0xA000 {
		t.Fatalf("bar=%+v", b)
	}
}

// TestStringXrefMissingLiteral: a literal present in only one binary is
// skipped without effect.
func TestStringXrefMissingLiteral(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "bar", 0x180, blk(0x180, 0x200, ReturnBranch(), nil, "only-here"))
	in.Strings["only-here"] = &StringRef{Literal: "only-here", Xrefs: []Address{site(0x210, 0x200, 0x180)}}

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()
	if batch := StringXref().Run(pair, db); len(batch) != 0 {
		t.Fatalf("batch=%v", batch)
	}
}

// TestXrefBindsUnnamedSkipped: a 1:1 site pair whose input function has
// no name contributes nothing.
func TestXrefBindsUnnamedSkipped(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "", 0x180, blk(0x180, 0x200, ReturnBranch(), nil))
	addFn(out, "", 0xA000, blk(0xA000, 0x2000, ReturnBranch(), nil))

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()

	pairs := []XrefPair{{
		In:  []Address{site(0x210, 0x200, 0x180)},
		Out: []Address{site(0x2010, 0x2000, 0xA000)},
	}}
	if batch := xrefBinds(db, pair, pairs); len(batch) != 0 {
		t.Fatalf("batch=%v", batch)
	}
}

// TestXrefBindsAsymmetricSkipped: 1:N site pairs are ambiguous and
// dropped.
func TestXrefBindsAsymmetricSkipped(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "bar", 0x180, blk(0x180, 0x200, ReturnBranch(), nil))
	addFn(out, "", 0xA000,
		blk(0xA000, 0x2000, ReturnBranch(), nil),
		blk(0xA000, 0x2100, ReturnBranch(), nil),
	)

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()

	pairs := []XrefPair{{
		In: []Address{site(0x210, 0x200, 0x180)},
		Out: []Address{
			site(0x2010, 0x2000, 0xA000),
			site(0x2110, 0x2100, 0xA000),
		},
	}}
	if batch := xrefBinds(db, pair, pairs); len(batch) != 0 {
		t.Fatalf("batch=%v", batch)
	}
}

// TestXrefBindsCallShapeDisambiguation: two sites on each side, and a
// previously bound callee singles out the right block alignment, binding
// the caller.
func TestXrefBindsCallShapeDisambiguation(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "foo", 0x500)
	addFn(in, "qux", 0x600)
	// both reference sites live inside baz
	addFn(in, "baz", 0x300,
		blk(0x300, 0x310, ReturnBranch(), []Dest{KnownDest(0x500)}), // B1: calls foo
		blk(0x300, 0x320, ReturnBranch(), []Dest{KnownDest(0x600)}), // B2: calls qux
	)
	addFn(out, "", 0xA000,
		blk(0xA000, 0xA010, ReturnBranch(), []Dest{KnownDest(0xF00)}),
		blk(0xA000, 0xA020, ReturnBranch(), []Dest{KnownDest(0xE00)}),
	)

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()
	db.set("foo", Bind{State: BindUnverified, Addr: 0xF00})

	pairs := []XrefPair{{
		In: []Address{
			site(0x311, 0x310, 0x300),
			site(0x321, 0x320, 0x300),
		},
		Out: []Address{
			site(0xA011, 0xA010, 0xA000),
			site(0xA021, 0xA020, 0xA000),
		},
	}}
	batch := xrefBinds(db, pair, pairs)
	if got := batch["baz"]; got != 0xA000 {
		t.Fatalf("baz bound to %#x, batch=%v", got, batch)
	}
}

// TestBlockBindsAlignedCalls harvests callee bindings from a matched
// block pair.
func TestBlockBindsAlignedCalls(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "foo", 0x500)
	addFn(in, "qux", 0x600)
	inBlk := blk(0x100, 0x100, ReturnBranch(), []Dest{KnownDest(0x500), UnknownDest(), KnownDest(0x600)})
	outBlk := blk(0x1000, 0x1000, ReturnBranch(), []Dest{KnownDest(0xF00), UnknownDest(), KnownDest(0xE00)})
	addFn(in, "f", 0x100, inBlk)
	addFn(out, "", 0x1000, outBlk)

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()

	batch := blockBinds(db, pair, []BlockPair{{In: &in.Fns[0x100].Blocks[0], Out: &out.Fns[0x1000].Blocks[0]}})
	want := map[string]uint64{"foo": 0xF00, "qux": 0xE00}
	if !reflect.DeepEqual(batch, want) {
		t.Fatalf("batch=%v want %v", batch, want)
	}
}

// TestBlockBindsInlineHalts: hitting an Inline-bound callee abandons the
// rest of the block pair, so the callee after it is not bound to the
// wrong slot.
func TestBlockBindsInlineHalts(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "foo", 0x500)
	addFn(in, "helper", 0x550)
	addFn(in, "qux", 0x600)
	addFn(in, "f", 0x100,
		blk(0x100, 0x100, ReturnBranch(),
			[]Dest{KnownDest(0x500), KnownDest(0x550), KnownDest(0x600)}))
	addFn(out, "", 0x1000,
		blk(0x1000, 0x1000, ReturnBranch(),
			[]Dest{KnownDest(0xF00), KnownDest(0xE00)}))

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()
	db.set("helper", Bind{State: BindInline})

	batch := blockBinds(db, pair, []BlockPair{{In: &in.Fns[0x100].Blocks[0], Out: &out.Fns[0x1000].Blocks[0]}})
	want := map[string]uint64{"foo": 0xF00}
	if !reflect.DeepEqual(batch, want) {
		t.Fatalf("batch=%v want %v", batch, want)
	}
}

// TestBlockBindsMismatchHalts: a resolved/unresolved disagreement stops
// the block pair at that call.
func TestBlockBindsMismatchHalts(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "foo", 0x500)
	addFn(in, "qux", 0x600)
	addFn(in, "f", 0x100,
		blk(0x100, 0x100, ReturnBranch(),
			[]Dest{KnownDest(0x500), UnknownDest(), KnownDest(0x600)}))
	addFn(out, "", 0x1000,
		blk(0x1000, 0x1000, ReturnBranch(),
			[]Dest{KnownDest(0xF00), KnownDest(0xBAD), KnownDest(0xE00)}))

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()

	batch := blockBinds(db, pair, []BlockPair{{In: &in.Fns[0x100].Blocks[0], Out: &out.Fns[0x1000].Blocks[0]}})
	want := map[string]uint64{"foo": 0xF00}
	if !reflect.DeepEqual(batch, want) {
		t.Fatalf("batch=%v want %v", batch, want)
	}
}

// TestCallXref pairs the incoming call sites of a bound function and
// binds the caller through the 1:1 path.
func TestCallXref(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "caller", 0x180, blk(0x180, 0x200, ReturnBranch(), nil))
	target := addFn(in, "target", 0x300)
	target.Xrefs = []Address{site(0x210, 0x200, 0x180)}

	addFn(out, "", 0xC000, blk(0xC000, 0x2000, ReturnBranch(), nil))
	outTarget := addFn(out, "", 0xB000)
	outTarget.Xrefs = []Address{site(0x2010, 0x2000, 0xC000)}

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()
	db.set("target", Bind{State: BindVerified, Addr: 0xB000})

	batch := CallXref().Run(pair, db)
	if !reflect.DeepEqual(batch, map[string]uint64{"caller": 0xC000}) {
		t.Fatalf("batch=%v", batch)
	}
}

// TestCallBlock aligns call-site blocks through bound enclosing
// functions and mines them for callee bindings.
func TestCallBlock(t *testing.T) {
	in := newExecDB()
	out := newExecDB()
	addFn(in, "leaf", 0x700)
	addFn(in, "caller", 0x180,
		blk(0x180, 0x200, ReturnBranch(), []Dest{KnownDest(0x300), KnownDest(0x700)}))
	target := addFn(in, "target", 0x300)
	target.Xrefs = []Address{site(0x210, 0x200, 0x180)}

	addFn(out, "", 0xC000,
		blk(0xC000, 0x2000, ReturnBranch(), []Dest{KnownDest(0xB000), KnownDest(0xD000)}))
	outTarget := addFn(out, "", 0xB000)
	outTarget.Xrefs = []Address{site(0x2010, 0x2000, 0xC000)}

	pair := &ExecPair{Input: in, Output: out}
	db, _ := testBinds()
	db.set("target", Bind{State: BindVerified, Addr: 0xB000})
	db.set("caller", Bind{State: BindUnverified, Addr: 0xC000})

	batch := CallBlock().Run(pair, db)
	if got := batch["leaf"]; got != 0xD000 {
		t.Fatalf("leaf bound to %#x, batch=%v", got, batch)
	}
}
