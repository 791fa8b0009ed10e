package core

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// DefaultCandidateThreshold bounds how many candidates the finder is
// willing to walk through the oracle before refining further.
const DefaultCandidateThreshold = 10

// Finder services targeted queries: locate one symbol, or every symbol
// of a class within an output address range. It narrows candidates by
// the signature of already-bound callers, refines by callee names, and
// hands short candidate lists to the oracle.
type Finder struct {
	Pair      *ExecPair
	Binds     *BindDB
	Threshold int
}

func NewFinder(pair *ExecPair, binds *BindDB) *Finder {
	return &Finder{Pair: pair, Binds: binds, Threshold: DefaultCandidateThreshold}
}

// FindSymbol searches the whole output binary for one symbol.
func (f *Finder) FindSymbol(symbol string) error {
	return f.findIn(symbol, f.Pair.Output.Fns)
}

// FindRange searches for every input symbol of the given class among
// output functions in [lo, hi]. The class filter uses the mangled
// _ZN<len><class> prefix.
func (f *Finder) FindRange(class string, lo, hi uint64) error {
	candidates := make(map[uint64]*Function)
	for addr, fn := range f.Pair.Output.Fns {
		if fn.Address.FunctionAddr >= lo && fn.Address.FunctionAddr <= hi {
			candidates[addr] = fn
		}
	}

	prefix := fmt.Sprintf("_ZN%d%s", len(class), class)
	var symbols []string
	for _, fn := range f.Pair.Input.Fns {
		if fn.Name != "" && len(fn.Name) >= len(prefix) && fn.Name[:len(prefix)] == prefix {
			symbols = append(symbols, fn.Name)
		}
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		if err := f.findIn(symbol, candidates); err != nil {
			return err
		}
		if err := f.Binds.Save(); err != nil {
			return err
		}
	}
	return nil
}

func (f *Finder) findIn(symbol string, candidates map[uint64]*Function) error {
	inputFn := f.Pair.Input.FunctionByName(symbol)
	if inputFn == nil {
		return fmt.Errorf("finder: symbol %q not found in input binary", symbol)
	}

	reversed := make(map[uint64]string)
	reversedVer := make(map[uint64]string)
	for name, b := range f.Binds.Binds {
		if addr, ok := b.ResolvedAddr(); ok {
			reversed[addr] = name
			if b.State == BindVerified {
				reversedVer[addr] = name
			}
		}
	}

	// settle any existing claim before searching
	if b, ok := f.Binds.Lookup(symbol); ok {
		switch b.State {
		case BindVerified:
			logrus.Infof("finder: %s is already verified at %#x", symbol, b.Addr)
			return nil
		case BindUnverified:
			switch f.Binds.oracle.Ask(symbol, b.Addr) {
			case AnswerYes:
				f.Binds.set(symbol, Bind{State: BindVerified, Addr: b.Addr})
				f.Binds.save()
				return nil
			case AnswerIgnore:
				return nil
			default:
				f.Binds.set(symbol, Bind{State: BindNot, Rejected: []uint64{b.Addr}})
				f.Binds.save()
			}
		}
	}

	verifiedXrefs := f.boundXrefNames(inputFn)

	var matched []uint64
	for addr, fn := range candidates {
		names := make([]string, 0, len(fn.Xrefs))
		for _, x := range fn.Xrefs {
			if name, ok := reversed[x.FunctionAddr]; ok {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		if sameNames(names, verifiedXrefs) {
			matched = append(matched, addr)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i] < matched[j] })
	logrus.Infof("finder: %s: %d possible candidates", symbol, len(matched))

	if len(matched) <= f.Threshold {
		f.oracleLoop(symbol, matched, reversedVer)
		return nil
	}

	logrus.Infof("finder: %s: refining by calls", symbol)
	verifiedCalls := f.boundCallNames(inputFn)

	var refined []uint64
	for _, addr := range matched {
		fn, ok := f.Pair.Output.Fns[addr]
		if !ok {
			continue
		}
		var names []string
		for _, blk := range fn.Blocks {
			for _, call := range blk.Calls {
				if !call.Known {
					continue
				}
				if name, ok := reversed[call.Addr]; ok {
					names = append(names, name)
				}
			}
		}
		sort.Strings(names)
		if subsetOf(verifiedCalls, names) {
			refined = append(refined, addr)
		}
	}
	logrus.Infof("finder: %s: %d possible candidates", symbol, len(refined))

	if len(refined) <= f.Threshold {
		f.oracleLoop(symbol, refined, reversedVer)
		return nil
	}

	logrus.Warnf("finder: %s: too many candidates", symbol)
	return nil
}

// oracleLoop walks a short candidate list through the oracle. The first
// accepted candidate verifies the symbol; rejections accumulate in the
// Not list; Ignore stops the loop for this symbol without recording a
// rejection. Candidates already verified for another symbol are skipped.
func (f *Finder) oracleLoop(symbol string, candidates []uint64, reversedVer map[uint64]string) {
	for _, addr := range candidates {
		if _, taken := reversedVer[addr]; taken {
			continue
		}
		switch f.Binds.oracle.Ask(symbol, addr) {
		case AnswerYes:
			f.Binds.set(symbol, Bind{State: BindVerified, Addr: addr})
			f.Binds.save()
			return
		case AnswerIgnore:
			return
		default:
			cur, ok := f.Binds.Lookup(symbol)
			if ok && cur.State == BindNot {
				if !cur.rejected(addr) {
					cur.Rejected = append(cur.Rejected, addr)
					f.Binds.set(symbol, cur)
				}
			} else {
				f.Binds.set(symbol, Bind{State: BindNot, Rejected: []uint64{addr}})
			}
			f.Binds.save()
		}
	}
}

// boundXrefNames collects the sorted names of the functions calling
// inputFn that already have an output address bound.
func (f *Finder) boundXrefNames(inputFn *Function) []string {
	var names []string
	for _, x := range inputFn.Xrefs {
		fn, ok := f.Pair.Input.Fns[x.FunctionAddr]
		if !ok || fn.Name == "" {
			continue
		}
		if _, ok := f.Binds.AddrOf(fn.Name); ok {
			names = append(names, fn.Name)
		}
	}
	sort.Strings(names)
	return names
}

// boundCallNames collects the sorted names of inputFn's resolved callees
// that already have an output address bound.
func (f *Finder) boundCallNames(inputFn *Function) []string {
	var names []string
	for _, blk := range inputFn.Blocks {
		for _, call := range blk.Calls {
			name := f.Pair.Input.CalleeName(call)
			if name == "" {
				continue
			}
			if _, ok := f.Binds.AddrOf(name); ok {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

// subsetOf reports whether every element of a appears somewhere in b.
// Containment is by membership, not multiplicity.
func subsetOf(a, b []string) bool {
	for _, x := range a {
		found := false
		for _, y := range b {
			if x == y {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
