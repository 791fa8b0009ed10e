package core

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// BindState classifies one symbol binding.
type BindState uint8

const (
	// BindUnverified is a single address proposed by a strategy.
	BindUnverified BindState = iota
	// BindVerified is a human-confirmed address, or one derived from
	// vtable alignment. Verified entries are never overwritten.
	BindVerified
	// BindNot records addresses a human has rejected for this symbol.
	BindNot
	// BindInline marks a symbol with no direct output correspondent
	// because the compiler inlined it away.
	BindInline
)

var bindStateNames = map[BindState]string{
	BindUnverified: "unverified",
	BindVerified:   "verified",
	BindNot:        "not",
	BindInline:     "inline",
}

func (s BindState) String() string {
	if n, ok := bindStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("bind(%d)", uint8(s))
}

// MarshalText renders the state as its lowercase name so the binds file
// stays readable and diffable.
func (s BindState) MarshalText() ([]byte, error) {
	n, ok := bindStateNames[s]
	if !ok {
		return nil, fmt.Errorf("binddb: unknown bind state %d", uint8(s))
	}
	return []byte(n), nil
}

func (s *BindState) UnmarshalText(text []byte) error {
	for k, v := range bindStateNames {
		if v == string(text) {
			*s = k
			return nil
		}
	}
	return fmt.Errorf("binddb: unknown bind state %q", string(text))
}

// Bind is the tagged binding record for one symbol. Addr is meaningful
// for Verified and Unverified; Rejected only for Not.
type Bind struct {
	State    BindState `json:"state"`
	Addr     uint64    `json:"addr,omitempty"`
	Rejected []uint64  `json:"rejected,omitempty"`
}

// ResolvedAddr returns the bound output address for Verified and
// Unverified entries.
func (b Bind) ResolvedAddr() (uint64, bool) {
	switch b.State {
	case BindVerified, BindUnverified:
		return b.Addr, true
	}
	return 0, false
}

func (b Bind) rejected(addr uint64) bool {
	for _, a := range b.Rejected {
		if a == addr {
			return true
		}
	}
	return false
}

// BindDB is the evolving mapping from symbol name to binding. It owns
// its persistence path and the confirmation oracle; strategies only ever
// read it, all mutation funnels through Process, Seed, Strip and the
// finder.
type BindDB struct {
	Binds map[string]Bind

	order  []string // key insertion order, drives reconciliation prompts
	path   string
	oracle Oracle
}

// NewBindDB returns an empty database persisting to path. An empty path
// disables persistence (tests).
func NewBindDB(oracle Oracle, path string) *BindDB {
	return &BindDB{
		Binds:  make(map[string]Bind),
		path:   path,
		oracle: oracle,
	}
}

func (db *BindDB) set(name string, b Bind) {
	if _, ok := db.Binds[name]; !ok {
		db.order = append(db.order, name)
	}
	db.Binds[name] = b
}

// Lookup returns the binding for name.
func (db *BindDB) Lookup(name string) (Bind, bool) {
	b, ok := db.Binds[name]
	return b, ok
}

// AddrOf returns the bound output address for name, if any.
func (db *BindDB) AddrOf(name string) (uint64, bool) {
	if b, ok := db.Binds[name]; ok {
		return b.ResolvedAddr()
	}
	return 0, false
}

// NameAt returns a symbol bound to addr, preferring a Verified claimant.
func (db *BindDB) NameAt(addr uint64) (string, bool) {
	found := ""
	for _, name := range db.order {
		b, ok := db.Binds[name]
		if !ok {
			continue
		}
		if a, ok := b.ResolvedAddr(); ok && a == addr {
			if b.State == BindVerified {
				return name, true
			}
			if found == "" {
				found = name
			}
		}
	}
	return found, found != ""
}

// save persists if a path is configured; persistence failures are logged
// and swallowed so an unwritable disk never loses in-memory work.
func (db *BindDB) save() {
	if db.path == "" {
		return
	}
	if err := SaveBindDB(db.path, db); err != nil {
		logrus.Errorf("binddb: persist failed: %v", err)
	}
}

// Save writes the database to its configured path.
func (db *BindDB) Save() error {
	if db.path == "" {
		return nil
	}
	return SaveBindDB(db.path, db)
}

// confirm persists and then asks the oracle, so an interrupt at the
// prompt never loses a binding. Ignore counts as a rejection here.
func (db *BindDB) confirm(name string, addr uint64) bool {
	db.save()
	return db.oracle.Ask(name, addr) == AnswerYes
}

// Seed populates the database from vtable alignment: for every class
// present in both binaries, method slots are zipped positionally over the
// common prefix and each named input method becomes a Verified binding.
// This is the only automated source of Verified entries. Seeding is
// idempotent and never overwrites an existing Verified binding.
func (db *BindDB) Seed(pair *ExecPair) int {
	seeded := 0
	names := make([]string, 0, len(pair.Input.Vtables))
	for name := range pair.Input.Vtables {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		in := pair.Input.Vtables[name]
		out, ok := pair.Output.Vtables[name]
		if !ok {
			continue
		}
		n := len(in.FunctionAddrs)
		if len(out.FunctionAddrs) < n {
			n = len(out.FunctionAddrs)
		}
		for i := 0; i < n; i++ {
			fn, ok := pair.Input.Fns[in.FunctionAddrs[i]]
			if !ok || fn.Name == "" {
				continue
			}
			if cur, ok := db.Binds[fn.Name]; ok && cur.State == BindVerified {
				continue
			}
			db.set(fn.Name, Bind{State: BindVerified, Addr: out.FunctionAddrs[i]})
			seeded++
		}
	}
	if seeded > 0 {
		logrus.Infof("binddb: seeded %d verified symbols from vtables", seeded)
	}
	return seeded
}

// Process merges one strategy batch. New names enter as Unverified;
// agreement is a no-op; disagreement with an Unverified entry or a fresh
// address against a Not entry is routed to the oracle. Verified and
// Inline entries are immutable. After the pass a global reconciliation
// resolves addresses claimed by more than one symbol. The database is
// persisted after every individual conflict resolution.
func (db *BindDB) Process(batch map[string]uint64) (added, verified int) {
	before := len(db.Binds)
	logrus.Infof("binddb: processing %d new symbols", len(batch))

	names := make([]string, 0, len(batch))
	for name := range batch {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		addr := batch[name]
		cur, ok := db.Binds[name]
		if !ok {
			db.set(name, Bind{State: BindUnverified, Addr: addr})
			continue
		}
		switch cur.State {
		case BindVerified, BindInline:
			// immutable

		case BindUnverified:
			if cur.Addr == addr {
				continue
			}
			if db.confirm(name, addr) {
				db.set(name, Bind{State: BindVerified, Addr: addr})
				verified++
			} else if db.confirm(name, cur.Addr) {
				db.set(name, Bind{State: BindVerified, Addr: cur.Addr})
				verified++
			} else {
				db.set(name, Bind{State: BindNot, Rejected: []uint64{cur.Addr, addr}})
			}
			db.save()

		case BindNot:
			if cur.rejected(addr) {
				continue
			}
			if db.confirm(name, addr) {
				db.set(name, Bind{State: BindVerified, Addr: addr})
				verified++
			} else {
				cur.Rejected = append(cur.Rejected, addr)
				db.set(name, cur)
			}
			db.save()
		}
	}

	verified += db.reconcile()
	added = len(db.Binds) - before
	db.save()

	logrus.Infof("binddb: added %d symbols", added)
	if verified > 0 {
		logrus.Infof("binddb: verified %d symbols", verified)
	}
	return added, verified
}

// reconcile resolves addresses bound to more than one symbol. A Verified
// claimant wins outright and Unverified rivals are dropped; otherwise the
// oracle is polled in key insertion order until one symbol accepts, and
// every rejecter keeps the address in its Not list.
func (db *BindDB) reconcile() int {
	verified := 0

	claims := make(map[uint64][]string)
	addrs := make([]uint64, 0)
	counted := make(map[string]bool)
	for _, name := range db.order {
		// order can repeat a name that was dropped and later re-added
		if counted[name] {
			continue
		}
		counted[name] = true
		b, ok := db.Binds[name]
		if !ok {
			continue
		}
		addr, ok := b.ResolvedAddr()
		if !ok {
			continue
		}
		if _, seen := claims[addr]; !seen {
			addrs = append(addrs, addr)
		}
		claims[addr] = append(claims[addr], name)
	}

	for _, addr := range addrs {
		names := claims[addr]
		if len(names) < 2 {
			continue
		}
		logrus.Warnf("binddb: %d symbols claim %#x: %v", len(names), addr, names)

		hasVerified := false
		for _, name := range names {
			if db.Binds[name].State == BindVerified {
				if hasVerified {
					logrus.Warnf("binddb: multiple verified claimants at %#x", addr)
				}
				hasVerified = true
			}
		}

		if !hasVerified {
			for _, name := range names {
				if db.confirm(name, addr) {
					db.set(name, Bind{State: BindVerified, Addr: addr})
					verified++
					break
				}
				db.set(name, Bind{State: BindNot, Rejected: []uint64{addr}})
			}
		}

		// whatever is still Unverified at this address lost the claim
		for _, name := range names {
			if b := db.Binds[name]; b.State == BindUnverified && b.Addr == addr {
				delete(db.Binds, name)
			}
		}
		db.save()
	}
	return verified
}

// Strip removes every Unverified entry, leaving only human-confirmed
// state plus the rejection history.
func (db *BindDB) Strip() int {
	removed := 0
	for name, b := range db.Binds {
		if b.State == BindUnverified {
			delete(db.Binds, name)
			removed++
		}
	}
	return removed
}
