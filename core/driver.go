package core

import "github.com/sirupsen/logrus"

// Driver owns the propagation loop: it runs every strategy in a fixed
// order, merges each batch into the bind database, and repeats until a
// full round discovers nothing new. The database is persisted after
// every merge, so interrupting a run loses at most one in-flight batch.
type Driver struct {
	Pair       *ExecPair
	Binds      *BindDB
	Strategies []Strategy
}

// NewDriver builds a driver with the standard strategy order.
func NewDriver(pair *ExecPair, binds *BindDB) *Driver {
	return &Driver{
		Pair:  pair,
		Binds: binds,
		Strategies: []Strategy{
			StringXref(),
			BlockTraverse(),
			CallXref(),
			CallBlock(),
		},
	}
}

// Run iterates to a fixed point and returns the totals across all
// rounds.
func (d *Driver) Run() (added, verified int, err error) {
	for round := 1; ; round++ {
		roundAdded := 0
		for _, s := range d.Strategies {
			batch := s.Run(d.Pair, d.Binds)
			logrus.Infof("driver: round %d: %s proposed %d bindings", round, s.Name, len(batch))
			a, v := d.Binds.Process(batch)
			if err := d.Binds.Save(); err != nil {
				return added, verified, err
			}
			roundAdded += a
			added += a
			verified += v
		}
		if roundAdded <= 0 {
			logrus.Infof("driver: fixed point after %d rounds, %d symbols total", round, len(d.Binds.Binds))
			return added, verified, nil
		}
	}
}
