// internal/fee/fee.go
package fee

// Schedule is the service fee table, in lamports.
type Schedule struct {
	Base          uint64
	RevokeMint    uint64
	RevokeFreeze  uint64
	CustomCreator uint64
	Vanity        uint64
}

// Features lists the optional capabilities a request selects.
type Features struct {
	RevokeMint    bool
	RevokeFreeze  bool
	CustomCreator bool
	Vanity        bool
}

// Breakdown is the per-line view of a total, used for estimates.
type Breakdown struct {
	Base          uint64
	RevokeMint    uint64
	RevokeFreeze  uint64
	CustomCreator uint64
	Vanity        uint64
}

// Total returns the fee charged for the selected features. It has no side
// effects, so an estimate and the value charged at submission always agree.
func Total(f Features, s Schedule) uint64 {
	return Calculate(f, s).Total()
}

// Calculate splits the fee into its components.
func Calculate(f Features, s Schedule) Breakdown {
	b := Breakdown{Base: s.Base}
	if f.RevokeMint {
		b.RevokeMint = s.RevokeMint
	}
	if f.RevokeFreeze {
		b.RevokeFreeze = s.RevokeFreeze
	}
	if f.CustomCreator {
		b.CustomCreator = s.CustomCreator
	}
	if f.Vanity {
		b.Vanity = s.Vanity
	}
	return b
}

// Total sums the breakdown.
func (b Breakdown) Total() uint64 {
	return b.Base + b.RevokeMint + b.RevokeFreeze + b.CustomCreator + b.Vanity
}

// IsZero reports whether the schedule charges nothing at all.
func (s Schedule) IsZero() bool {
	return s == Schedule{}
}
