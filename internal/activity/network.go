package activity

// Interaction is one regulator-target relationship from the reference
// network, with its mode-of-action weight and confidence annotation.
type Interaction struct {
	Regulator  string  `json:"regulator"`
	Target     string  `json:"target"`
	Weight     float64 `json:"weight"` // sign encodes activation vs repression
	Confidence string  `json:"confidence"`
}

// Network is the read-only regulator-target reference consumed by the
// adapter.
type Network struct {
	regulons map[string][]Target
	order    map[string]int
}

// NewNetwork indexes interactions by regulator. Interaction order within a
// regulon is preserved.
func NewNetwork(interactions []Interaction) *Network {
	n := &Network{
		regulons: make(map[string][]Target),
		order:    make(map[string]int),
	}
	for _, ia := range interactions {
		if _, ok := n.regulons[ia.Regulator]; !ok {
			n.order[ia.Regulator] = len(n.order)
		}
		n.regulons[ia.Regulator] = append(n.regulons[ia.Regulator], Target{
			Entity: ia.Target,
			Weight: ia.Weight,
		})
	}
	return n
}

// Regulators returns the regulator names in insertion order.
func (n *Network) Regulators() []string {
	out := make([]string, len(n.order))
	for reg, i := range n.order {
		out[i] = reg
	}
	return out
}

// Targets returns the regulon of the given regulator.
func (n *Network) Targets(regulator string) []Target {
	return n.regulons[regulator]
}

// Size returns the regulon size of the given regulator.
func (n *Network) Size(regulator string) int {
	return len(n.regulons[regulator])
}
