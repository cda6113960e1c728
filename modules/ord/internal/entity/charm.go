package entity

// Charm is a boolean property of an inscription, stored as a bit of Charms.
type Charm uint16

const (
	CharmCursed Charm = iota
	CharmReinscription
	CharmUnbound
	CharmLost
	CharmVindicated
)

var charmNames = map[Charm]string{
	CharmCursed:        "cursed",
	CharmReinscription: "reinscription",
	CharmUnbound:       "unbound",
	CharmLost:          "lost",
	CharmVindicated:    "vindicated",
}

func (c Charm) String() string {
	return charmNames[c]
}

type Charms uint16

func (c Charms) Has(charm Charm) bool {
	return c&(1<<charm) != 0
}

func (c *Charms) Set(charm Charm) {
	*c |= 1 << charm
}

// Names lists the set charms in declaration order.
func (c Charms) Names() []string {
	names := make([]string, 0)
	for charm := CharmCursed; charm <= CharmVindicated; charm++ {
		if c.Has(charm) {
			names = append(names, charm.String())
		}
	}
	return names
}
