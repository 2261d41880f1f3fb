package diagram

/*
Heuristics holds the thresholds used to turn loose board geometry into
structure. The defaults were tuned against real architecture boards; every
field may be overridden from configuration. Zero values fall back to the
defaults.
*/
type Heuristics struct {
	// Minimum share of the child's area that must lie inside the parent.
	ContainmentOverlap       float64 `mapstructure:"containmentOverlap" json:"containmentOverlap"`
	RegionContainmentOverlap float64 `mapstructure:"regionContainmentOverlap" json:"regionContainmentOverlap"`

	// Minimum ratio of parent to child width and height.
	ContainmentScale       float64 `mapstructure:"containmentScale" json:"containmentScale"`
	RegionContainmentScale float64 `mapstructure:"regionContainmentScale" json:"regionContainmentScale"`

	// An item this many times the median area is a region.
	RegionAreaFactor float64 `mapstructure:"regionAreaFactor" json:"regionAreaFactor"`
	// Items in a region colour need at least this many times the median area.
	RegionColorAreaFactor float64 `mapstructure:"regionColorAreaFactor" json:"regionColorAreaFactor"`
	// Colours whose cumulative area reaches this share of the largest colour.
	RegionColorShare float64 `mapstructure:"regionColorShare" json:"regionColorShare"`

	// Maximum centre distance of stacked items, relative to the smaller height.
	StackGapFactor float64 `mapstructure:"stackGapFactor" json:"stackGapFactor"`

	LabelLength   int `mapstructure:"labelLength" json:"labelLength"`
	CaptionLength int `mapstructure:"captionLength" json:"captionLength"`
}

func DefaultHeuristics() Heuristics {
	return Heuristics{
		ContainmentOverlap:       0.8,
		RegionContainmentOverlap: 0.6,
		ContainmentScale:         1.05,
		RegionContainmentScale:   1.02,
		RegionAreaFactor:         3,
		RegionColorAreaFactor:    0.5,
		RegionColorShare:         0.7,
		StackGapFactor:           0.75,
		LabelLength:              80,
		CaptionLength:            40,
	}
}

func (h Heuristics) withDefaults() Heuristics {
	d := DefaultHeuristics()

	fill := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}

	fill(&h.ContainmentOverlap, d.ContainmentOverlap)
	fill(&h.RegionContainmentOverlap, d.RegionContainmentOverlap)
	fill(&h.ContainmentScale, d.ContainmentScale)
	fill(&h.RegionContainmentScale, d.RegionContainmentScale)
	fill(&h.RegionAreaFactor, d.RegionAreaFactor)
	fill(&h.RegionColorAreaFactor, d.RegionColorAreaFactor)
	fill(&h.RegionColorShare, d.RegionColorShare)
	fill(&h.StackGapFactor, d.StackGapFactor)

	if h.LabelLength <= 0 {
		h.LabelLength = d.LabelLength
	}

	if h.CaptionLength <= 0 {
		h.CaptionLength = d.CaptionLength
	}

	return h
}
