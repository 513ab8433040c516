package split

// Status is the lifecycle state of a split definition.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// MatcherType names the key matchers the evaluator understands.
type MatcherType string

const (
	MatcherAllKeys   MatcherType = "ALL_KEYS"
	MatcherWhitelist MatcherType = "WHITELIST"
	MatcherInSegment MatcherType = "IN_SEGMENT"
)

// Combiner joins the matchers of a condition.
type Combiner string

const CombinerAnd Combiner = "AND"

// ControlTreatment is served whenever a split cannot be evaluated.
const ControlTreatment = "control"

// RawSplit is a split change as delivered by the control plane.
type RawSplit struct {
	Name             string         `json:"name" yaml:"name"`
	TrafficTypeName  string         `json:"trafficTypeName,omitempty" yaml:"trafficTypeName,omitempty"`
	Seed             int64          `json:"seed" yaml:"seed"`
	Status           Status         `json:"status" yaml:"status"`
	Killed           bool           `json:"killed" yaml:"killed"`
	DefaultTreatment string         `json:"defaultTreatment" yaml:"defaultTreatment"`
	ChangeNumber     int64          `json:"changeNumber" yaml:"changeNumber"`
	Conditions       []RawCondition `json:"conditions" yaml:"conditions"`
}

type RawCondition struct {
	MatcherGroup RawMatcherGroup `json:"matcherGroup" yaml:"matcherGroup"`
	Partitions   []Partition     `json:"partitions" yaml:"partitions"`
	Label        string          `json:"label,omitempty" yaml:"label,omitempty"`
}

type RawMatcherGroup struct {
	Combiner Combiner     `json:"combiner" yaml:"combiner"`
	Matchers []RawMatcher `json:"matchers" yaml:"matchers"`
}

type RawMatcher struct {
	MatcherType               MatcherType           `json:"matcherType" yaml:"matcherType"`
	Negate                    bool                  `json:"negate" yaml:"negate"`
	UserDefinedSegmentMatcher *SegmentMatcherData   `json:"userDefinedSegmentMatcherData,omitempty" yaml:"userDefinedSegmentMatcherData,omitempty"`
	WhitelistMatcher          *WhitelistMatcherData `json:"whitelistMatcherData,omitempty" yaml:"whitelistMatcherData,omitempty"`
}

type SegmentMatcherData struct {
	SegmentName string `json:"segmentName" yaml:"segmentName"`
}

type WhitelistMatcherData struct {
	Whitelist []string `json:"whitelist" yaml:"whitelist"`
}

// Partition assigns a share (0-100) of the traffic to a treatment.
type Partition struct {
	Treatment string `json:"treatment" yaml:"treatment"`
	Size      int    `json:"size" yaml:"size"`
}

// Split is the parsed definition kept in the cache. It is a plain value:
// segments are referenced by name and resolved against the segment cache at
// evaluation time.
type Split struct {
	Name             string      `json:"name"`
	TrafficTypeName  string      `json:"traffic_type_name,omitempty"`
	Seed             int64       `json:"seed"`
	Killed           bool        `json:"killed"`
	DefaultTreatment string      `json:"default_treatment"`
	ChangeNumber     int64       `json:"change_number"`
	Conditions       []Condition `json:"conditions"`
}

// Condition matches when every matcher matches.
type Condition struct {
	Matchers   []Matcher   `json:"matchers"`
	Partitions []Partition `json:"partitions"`
	Label      string      `json:"label,omitempty"`
}

type Matcher struct {
	Type      MatcherType `json:"type"`
	Negate    bool        `json:"negate,omitempty"`
	Segment   string      `json:"segment,omitempty"`
	Whitelist []string    `json:"whitelist,omitempty"`
}

// Segments lists every segment referenced by an IN_SEGMENT matcher.
func (s *Split) Segments() []string {
	var names []string
	seen := make(map[string]struct{})
	for _, c := range s.Conditions {
		for _, m := range c.Matchers {
			if m.Type != MatcherInSegment {
				continue
			}
			if _, ok := seen[m.Segment]; ok {
				continue
			}
			seen[m.Segment] = struct{}{}
			names = append(names, m.Segment)
		}
	}
	return names
}
