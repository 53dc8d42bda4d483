package domain

import (
	"encoding/json"
	"sort"
)

// Lineage labels attached to outputs by each transform family. A label on an
// input image means that family already ran in an earlier batch and is skipped
// for the image in this one.
const (
	TagRotatedCW  = "rotated_cw"
	TagRotatedCCW = "rotated_ccw"
	TagUpsideDown = "upside_down"
	TagOffAxis    = "off_axis"
	TagBright     = "bright"
	TagDark       = "dark"
	TagBlurred    = "blurred"
)

// Tags is a set of lineage labels. Uniqueness is by value; order is not
// significant. JSON encoding is a sorted array of strings.
type Tags map[string]struct{}

func NewTags(labels ...string) Tags {
	t := make(Tags, len(labels))
	for _, label := range labels {
		t[label] = struct{}{}
	}
	return t
}

func (t Tags) Has(label string) bool {
	_, ok := t[label]
	return ok
}

func (t Tags) HasAny(labels ...string) bool {
	for _, label := range labels {
		if t.Has(label) {
			return true
		}
	}
	return false
}

// List returns the labels in sorted order.
func (t Tags) List() []string {
	labels := make([]string, 0, len(t))
	for label := range t {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

func (t Tags) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.List())
}

func (t *Tags) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	*t = NewTags(labels...)
	return nil
}

// TaggedImage pairs a source image reference with the lineage tags it carried
// into the batch. The reference is a filesystem path for local runs and an
// object key for object-store runs.
type TaggedImage struct {
	Ref  string
	Tags Tags
}
