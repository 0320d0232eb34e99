package nmea

import (
	"slices"
	"sort"
)

// MaxCustomFieldSize is the number of characters a custom field retains.
const MaxCustomFieldSize = 15

// CustomField captures the raw text of one term of one sentence type, for
// values the decoder has no built-in field for.
//
// The caller owns the CustomField and must keep it for as long as the decoder
// it is registered with is in use.
type CustomField struct {
	Field[string]

	name  string
	index int
}

func NewCustomField(name string, index int) *CustomField {
	return &CustomField{name: name, index: index}
}

func (f *CustomField) Name() string { return f.name }
func (f *CustomField) Index() int   { return f.index }

func (f *CustomField) set(term string) {
	if len(term) > MaxCustomFieldSize {
		term = term[:MaxCustomFieldSize]
	}
	f.stage(term)
}

// before orders fields by sentence name, then term index.
func (f *CustomField) before(name string, index int) bool {
	if f.name != name {
		return f.name < name
	}
	return f.index < index
}

// registry keeps custom fields sorted by (name, index). Order is established
// at insertion and never re-sorted.
type registry struct {
	fields []*CustomField
}

func (r *registry) insert(f *CustomField) {
	i := sort.Search(len(r.fields), func(i int) bool {
		return !r.fields[i].before(f.name, f.index)
	})
	r.fields = slices.Insert(r.fields, i, f)
}

func (r *registry) len() int { return len(r.fields) }

// candidates returns the position of the first field registered for name,
// or -1.
func (r *registry) candidates(name string) int {
	i := sort.Search(len(r.fields), func(i int) bool {
		return r.fields[i].name >= name
	})
	if i < len(r.fields) && r.fields[i].name == name {
		return i
	}
	return -1
}

// stage writes term into every candidate registered at termIndex.
func (r *registry) stage(cursor int, termIndex int, term string) {
	if cursor < 0 {
		return
	}
	name := r.fields[cursor].name
	for _, f := range r.fields[cursor:] {
		if f.name != name || f.index > termIndex {
			return
		}
		if f.index == termIndex {
			f.set(term)
		}
	}
}

// matching returns the fields that share the candidate's sentence name.
func (r *registry) matching(cursor int) []*CustomField {
	if cursor < 0 {
		return nil
	}
	name := r.fields[cursor].name
	end := cursor
	for end < len(r.fields) && r.fields[end].name == name {
		end++
	}
	return r.fields[cursor:end]
}
