package profile

import "sort"

// Profile is the merged, flat view of a borrower's attributes.
type Profile struct {
	values map[FieldName]Value
}

// New returns an empty profile.
func New() *Profile {
	return &Profile{values: make(map[FieldName]Value)}
}

// SetIfAbsent stores v under name unless the name is already present.
// It reports whether the value was stored.
func (p *Profile) SetIfAbsent(name FieldName, v Value) bool {
	if _, ok := p.values[name]; ok {
		return false
	}
	p.values[name] = v
	return true
}

// Set stores v under name, replacing any existing value.
func (p *Profile) Set(name FieldName, v Value) {
	p.values[name] = v
}

// Get looks up a raw field name after normalizing it.
func (p *Profile) Get(field string) (Value, bool) {
	return p.Lookup(NormalizeFieldName(field))
}

// Lookup returns the value stored under a canonical name.
func (p *Profile) Lookup(name FieldName) (Value, bool) {
	if p == nil {
		return Null(), false
	}
	v, ok := p.values[name]
	return v, ok
}

// Len returns the number of fields.
func (p *Profile) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// Fields returns the field names in sorted order.
func (p *Profile) Fields() []FieldName {
	if p == nil {
		return nil
	}
	names := make([]FieldName, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Map renders the profile as plain strings, for logging and debugging.
func (p *Profile) Map() map[string]string {
	out := make(map[string]string, p.Len())
	for _, name := range p.Fields() {
		out[string(name)] = p.values[name].String()
	}
	return out
}
