package migration

// ProjectIDMap maps source project ids to target project ids. It belongs to a
// single import run and is threaded through the replay stages explicitly.
type ProjectIDMap struct {
	ids   map[string]string
	order []string
}

// NewProjectIDMap returns an empty map.
func NewProjectIDMap() *ProjectIDMap {
	return &ProjectIDMap{ids: make(map[string]string)}
}

// Set records source -> target. A later Set for the same source replaces the
// target but keeps the original insertion position.
func (m *ProjectIDMap) Set(source, target string) {
	if _, ok := m.ids[source]; !ok {
		m.order = append(m.order, source)
	}
	m.ids[source] = target
}

// Lookup returns the target id for source, if mapped.
func (m *ProjectIDMap) Lookup(source string) (string, bool) {
	target, ok := m.ids[source]
	return target, ok
}

// Has reports whether source has been mapped.
func (m *ProjectIDMap) Has(source string) bool {
	_, ok := m.ids[source]
	return ok
}

// Resolve returns the mapped target id, or source itself when unmapped. The
// second result is false in the unmapped (degraded) case.
func (m *ProjectIDMap) Resolve(source string) (string, bool) {
	if target, ok := m.ids[source]; ok {
		return target, true
	}
	return source, false
}

// Len returns the number of mapped projects.
func (m *ProjectIDMap) Len() int {
	return len(m.ids)
}

// Sources returns the mapped source ids in insertion order.
func (m *ProjectIDMap) Sources() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
