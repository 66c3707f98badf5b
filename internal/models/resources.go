package models

// Resource is a passthrough Zitadel API object (project, app, role, grant).
// Fields the tooling does not understand are carried through unchanged.
type Resource map[string]interface{}

// Clone returns a shallow copy so callers can strip fields without touching
// the snapshot.
func (r Resource) Clone() Resource {
	out := make(Resource, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a copy of r with the given keys removed.
func (r Resource) Without(keys ...string) Resource {
	out := r.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
