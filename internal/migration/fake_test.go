package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gadgetbot/zitadel-workbench/internal/models"
	"github.com/gadgetbot/zitadel-workbench/internal/platform"
)

type call struct {
	Method string
	Path   string
	Body   map[string]interface{}
}

// fakeZitadel is an in-memory stand-in for the management API: enough of
// project/role/app/grant creation and search to drive export and import.
type fakeZitadel struct {
	mu       sync.Mutex
	seq      int
	projects []models.Resource
	roles    map[string][]models.Resource
	apps     map[string][]models.Resource
	grants   map[string][]models.Resource
	calls    []call
	// failOn answers 500 to creation requests whose path ends with it.
	failOn string
}

func newFakeZitadel(t *testing.T) (*fakeZitadel, *httptest.Server) {
	t.Helper()
	f := &fakeZitadel{
		roles:  make(map[string][]models.Resource),
		apps:   make(map[string][]models.Resource),
		grants: make(map[string][]models.Resource),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /management/v1/projects", f.createProject)
	mux.HandleFunc("POST /management/v1/projects/_search", f.searchProjects)
	mux.HandleFunc("POST /management/v1/projects/{id}/roles", f.createChild(f.roles, "key", "key"))
	mux.HandleFunc("POST /management/v1/projects/{id}/apps/oidc", f.createChild(f.apps, "name", "appId"))
	mux.HandleFunc("POST /management/v1/projects/{id}/grants", f.createChild(f.grants, "grantedOrgId", "grantId"))
	mux.HandleFunc("POST /management/v1/projects/{id}/roles/_search", f.searchChild(f.roles))
	mux.HandleFunc("POST /management/v1/projects/{id}/apps/_search", f.searchChild(f.apps))
	mux.HandleFunc("POST /management/v1/projects/{id}/grants/_search", f.searchChild(f.grants))
	mux.HandleFunc("GET /debug/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /auth/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"id":"me"}}`))
	})

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.calls = append(f.calls, call{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()
		r = r.WithContext(withBody(r.Context(), body))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return f, ts
}

func (f *fakeZitadel) client(ts *httptest.Server) *platform.Client {
	return platform.NewClient(&models.Connection{IssuerURL: ts.URL, Token: "pat-secret"})
}

func (f *fakeZitadel) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

// addProject seeds a project directly.
func (f *fakeZitadel) addProject(id, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.projects = append(f.projects, models.Resource{"id": id, "name": name})
}

// creates returns the non-search POSTs received.
func (f *fakeZitadel) creates() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == http.MethodPost && !strings.HasSuffix(c.Path, "/_search") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeZitadel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeZitadel) projectIDs() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, p := range f.projects {
		out[p["id"].(string)] = true
	}
	return out
}

func (f *fakeZitadel) createProject(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	if f.failOn != "" && strings.HasSuffix(r.URL.Path, f.failOn) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	name, _ := body["name"].(string)
	for _, p := range f.projects {
		if p["name"] == name {
			writeFake(w, http.StatusConflict, map[string]interface{}{"code": 6, "message": "Project already exists"})
			return
		}
	}
	id := f.nextID("tgt")
	f.projects = append(f.projects, models.Resource{"id": id, "name": name})
	writeFake(w, http.StatusOK, map[string]interface{}{"id": id, "details": map[string]interface{}{}})
}

func (f *fakeZitadel) searchProjects(w http.ResponseWriter, r *http.Request) {
	body := bodyFrom(r.Context())
	f.mu.Lock()
	items := append([]models.Resource(nil), f.projects...)
	f.mu.Unlock()

	if queries, ok := body["queries"].([]interface{}); ok && len(queries) > 0 {
		q, _ := queries[0].(map[string]interface{})
		nq, _ := q["nameQuery"].(map[string]interface{})
		var filtered []models.Resource
		for _, p := range items {
			if p["name"] == nq["name"] {
				filtered = append(filtered, p)
			}
		}
		items = filtered
	}
	writePage(w, body, items)
}

func (f *fakeZitadel) createChild(store map[string][]models.Resource, uniqueField, idField string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := bodyFrom(r.Context())
		if f.failOn != "" && strings.HasSuffix(r.URL.Path, f.failOn) {
			http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
			return
		}
		pid := r.PathValue("id")
		f.mu.Lock()
		defer f.mu.Unlock()
		if uniqueField != "" {
			for _, existing := range store[pid] {
				if existing[uniqueField] == body[uniqueField] {
					writeFake(w, http.StatusConflict, map[string]interface{}{"code": 6, "message": "already exists"})
					return
				}
			}
		}
		id := f.nextID(idField)
		item := models.Resource(body).Clone()
		item["id"] = id
		store[pid] = append(store[pid], item)
		writeFake(w, http.StatusOK, map[string]interface{}{idField: id})
	}
}

func (f *fakeZitadel) searchChild(store map[string][]models.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		items := append([]models.Resource(nil), store[r.PathValue("id")]...)
		f.mu.Unlock()
		writePage(w, bodyFrom(r.Context()), items)
	}
}

func writePage(w http.ResponseWriter, body map[string]interface{}, items []models.Resource) {
	offset, limit := 0, platform.PageSize
	if q, ok := body["query"].(map[string]interface{}); ok {
		if v, ok := q["offset"].(float64); ok {
			offset = int(v)
		}
		if v, ok := q["limit"].(float64); ok {
			limit = int(v)
		}
	}
	end := offset + limit
	if offset > len(items) {
		offset = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	writeFake(w, http.StatusOK, map[string]interface{}{
		"details": map[string]interface{}{"totalResult": fmt.Sprint(len(items))},
		"result":  items[offset:end],
	})
}

func writeFake(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// collect returns a logger that appends to lines.
func collect(lines *[]string) func(string) {
	var mu sync.Mutex
	return func(s string) {
		mu.Lock()
		*lines = append(*lines, s)
		mu.Unlock()
	}
}

type bodyKey struct{}

func withBody(ctx context.Context, body map[string]interface{}) context.Context {
	return context.WithValue(ctx, bodyKey{}, body)
}

func bodyFrom(ctx context.Context) map[string]interface{} {
	body, _ := ctx.Value(bodyKey{}).(map[string]interface{})
	if body == nil {
		body = map[string]interface{}{}
	}
	return body
}
