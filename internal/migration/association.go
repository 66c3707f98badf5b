package migration

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gadgetbot/zitadel-workbench/internal/models"
)

// Rule associates applications whose name matches Keyword with the project
// named Project. Keyword is a case-insensitive substring, or a glob pattern
// when it contains glob metacharacters.
type Rule struct {
	Keyword string `json:"keyword" yaml:"keyword"`
	Project string `json:"project" yaml:"project"`
}

// Matches reports whether the rule applies to an application name.
func (r Rule) Matches(appName string) bool {
	kw := strings.ToLower(strings.TrimSpace(r.Keyword))
	if kw == "" {
		return false
	}
	name := strings.ToLower(appName)
	if strings.ContainsAny(kw, "*?[{") {
		ok, err := doublestar.Match(kw, name)
		return err == nil && ok
	}
	return strings.Contains(name, kw)
}

// Strategy names how an application was associated with its project.
type Strategy string

const (
	StrategyClientIDSuffix Strategy = "client_id_suffix"
	StrategyProjectID      Strategy = "project_id"
	StrategyNameRule       Strategy = "name_rule"
)

// associator finds the source project an application belongs to.
type associator struct {
	byName map[string]string // lowercased name or slug -> source project id
	known  func(sourceProjectID string) bool
	rules  []Rule
}

// newAssociator indexes projects by name. known reports whether a source
// project id can be resolved to a target (normally ProjectIDMap.Has).
func newAssociator(projects []models.Resource, rules []Rule, known func(string) bool) *associator {
	a := &associator{
		byName: make(map[string]string),
		known:  known,
		rules:  rules,
	}
	for _, p := range projects {
		id := resourceID(p)
		name := resourceName(p)
		if id == "" || name == "" {
			continue
		}
		for _, k := range []string{strings.ToLower(name), slugify(name)} {
			if _, dup := a.byName[k]; !dup {
				a.byName[k] = id
			}
		}
	}
	return a
}

// associate returns the source project id for app, trying in order: the
// client id's @project suffix, the recorded projectId, then name rules.
func (a *associator) associate(app models.Resource) (string, Strategy, bool) {
	if slug, ok := clientIDSuffix(clientID(app)); ok {
		if id, ok := a.projectByName(slug); ok {
			return id, StrategyClientIDSuffix, true
		}
	}

	if id := projectRef(app); id != "" && a.known(id) {
		return id, StrategyProjectID, true
	}

	name := resourceName(app)
	for _, rule := range a.rules {
		if !rule.Matches(name) {
			continue
		}
		if id, ok := a.projectByName(rule.Project); ok {
			return id, StrategyNameRule, true
		}
	}
	return "", "", false
}

func (a *associator) projectByName(name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	id, ok := a.byName[key]
	if !ok {
		id, ok = a.byName[slugify(name)]
	}
	if !ok || !a.known(id) {
		return "", false
	}
	return id, true
}

// clientIDSuffix returns the part after the last "@" of a single-tenant
// client id ("<opaque>@<project-slug>").
func clientIDSuffix(id string) (string, bool) {
	i := strings.LastIndex(id, "@")
	if i < 0 || i == len(id)-1 {
		return "", false
	}
	return id[i+1:], true
}

// slugify lowercases and joins words with dashes: "GadgetBot Web" -> "gadgetbot-web".
func slugify(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return r == ' ' || r == '_' || r == '-' || r == '.'
	})
	return strings.Join(fields, "-")
}
