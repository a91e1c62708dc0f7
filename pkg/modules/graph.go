// Package modules resolves which feature modules of a variant to install.
package modules

import (
	"fmt"
	"strings"

	"github.com/huanfeng/apkset-cli/internal/errors"
	"github.com/huanfeng/apkset-cli/pkg/models"
)

// Graph is the dependency graph of the modules of one variant. Nodes keep
// archive order.
type Graph struct {
	order    []string
	deps     map[string][]string
	defaults map[string]bool
}

// NewGraph builds the module graph of v and checks that it is a DAG whose
// edges all point at existing modules, with a base module present.
func NewGraph(v *models.Variant) (*Graph, error) {
	g := &Graph{
		deps:     make(map[string][]string, len(v.ApkSets)),
		defaults: make(map[string]bool, len(v.ApkSets)),
	}
	for _, set := range v.ApkSets {
		if _, dup := g.deps[set.ModuleName]; dup {
			return nil, errors.NewMalformedArchiveError(
				"Module '%s' appears more than once in variant %d.", set.ModuleName, v.Number)
		}
		g.order = append(g.order, set.ModuleName)
		g.deps[set.ModuleName] = set.Dependencies
		g.defaults[set.ModuleName] = set.InstalledByDefault()
	}

	if _, ok := g.deps[models.BaseModule]; !ok {
		return nil, errors.NewMalformedArchiveError("Variant %d has no '%s' module.", v.Number, models.BaseModule)
	}

	for _, name := range g.order {
		for _, dep := range g.deps[name] {
			if _, ok := g.deps[dep]; !ok {
				return nil, errors.NewMalformedArchiveError(
					"Module '%s' depends on unknown module '%s'.", name, dep)
			}
		}
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, errors.NewMalformedArchiveError(
			"Found cyclic dependency between modules: [%s].", strings.Join(cycle, " -> "))
	}
	return g, nil
}

// Modules returns the module names in archive order.
func (g *Graph) Modules() []string {
	return append([]string(nil), g.order...)
}

// Has reports whether the graph contains the module.
func (g *Graph) Has(name string) bool {
	_, ok := g.deps[name]
	return ok
}

// Dependencies returns the direct dependencies of a module.
func (g *Graph) Dependencies(name string) []string {
	return g.deps[name]
}

// findCycle runs a three-colour DFS and returns the first cycle found.
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g.order))
	var stack []string
	var cycle []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		stack = append(stack, node)
		for _, dep := range g.deps[node] {
			switch color[dep] {
			case white:
				if dfs(dep) {
					return true
				}
			case gray:
				for i, n := range stack {
					if n == dep {
						cycle = append(append([]string(nil), stack[i:]...), dep)
						break
					}
				}
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[node] = black
		return false
	}

	for _, n := range g.order {
		if color[n] == white && dfs(n) {
			return cycle
		}
	}
	return nil
}

// Resolve returns the modules to install: base, the requested modules (or
// every module installed by default when none are requested) and their
// transitive dependencies. The result lists base first and then follows
// archive order.
func Resolve(g *Graph, requested []string) ([]string, error) {
	included := map[string]bool{models.BaseModule: true}

	if len(requested) == 0 {
		for _, name := range g.order {
			if g.defaults[name] {
				included[name] = true
			}
		}
	} else {
		for _, name := range requested {
			if !g.Has(name) {
				return nil, errors.Newf(errors.KindUnknownModule, "UNKNOWN_MODULE",
					"The following module does not exist in the archive: '%s'.", name).
					WithContext("module", name).
					WithSuggestion(fmt.Sprintf("Available modules: %s", strings.Join(g.order, ", ")))
			}
			included[name] = true
		}
	}

	queue := make([]string, 0, len(included))
	for _, name := range g.order {
		if included[name] {
			queue = append(queue, name)
		}
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		for _, dep := range g.deps[name] {
			if !included[dep] {
				included[dep] = true
				queue = append(queue, dep)
			}
		}
	}

	resolved := []string{models.BaseModule}
	for _, name := range g.order {
		if name != models.BaseModule && included[name] {
			resolved = append(resolved, name)
		}
	}
	return resolved, nil
}
