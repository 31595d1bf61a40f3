// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package suppress

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/chmodshubham/liboqs-installation/analyzer"
)

// Catalog holds one algorithm family's suppression entry definitions and
// the per-variant passes/issues lists referencing them. Catalogs are
// read-only for the duration of a run.
type Catalog struct {
	// Family is the algorithm family the catalog covers.
	Family string

	entries  map[string]*Entry
	variants map[string]*variantSets
}

type variantSets struct {
	passes []string
	issues []string
}

// TOML file shapes. One file per algorithm family.
type catalogFile struct {
	Family      string                  `toml:"family,omitempty"`
	Suppression []entryDef              `toml:"suppression"`
	Variants    map[string]variantLists `toml:"variants,omitempty"`
}

type entryDef struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Category    string   `toml:"category"`
	Stack       []string `toml:"stack"`
}

type variantLists struct {
	Passes []string `toml:"passes"`
	Issues []string `toml:"issues"`
}

// LoadCatalog parses and validates one family catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("suppress: failed to read catalog: %v", err)
	}
	c, err := parseCatalog(b)
	if err != nil {
		return nil, fmt.Errorf("suppress: %s: %v", filepath.Base(path), err)
	}
	return c, nil
}

func parseCatalog(b []byte) (*Catalog, error) {
	var f catalogFile
	if err := toml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("malformed catalog: %v", err)
	}
	if f.Family == "" {
		return nil, fmt.Errorf("catalog is missing the family name")
	}

	c := &Catalog{
		Family:   f.Family,
		entries:  make(map[string]*Entry),
		variants: make(map[string]*variantSets),
	}

	for _, def := range f.Suppression {
		if def.Name == "" {
			return nil, fmt.Errorf("suppression entry without a name")
		}
		if _, dup := c.entries[def.Name]; dup {
			return nil, fmt.Errorf("duplicate suppression entry '%s'", def.Name)
		}
		switch def.Category {
		case "", analyzer.CategoryBranch, analyzer.CategoryAddress:
		default:
			return nil, fmt.Errorf("entry '%s': unknown category '%s'", def.Name, def.Category)
		}
		if len(def.Stack) == 0 {
			return nil, fmt.Errorf("entry '%s': empty stack pattern", def.Name)
		}
		e := &Entry{
			Name:        def.Name,
			Description: def.Description,
			Category:    def.Category,
		}
		for _, s := range def.Stack {
			p, err := ParseFramePattern(s)
			if err != nil {
				return nil, fmt.Errorf("entry '%s': %v", def.Name, err)
			}
			e.Stack = append(e.Stack, p)
		}
		c.entries[def.Name] = e
	}

	for variant, lists := range f.Variants {
		seen := make(map[string]bool)
		for _, set := range [][]string{lists.Passes, lists.Issues} {
			for _, name := range set {
				if _, ok := c.entries[name]; !ok {
					return nil, fmt.Errorf("variant '%s' references undefined entry '%s'", variant, name)
				}
				if seen[name] {
					return nil, fmt.Errorf("variant '%s': entry '%s' appears in both passes and issues", variant, name)
				}
				seen[name] = true
			}
		}
		c.variants[variant] = &variantSets{
			passes: lists.Passes,
			issues: lists.Issues,
		}
	}

	return c, nil
}

// Selected is a suppression entry tagged with the catalog set it came
// from, so classification can distinguish which category matched.
type Selected struct {
	Entry *Entry
	Tag   Tag
}

// SelectFor returns the variant's suppression entries in classification
// order. Both tags are returned because the raw analyzer silences both
// categories equally; the tag is consumed during classification.
//
// Ordering is the tie-break contract: the passes list in its declared
// order, then the issues list in its declared order. A finding matching
// multiple entries is attributed to the first in this sequence, so
// catalogs must declare more specific entries before more general ones.
func (c *Catalog) SelectFor(variant string) []Selected {
	vs, ok := c.variants[variant]
	if !ok {
		// No catalog entry: the variant is required to produce zero
		// findings.
		return nil
	}
	sel := make([]Selected, 0, len(vs.passes)+len(vs.issues))
	for _, name := range vs.passes {
		sel = append(sel, Selected{Entry: c.entries[name], Tag: TagAcceptable})
	}
	for _, name := range vs.issues {
		sel = append(sel, Selected{Entry: c.entries[name], Tag: TagProblematic})
	}
	return sel
}

// Variants returns the variant names the catalog covers, sorted.
func (c *Catalog) Variants() []string {
	out := make([]string, 0, len(c.variants))
	for v := range c.variants {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
