// SPDX-FileCopyrightText: Copyright (C) 2025 the ctharness authors
// SPDX-License-Identifier: AGPL-3.0-only

package suppress

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/op/go-logging.v1"

	"github.com/chmodshubham/liboqs-installation/core/log"
	"github.com/chmodshubham/liboqs-installation/core/utils"
)

// Engine is the suppression classification engine: it owns the loaded
// family catalogs, selects the suppression set handed to the analyzer for
// each variant, and interprets analyzer outcomes into verdicts.
type Engine struct {
	log *logging.Logger

	catalogs  map[string]*Catalog // by family
	byVariant map[string]*Catalog

	// requireClean makes previously triaged known issues fail the
	// variant instead of yielding PASS-with-known-issues.
	requireClean bool
}

// NewEngine returns an Engine with no catalogs loaded.
func NewEngine(logBackend *log.Backend, requireClean bool) *Engine {
	return &Engine{
		log:          logBackend.GetLogger("suppress"),
		catalogs:     make(map[string]*Catalog),
		byVariant:    make(map[string]*Catalog),
		requireClean: requireClean,
	}
}

// AddCatalog registers a loaded catalog with the engine.
func (e *Engine) AddCatalog(c *Catalog) error {
	if _, dup := e.catalogs[c.Family]; dup {
		return fmt.Errorf("suppress: duplicate catalog for family '%s'", c.Family)
	}
	e.catalogs[c.Family] = c
	for _, v := range c.Variants() {
		if prev, dup := e.byVariant[v]; dup {
			return fmt.Errorf("suppress: variant '%s' appears in catalogs '%s' and '%s'", v, prev.Family, c.Family)
		}
		e.byVariant[v] = c
	}
	return nil
}

// LoadDirectory loads every .toml family catalog beneath dir. A missing
// directory is not an error; it means every variant must be clean.
func (e *Engine) LoadDirectory(dir string) error {
	if !utils.Exists(dir) {
		e.log.Warningf("suppression directory '%s' does not exist, all variants must be clean", dir)
		return nil
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("suppress: failed to read catalog directory: %v", err)
	}

	names := make([]string, 0, len(ents))
	for _, ent := range ents {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), ".toml") {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		c, err := LoadCatalog(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if err := e.AddCatalog(c); err != nil {
			return err
		}
		e.log.Debugf("loaded catalog '%s' (%d entries, %d variants)", c.Family, len(c.entries), len(c.variants))
	}
	return nil
}

// SelectFor returns the tagged suppression entries for the variant, in
// classification order. Variants absent from every catalog get an empty
// selection and are therefore required to be clean.
func (e *Engine) SelectFor(variant string) []Selected {
	c, ok := e.byVariant[variant]
	if !ok {
		return nil
	}
	return c.SelectFor(variant)
}

// WriteSelection renders the selected entries into a suppression file in
// the analyzer's format and returns its path. An empty selection yields
// no file (empty path), so the analyzer runs unsuppressed.
func (e *Engine) WriteSelection(variant string) (string, error) {
	sel := e.SelectFor(variant)
	if len(sel) == 0 {
		return "", nil
	}

	var out catalogFile
	for _, s := range sel {
		def := entryDef{
			Name:        s.Entry.Name,
			Description: s.Entry.Description,
			Category:    s.Entry.Category,
		}
		for _, p := range s.Entry.Stack {
			def.Stack = append(def.Stack, p.String())
		}
		out.Suppression = append(out.Suppression, def)
	}

	f, err := os.CreateTemp("", "ctharness-suppressions-*.toml")
	if err != nil {
		return "", fmt.Errorf("suppress: failed to create selection file: %v", err)
	}
	enc := toml.NewEncoder(f)
	if err := enc.Encode(&out); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("suppress: failed to encode selection file: %v", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("suppress: failed to write selection file: %v", err)
	}
	return f.Name(), nil
}
