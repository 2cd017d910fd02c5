package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed catalog.cue
var builtinCatalog []byte

// Default loads the embedded catalog. The embedded source is part of the
// build, so a failure here is a programming error.
func Default() *Catalog {
	c, err := parse(builtinCatalog, "catalog.cue")
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog invalid: %v", err))
	}
	return c
}

// LoadFile loads a catalog from an external CUE file, for deployments
// that override the built-in rich types.
func LoadFile(path string) (*Catalog, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	c, err := parse(src, path)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return c, nil
}

func parse(src []byte, filename string) (*Catalog, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(src, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compiling: %w", err)
	}
	if err := val.Validate(cue.Concrete(false)); err != nil {
		return nil, fmt.Errorf("validating: %w", err)
	}

	types := val.LookupPath(cue.ParsePath("types"))
	if err := types.Err(); err != nil {
		return nil, fmt.Errorf("missing types list: %w", err)
	}

	var entries []Entry
	if err := types.Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding types: %w", err)
	}
	for i, e := range entries {
		if e.ID == "" && e.DisplayName == "" {
			return nil, fmt.Errorf("entry %d has neither id nor display_name", i)
		}
	}
	return New(entries), nil
}
