package catalog

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/tagstamp/internal/model"
)

//go:embed schema.cue
var schemaCUE string

// CUEError is a schema or syntax error in a CUE catalog document.
type CUEError struct {
	Message string
	Pos     token.Pos
}

func (e *CUEError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

func (e *CUEError) Unwrap() error {
	return ErrInvalidTemplate
}

// LoadCUE parses a CUE catalog document and validates it against the
// embedded schema. filename is used in error positions only.
func LoadCUE(src []byte, filename string) ([]model.Entry, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	data := ctx.CompileBytes(src, cue.Filename(filename))
	if err := data.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if !data.LookupPath(cue.ParsePath("templates")).Exists() {
		return nil, &CUEError{Message: "templates: field is required", Pos: data.Pos()}
	}

	v := schema.Unify(data)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	iter, err := v.LookupPath(cue.ParsePath("templates")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var doc Document
	for iter.Next() {
		de, err := decodeCUEEntry(iter.Value())
		if err != nil {
			return nil, err
		}
		doc.Templates = append(doc.Templates, de)
	}
	return doc.Entries()
}

func decodeCUEEntry(v cue.Value) (DocumentEntry, error) {
	var de DocumentEntry
	if sep := v.LookupPath(cue.ParsePath("separator")); sep.Exists() {
		de.Separator = true
		return de, nil
	}

	var err error
	if de.ID, err = optString(v, "id"); err != nil {
		return de, err
	}
	if de.Name, err = optString(v, "name"); err != nil {
		return de, err
	}
	if de.Icon, err = optString(v, "icon"); err != nil {
		return de, err
	}
	if de.Tags, err = tagMap(v, "tags"); err != nil {
		return de, err
	}
	if de.CtrlTags, err = tagMap(v, "ctrl_tags"); err != nil {
		return de, err
	}
	if de.ShiftTags, err = tagMap(v, "shift_tags"); err != nil {
		return de, err
	}
	for path, dst := range map[string]*bool{
		"for_ways":          &de.ForWays,
		"for_closed_ways":   &de.ForClosedWays,
		"not_for_nodes":     &de.NotForNodes,
		"only_for_untagged": &de.OnlyForUntagged,
	} {
		f := v.LookupPath(cue.ParsePath(path))
		if !f.Exists() || !f.IsConcrete() {
			continue
		}
		if *dst, err = f.Bool(); err != nil {
			return de, formatCUEError(err)
		}
	}
	return de, nil
}

func optString(v cue.Value, path string) (string, error) {
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() || !f.IsConcrete() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// tagMap reads a struct of strings in declaration order.
func tagMap(v cue.Value, path string) (model.TagMap, error) {
	var m model.TagMap
	f := v.LookupPath(cue.ParsePath(path))
	if !f.Exists() {
		return m, nil
	}
	iter, err := f.Fields()
	if err != nil {
		return m, formatCUEError(err)
	}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return m, formatCUEError(err)
		}
		m.Set(iter.Selector().Unquoted(), s)
	}
	return m, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &CUEError{Message: err.Error()}
	}
	first := errs[0]
	ce := &CUEError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
