package pdf

import (
	"bytes"
	"fmt"

	lpdf "github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"
)

const (
	// Outline trees can be cyclic in damaged files
	maxOutlineDepth   = 64
	maxOutlineEntries = 10000
	maxNameTreeDepth  = 32
)

// openLedongthuc opens data with the ledongthuc/pdf library
func openLedongthuc(data []byte, password string) (r *lpdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to open PDF with ledongthuc: %v", rec)
		}
	}()

	src := bytes.NewReader(data)
	if password == "" {
		r, err = lpdf.NewReader(src, int64(len(data)))
	} else {
		// the callback is asked again until it returns "" or a correct password
		tried := false
		r, err = lpdf.NewReaderEncrypted(src, int64(len(data)), func() string {
			if tried {
				return ""
			}
			tried = true
			return password
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF with ledongthuc: %w", err)
	}
	return r, nil
}

// ledongthucRuns extracts the text runs of page number
func ledongthucRuns(r *lpdf.Reader, number int) (runs []TextRun, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("ledongthuc: page %d: %v", number, rec)
		}
	}()

	if number < 1 || number > r.NumPage() {
		return nil, fmt.Errorf("invalid page number: %d", number)
	}
	page := r.Page(number)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", number)
	}

	content := page.Content()
	glyphs := make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, glyph{
			S:        t.S,
			Font:     t.Font,
			FontSize: t.FontSize,
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
		})
	}

	return mergeGlyphs(glyphs), nil
}

// ledongthucOutline walks /Root/Outlines
func ledongthucOutline(r *lpdf.Reader) (nodes []OutlineNode, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to read outline: %v", rec)
		}
	}()

	root := r.Trailer().Key("Root").Key("Outlines")
	if root.Kind() != lpdf.Dict {
		return nil, nil
	}
	budget := maxOutlineEntries
	return outlineChildren(root, 0, &budget), nil
}

func outlineChildren(entry lpdf.Value, depth int, budget *int) []OutlineNode {
	if depth >= maxOutlineDepth {
		return nil
	}
	var nodes []OutlineNode
	for child := entry.Key("First"); child.Kind() == lpdf.Dict && *budget > 0; child = child.Key("Next") {
		*budget--
		node := OutlineNode{
			Title:       norm.NFC.String(child.Key("Title").Text()),
			Destination: outlineDestination(child),
		}
		node.Children = outlineChildren(child, depth+1, budget)
		nodes = append(nodes, node)
	}
	return nodes
}

// outlineDestination reads /Dest, or the /D of a GoTo action
func outlineDestination(entry lpdf.Value) Destination {
	d := entry.Key("Dest")
	if d.IsNull() {
		action := entry.Key("A")
		if action.Key("S").Name() == "GoTo" {
			d = action.Key("D")
		}
	}
	return parseDestination(d)
}

func parseDestination(v lpdf.Value) Destination {
	switch v.Kind() {
	case lpdf.Name:
		return Destination{Name: v.Name()}
	case lpdf.String:
		return Destination{Name: v.RawString()}
	case lpdf.Array:
		if dest, ok := explicitDestination(v); ok {
			return Destination{Explicit: &dest}
		}
	case lpdf.Dict:
		// destination dictionaries wrap the array in /D
		return parseDestination(v.Key("D"))
	}
	return Destination{}
}

// explicitDestination reads [page /XYZ ...]. Local destinations reference a
// page dictionary; remote ones carry a page index.
func explicitDestination(v lpdf.Value) (ExplicitDest, bool) {
	if v.Len() == 0 {
		return ExplicitDest{}, false
	}
	target := v.Index(0)
	switch target.Kind() {
	case lpdf.Dict:
		return ExplicitDest{Ref: pageRefOf(target)}, true
	case lpdf.Integer:
		return ExplicitDest{PageIndex: int(target.Int64())}, true
	}
	return ExplicitDest{}, false
}

// pageRefOf keys a page dictionary by its serialized form, which carries
// the indirect references unique to that page
func pageRefOf(v lpdf.Value) PageRef {
	return PageRef(v.String())
}

// ledongthucNamedDest resolves name through /Root/Dests or the /Dests name tree
func ledongthucNamedDest(r *lpdf.Reader, name string) (dest *ExplicitDest, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to resolve destination %q: %v", name, rec)
		}
	}()

	root := r.Trailer().Key("Root")

	v := root.Key("Dests").Key(name)
	if v.IsNull() {
		v = lookupNameTree(root.Key("Names").Key("Dests"), name, 0)
	}
	if v.IsNull() {
		return nil, nil
	}

	d := parseDestination(v)
	if d.Explicit == nil {
		return nil, nil
	}
	return d.Explicit, nil
}

func lookupNameTree(node lpdf.Value, name string, depth int) lpdf.Value {
	if depth > maxNameTreeDepth || node.Kind() != lpdf.Dict {
		return lpdf.Value{}
	}

	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		if names.Index(i).RawString() == name {
			return names.Index(i + 1)
		}
	}

	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		kid := kids.Index(i)
		limits := kid.Key("Limits")
		if limits.Len() == 2 {
			if name < limits.Index(0).RawString() || name > limits.Index(1).RawString() {
				continue
			}
		}
		if v := lookupNameTree(kid, name, depth+1); !v.IsNull() {
			return v
		}
	}
	return lpdf.Value{}
}

// ledongthucPageRefs indexes every page dictionary by its PageRef
func ledongthucPageRefs(r *lpdf.Reader) (refs map[PageRef]int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to index page tree: %v", rec)
		}
	}()

	refs = make(map[PageRef]int, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		ref := pageRefOf(r.Page(i).V)
		if _, dup := refs[ref]; !dup {
			refs[ref] = i - 1
		}
	}
	return refs, nil
}
