package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Strategy is the closed set of document rewrite modes.
type Strategy int

const (
	StrategyLossless Strategy = iota
	StrategyRemoveImages
	StrategyRemoveDuplication
)

// Selector literals accepted from callers.
const (
	selectorLossless          = "lossless compression"
	selectorRemoveImages      = "remove images"
	selectorRemoveDuplication = "remove duplication"
)

// ParseStrategy maps a caller-supplied selector to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case selectorLossless:
		return StrategyLossless, nil
	case selectorRemoveImages:
		return StrategyRemoveImages, nil
	case selectorRemoveDuplication:
		return StrategyRemoveDuplication, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedStrategy, s)
	}
}

func (s Strategy) String() string {
	switch s {
	case StrategyLossless:
		return selectorLossless
	case StrategyRemoveImages:
		return selectorRemoveImages
	case StrategyRemoveDuplication:
		return selectorRemoveDuplication
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Rewriter decodes a PDF and re-encodes it under one of the three
// strategies. It holds no state between calls.
type Rewriter struct{}

func NewRewriter() *Rewriter {
	return &Rewriter{}
}

// Rewrite applies strategy to doc and returns the rewritten document bytes.
// The input is never modified; a failure returns no partial output.
func (r *Rewriter) Rewrite(ctx context.Context, doc []byte, strategy Strategy) ([]byte, error) {
	if len(doc) == 0 {
		return nil, ErrNoFileProvided
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch strategy {
	case StrategyLossless:
		return r.recompress(doc)
	case StrategyRemoveImages:
		return r.removeImages(doc)
	case StrategyRemoveDuplication:
		return r.rewriteUnchanged(doc)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedStrategy, strategy)
	}
}

// recompress re-encodes the document with pdfcpu's optimizer: content
// streams are flate-recompressed and unused objects dropped, while the
// rendered output stays identical.
func (r *Rewriter) recompress(doc []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(doc), &out, newConfiguration()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	return out.Bytes(), nil
}

// rewriteUnchanged decodes and re-encodes the page sequence and metadata
// without structural change. The "remove duplication" selector keeps this
// pass-through contract on purpose; no duplicate detection happens here.
func (r *Rewriter) rewriteUnchanged(doc []byte) ([]byte, error) {
	conf := newConfiguration()
	pdfCtx, err := api.ReadContext(bytes.NewReader(doc), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if err := api.ValidateContext(pdfCtx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	var out bytes.Buffer
	if err := api.WriteContext(pdfCtx, &out); err != nil {
		return nil, fmt.Errorf("failed to re-encode document: %w", err)
	}
	return out.Bytes(), nil
}

// removeImages strips every image XObject from every page while keeping
// text and vector content. Page count is preserved.
func (r *Rewriter) removeImages(doc []byte) ([]byte, error) {
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(doc), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}
	if err := pdfCtx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := stripPageImages(pdfCtx, pageNr); err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNr, err)
		}
	}

	var out bytes.Buffer
	if err := api.WriteContext(pdfCtx, &out); err != nil {
		return nil, fmt.Errorf("failed to re-encode document: %w", err)
	}
	return out.Bytes(), nil
}

// stripPageImages deletes the image entries from one page's XObject
// resources and removes the matching Do invocations from its content
// stream.
func stripPageImages(pdfCtx *model.Context, pageNr int) error {
	pageDict, _, inh, err := pdfCtx.PageDict(pageNr, false)
	if err != nil {
		return err
	}
	if pageDict == nil {
		return nil
	}

	resources, err := pageResources(pdfCtx, pageDict, inh)
	if err != nil || resources == nil {
		return err
	}

	xObjectEntry, found := resources.Find("XObject")
	if !found {
		return nil
	}
	xObjects, err := pdfCtx.DereferenceDict(xObjectEntry)
	if err != nil || xObjects == nil {
		return err
	}

	names := imageXObjectNames(pdfCtx, xObjects)
	if len(names) == 0 {
		return nil
	}
	for _, name := range names {
		xObjects.Delete(name)
	}

	content, err := pdfCtx.PageContent(pageDict)
	if err != nil {
		if errors.Is(err, model.ErrNoContent) {
			return nil
		}
		return err
	}

	streamDict, err := pdfCtx.NewStreamDictForBuf(stripDrawOps(content, names))
	if err != nil {
		return err
	}
	if err := streamDict.Encode(); err != nil {
		return err
	}
	indRef, err := pdfCtx.IndRefForNewObject(*streamDict)
	if err != nil {
		return err
	}
	pageDict["Contents"] = *indRef
	return nil
}

// pageResources resolves a page's resource dict, falling back to inherited
// attributes when the page carries none of its own.
func pageResources(pdfCtx *model.Context, pageDict types.Dict, inh *model.InheritedPageAttrs) (types.Dict, error) {
	if obj, found := pageDict.Find("Resources"); found {
		return pdfCtx.DereferenceDict(obj)
	}
	if inh != nil {
		return inh.Resources, nil
	}
	return nil, nil
}

// imageXObjectNames lists the resource names of every image XObject in d.
func imageXObjectNames(pdfCtx *model.Context, d types.Dict) []string {
	var names []string
	for name, entry := range d {
		obj, err := pdfCtx.Dereference(entry)
		if err != nil {
			continue
		}
		sd, ok := obj.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Dict.Find("Subtype"); found {
			if n, ok := subtype.(types.Name); ok && n.Value() == "Image" {
				names = append(names, name)
			}
		}
	}
	return names
}

// stripDrawOps removes "/<name> Do" invocations for the given XObject names
// from a decoded content stream.
func stripDrawOps(content []byte, names []string) []byte {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = regexp.QuoteMeta(name)
	}
	re := regexp.MustCompile(`/(?:` + strings.Join(quoted, "|") + `)\s+Do\b`)
	return re.ReplaceAll(content, nil)
}
