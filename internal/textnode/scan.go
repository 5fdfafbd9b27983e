package textnode

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/htmledit/internal/address"
	"github.com/hyperifyio/htmledit/internal/conditional"
	"github.com/hyperifyio/htmledit/internal/dom"
	"github.com/hyperifyio/htmledit/internal/normalize"
)

// Scanner extracts and patches text nodes. The zero value uses
// conditional.Default for the status block.
type Scanner struct {
	Status conditional.Block
}

// Extract returns the plain refs of doc in document order followed by the
// status refs in vocabulary order.
func Extract(doc string) ([]Ref, error) { return Scanner{}.Extract(doc) }

// Apply applies edits to doc and returns the new document.
func Apply(doc string, edits EditSet) (string, error) { return Scanner{}.Apply(doc, edits) }

// Extract returns the plain refs of doc in document order followed by the
// status refs in vocabulary order.
func (s Scanner) Extract(doc string) ([]Ref, error) {
	d, err := dom.Parse(doc)
	if err != nil {
		return nil, err
	}
	counters := map[groupKey]int{}
	var refs []Ref
	for _, nd := range collect(d.Root()) {
		k := groupKey{nd.tag, nd.class}
		counters[k]++
		refs = append(refs, Ref{
			Address:    address.Text(nd.tag, nd.class, counters[k]).String(),
			Display:    nd.label,
			Kind:       KindPlain,
			Tag:        nd.tag,
			Class:      nd.class,
			Occurrence: counters[k],
			Original:   nd.label,
		})
	}
	branches, err := s.Status.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extract status branches: %w", err)
	}
	return append(refs, statusRefs(s.Status, branches)...), nil
}

// Apply re-parses doc, resolves every TEXT address against the same traversal
// Extract uses and rewrites the matched nodes. Malformed or out of range
// addresses are dropped. STATUS edits are then applied to the intermediate
// result through the status block. doc itself is never modified.
func (s Scanner) Apply(doc string, edits EditSet) (string, error) {
	d, err := dom.Parse(doc)
	if err != nil {
		return "", err
	}
	index := map[groupKey][]node{}
	for _, nd := range collect(d.Root()) {
		k := groupKey{nd.tag, nd.class}
		index[k] = append(index[k], nd)
	}

	status := map[string]string{}
	for key, text := range edits {
		a, err := address.Parse(key)
		if err != nil {
			log.Debug().Err(err).Str("address", key).Msg("dropping edit")
			continue
		}
		if a.Kind == address.KindStatus {
			status[a.Status] = text
			continue
		}
		group := index[groupKey{a.Tag, a.Class}]
		if a.Occurrence > len(group) {
			log.Debug().Str("address", key).Int("candidates", len(group)).Msg("dropping stale edit")
			continue
		}
		clean := normalize.CleanEdit(text)
		if clean == "" {
			log.Debug().Str("address", key).Msg("dropping empty edit")
			continue
		}
		nd := group[a.Occurrence-1]
		dom.SetText(nd.el, nd.patched(clean))
	}

	out, err := d.Render()
	if err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	if len(status) == 0 {
		return out, nil
	}
	return s.Status.Patch(out, status)
}
