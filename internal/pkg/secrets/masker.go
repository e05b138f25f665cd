package secrets

import (
	"sort"
	"strings"
)

// Mask is what secret values are replaced with
const Mask = "***"

// values shorter than this would mask ordinary text
const minMaskLength = 3

// Masker hides secret values in captured output
type Masker struct {
	replacer *strings.Replacer
}

func NewMasker(values ...string) *Masker {
	uniq := map[string]struct{}{}
	for _, v := range values {
		if len(v) >= minMaskLength {
			uniq[v] = struct{}{}
		}
	}
	if len(uniq) == 0 {
		return &Masker{}
	}
	sorted := make([]string, 0, len(uniq))
	for v := range uniq {
		sorted = append(sorted, v)
	}
	// longer values first so a secret containing another is masked whole
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	pairs := make([]string, 0, len(sorted)*2)
	for _, v := range sorted {
		pairs = append(pairs, v, Mask)
	}
	return &Masker{replacer: strings.NewReplacer(pairs...)}
}

// MaskerFor masks every value of m
func MaskerFor(m map[string]string) *Masker {
	values := make([]string, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return NewMasker(values...)
}

func (m *Masker) Mask(s string) string {
	if m == nil || m.replacer == nil {
		return s
	}
	return m.replacer.Replace(s)
}
