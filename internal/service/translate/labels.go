package translate

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed labels.yaml
var labelsYAML []byte

// LabelTable maps language code to label key to text.
type LabelTable map[string]map[string]string

func loadLabels() (LabelTable, error) {
	var table LabelTable
	if err := yaml.Unmarshal(labelsYAML, &table); err != nil {
		return nil, fmt.Errorf("decode label table: %w", err)
	}
	if _, ok := table["en"]; !ok {
		return nil, fmt.Errorf("label table has no en entry")
	}
	return table, nil
}

// Labels returns the table for lang. Unknown languages get English, and keys
// missing from a translated table are filled from English.
func (t LabelTable) Labels(lang string) map[string]string {
	en := t["en"]
	out := make(map[string]string, len(en))
	for k, v := range en {
		out[k] = v
	}
	for k, v := range t[normalizeLang(lang)] {
		out[k] = v
	}
	return out
}

// Languages lists the codes with a label table, sorted.
func (t LabelTable) Languages() []string {
	langs := make([]string, 0, len(t))
	for lang := range t {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// lookup translates text when it is exactly one of the English labels.
func (t LabelTable) lookup(text, lang string) (string, bool) {
	target, ok := t[lang]
	if !ok {
		return "", false
	}
	for key, label := range t["en"] {
		if strings.EqualFold(label, text) {
			if translated, ok := target[key]; ok {
				return translated, true
			}
		}
	}
	return "", false
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	return lang
}
