// Package risk scores a state's situation into an advisory severity.
package risk

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"

	"github.com/crowdshield/dashboard/backend/internal/model/geo"
)

// Severity levels, lowest first.
const (
	Low      = geo.RiskLow
	Medium   = geo.RiskMedium
	High     = geo.RiskHigh
	Critical = geo.RiskCritical
)

// Signals are the inputs of one assessment.
type Signals struct {
	Weather     geo.Weather
	People      int
	HazardRisks []string
	Notes       []string
}

// Decision is the assessed severity with the drivers that produced it.
type Decision struct {
	Severity string   `json:"severity"`
	Score    int      `json:"score"`
	Drivers  []string `json:"drivers"`
}

type bucket int

const (
	bucketWarning bucket = iota + 1
	bucketCritical
)

var keywordBuckets = map[bucket][]string{
	bucketCritical: {
		"stampede", "crush", "collapse", "collapsed", "explosion", "fire", "drowning", "trapped",
		"landslide", "भगदड़", "आग",
	},
	bucketWarning: {
		"flood", "flooding", "water rising", "smoke", "injured", "injury", "blocked", "panic",
		"overcrowded", "pushing", "fallen tree", "power cut", "बाढ़", "भीड़", "വെള്ളപ്പൊക്കം",
	},
}

var bucketScore = map[bucket]int{
	bucketWarning:  1,
	bucketCritical: 3,
}

// Analyzer matches report notes against the keyword buckets.
type Analyzer struct {
	matcher *goahocorasick.Machine
	buckets map[string]bucket
}

func NewAnalyzer() (*Analyzer, error) {
	a := &Analyzer{buckets: make(map[string]bucket)}
	var patterns [][]rune
	for b, words := range keywordBuckets {
		for _, word := range words {
			norm := normalize(word)
			if len(norm) == 0 {
				continue
			}
			key := string(norm)
			if _, seen := a.buckets[key]; seen {
				continue
			}
			a.buckets[key] = b
			patterns = append(patterns, norm)
		}
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, fmt.Errorf("build keyword matcher: %w", err)
	}
	a.matcher = m
	return a, nil
}

// Keywords returns the distinct keywords found in notes and their summed score.
func (a *Analyzer) Keywords(notes []string) ([]string, int) {
	var found []string
	for _, note := range notes {
		text := normalize(note)
		if len(text) == 0 {
			continue
		}
		for _, term := range a.matcher.MultiPatternSearch(text, false) {
			if !wordBoundary(text, term.Pos, len(term.Word)) {
				continue
			}
			found = append(found, string(term.Word))
		}
	}
	found = lo.Uniq(found)
	sort.Strings(found)

	score := 0
	for _, word := range found {
		score += bucketScore[a.buckets[word]]
	}
	return found, score
}

// Assess scores the signals. Weather, crowd size, hazard zones and report
// keywords each add to the score and name a driver.
func (a *Analyzer) Assess(s Signals) Decision {
	score := 0
	var drivers []string

	switch rain := s.Weather.RainfallMM; {
	case rain >= 100:
		score += 4
		drivers = append(drivers, fmt.Sprintf("Extreme rainfall (%.0f mm)", rain))
	case rain >= 50:
		score += 3
		drivers = append(drivers, fmt.Sprintf("Heavy rainfall (%.0f mm)", rain))
	case rain >= 20:
		score++
		drivers = append(drivers, fmt.Sprintf("Moderate rainfall (%.0f mm)", rain))
	}

	switch wind := s.Weather.WindKPH; {
	case wind >= 60:
		score += 3
		drivers = append(drivers, fmt.Sprintf("Strong winds (%.0f km/h)", wind))
	case wind >= 35:
		score++
		drivers = append(drivers, fmt.Sprintf("Gusty winds (%.0f km/h)", wind))
	}

	switch people := s.People; {
	case people >= 5000:
		score += 4
		drivers = append(drivers, fmt.Sprintf("Very dense crowd (%d people)", people))
	case people >= 1000:
		score += 2
		drivers = append(drivers, fmt.Sprintf("Dense crowd (%d people)", people))
	case people >= 300:
		score++
		drivers = append(drivers, fmt.Sprintf("Growing crowd (%d people)", people))
	}

	if n := len(s.HazardRisks); n > 0 {
		weight := 0.0
		for _, r := range s.HazardRisks {
			weight += geo.RiskWeight(r)
		}
		score += min(4, int(weight+0.5))
		drivers = append(drivers, fmt.Sprintf("%d active hazard zone(s)", n))
	}

	if a != nil {
		if words, kwScore := a.Keywords(s.Notes); len(words) > 0 {
			score += min(6, kwScore)
			drivers = append(drivers, "Reports mention "+strings.Join(words, ", "))
		}
	}

	drivers = lo.Uniq(drivers)
	if len(drivers) == 0 {
		drivers = []string{"No significant drivers"}
	}
	return Decision{Severity: SeverityFor(score), Score: score, Drivers: drivers}
}

// SeverityFor maps a score onto a severity level.
func SeverityFor(score int) string {
	switch {
	case score >= 9:
		return Critical
	case score >= 6:
		return High
	case score >= 3:
		return Medium
	default:
		return Low
	}
}

// normalize lower-cases text and folds punctuation and runs of spaces into a
// single space.
func normalize(text string) []rune {
	out := make([]rune, 0, len(text))
	space := true
	for _, r := range text {
		if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
			if !space {
				out = append(out, ' ')
				space = true
			}
			continue
		}
		out = append(out, unicode.ToLower(r))
		space = false
	}
	if n := len(out); n > 0 && out[n-1] == ' ' {
		out = out[:n-1]
	}
	return out
}

// wordBoundary rejects matches inside a longer Latin word ("fire" in
// "firework").
func wordBoundary(text []rune, pos, length int) bool {
	if pos > 0 && isLatinLetter(text[pos-1]) {
		return false
	}
	end := pos + length
	if end < len(text) && isLatinLetter(text[end]) {
		return false
	}
	return true
}

func isLatinLetter(r rune) bool {
	return r < unicode.MaxLatin1 && unicode.IsLetter(r)
}
