// Package bankdetect identifies the issuing bank of a statement by matching
// its text against known institution signatures.
package bankdetect

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"sync"

	"hesapp/extractor/internal/logging"
	"hesapp/extractor/internal/models"

	"gopkg.in/yaml.v3"
)

// defaultPatterns maps each supported Turkish institution to the regex
// signatures seen on its statements. All patterns are applied
// case-insensitively.
var defaultPatterns = map[string][]string{
	"Garanti BBVA": {
		`Garanti\s+BBVA`,
		`Garanti\s+Bankası`,
		`GARANTIBBVA`,
		`T\.\s*Garanti`,
	},
	"İş Bankası": {
		`İş\s+Bankası`,
		`Türkiye\s+İş\s+Bankası`,
		`ISBANK`,
		`T\.\s*İş\s*Bankası`,
	},
	"Yapı Kredi": {
		`Yapı\s+Kredi`,
		`Yapı\s+ve\s+Kredi\s+Bankası`,
		`YAPIKREDI`,
		`YKB`,
	},
	"Akbank": {
		`Akbank`,
		`AKBANK`,
		`T\.\s*Akbank`,
	},
	"Ziraat Bankası": {
		`Ziraat\s+Bankası`,
		`T\.\s*C\.\s*Ziraat\s+Bankası`,
		`ZIRAATBANK`,
	},
	"Halkbank": {
		`Halk\s+Bankası`,
		`Halkbank`,
		`T\.\s*C\.\s*Halkbank`,
	},
	"Vakıfbank": {
		`Vakıfbank`,
		`Vakıf\s+Bank`,
		`T\.\s*Vakıflar\s+Bankası`,
	},
	"Denizbank": {
		`Denizbank`,
		`Deniz\s+Bank`,
	},
	"QNB Finansbank": {
		`QNB\s+Finansbank`,
		`Finansbank`,
		`QNB\s+Finans`,
	},
	"TEB": {
		`TEB`,
		`Türk\s+Ekonomi\s+Bankası`,
		`T\.\s*Ekonomi\s+Bankası`,
	},
	"ING Bank": {
		`ING\s+Bank`,
		`ING`,
	},
	"HSBC": {
		`HSBC`,
		`HSBC\s+Bank`,
	},
	"Kuveyt Türk": {
		`Kuveyt\s+Türk`,
		`KuveytTürk`,
	},
	"Albaraka Türk": {
		`Albaraka\s+Türk`,
		`AlbarakaTürk`,
	},
}

type compiledPattern struct {
	source string
	re     *regexp.Regexp
}

// Detector matches statement text against a pattern table. Detection itself
// is a pure function of the input text and the table; the table can be
// extended at runtime with RegisterPatterns.
type Detector struct {
	mu       sync.RWMutex
	patterns map[string][]compiledPattern
	log      logging.Logger
}

// NewDetector creates a detector preloaded with the known institution
// signatures.
func NewDetector(logger logging.Logger) *Detector {
	if logger == nil {
		logger = logging.GetLogger()
	}
	d := &Detector{
		patterns: make(map[string][]compiledPattern),
		log:      logger,
	}
	for bank, patterns := range defaultPatterns {
		// Built-in patterns are known-good; ignore the error path here.
		_ = d.RegisterPatterns(bank, patterns)
	}
	return d
}

// RegisterPatterns adds signatures for a new or existing bank.
func (d *Detector) RegisterPatterns(bank string, patterns []string) error {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return fmt.Errorf("invalid pattern %q for bank %s: %w", p, bank, err)
		}
		compiled = append(compiled, compiledPattern{source: p, re: re})
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.patterns[bank] = append(d.patterns[bank], compiled...)
	return nil
}

// patternFile is the YAML shape for user-supplied signature files.
type patternFile struct {
	Banks map[string][]string `yaml:"banks"`
}

// LoadPatternsFile registers additional signatures from a YAML file mapping
// bank names to pattern lists.
func (d *Detector) LoadPatternsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read bank patterns file: %w", err)
	}
	var pf patternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("could not parse bank patterns file: %w", err)
	}
	for bank, patterns := range pf.Banks {
		if err := d.RegisterPatterns(bank, patterns); err != nil {
			return err
		}
	}
	d.log.WithField(logging.FieldCount, len(pf.Banks)).Info("Loaded bank patterns file")
	return nil
}

// Detect returns the best-matching bank name, or "" when nothing matches.
func (d *Detector) Detect(text string) string {
	return d.DetectWithConfidence(text).Bank
}

// DetectWithConfidence returns the best match together with per-bank match
// counts. Confidence is the top bank's match count divided by the total match
// count across all banks.
func (d *Detector) DetectWithConfidence(text string) models.BankDetection {
	if text == "" {
		return models.BankDetection{}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var matches []models.BankMatch
	for bank, patterns := range d.patterns {
		count := 0
		var matched []string
		for _, p := range patterns {
			if found := p.re.FindAllStringIndex(text, -1); len(found) > 0 {
				count += len(found)
				matched = append(matched, p.source)
			}
		}
		if count > 0 {
			matches = append(matches, models.BankMatch{
				Bank:       bank,
				MatchCount: count,
				Patterns:   matched,
			})
		}
	}

	if len(matches) == 0 {
		d.log.Debug("No bank signature matched statement text")
		return models.BankDetection{}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchCount > matches[j].MatchCount
	})

	total := 0
	for _, m := range matches {
		total += m.MatchCount
	}

	best := matches[0]
	d.log.WithFields(
		logging.Field{Key: logging.FieldBank, Value: best.Bank},
		logging.Field{Key: logging.FieldCount, Value: best.MatchCount},
	).Debug("Detected bank from statement text")

	return models.BankDetection{
		Bank:       best.Bank,
		Confidence: float64(best.MatchCount) / float64(total),
		Matches:    matches,
	}
}

// ListBanks returns the known bank names in sorted order.
func (d *Detector) ListBanks() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	banks := make([]string, 0, len(d.patterns))
	for bank := range d.patterns {
		banks = append(banks, bank)
	}
	sort.Strings(banks)
	return banks
}
