// Package policy holds the table of account types each journal type may
// connect, keyed journal type -> source type -> allowed destination types.
package policy

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/odyssey-erp/ledgerfix/internal/ledger"
)

//go:embed source_dests.yaml
var defaultFile []byte

// Verdict classifies a (journal type, source type, destination type) triple.
type Verdict int

const (
	// Allowed means the triple appears in the table.
	Allowed Verdict = iota
	// UnknownJournalType means the table has no entry for the journal type.
	UnknownJournalType
	// UnexpectedSource means the source type is not listed for the journal type.
	UnexpectedSource
	// UnexpectedDestination means the destination type is not allowed for the source.
	UnexpectedDestination
)

// Violation reports whether the verdict calls for a repair.
func (v Verdict) Violation() bool {
	return v == UnexpectedSource || v == UnexpectedDestination
}

// Expectations is the loaded source/destination table.
type Expectations map[ledger.JournalType]map[ledger.AccountType][]ledger.AccountType

type document struct {
	SourceDests map[string]map[string][]string `yaml:"source_dests"`
}

// Default returns the built-in table.
func Default() Expectations {
	exp, err := Parse(defaultFile)
	if err != nil {
		panic(fmt.Sprintf("policy: embedded table: %v", err))
	}
	return exp
}

// Load reads the table from path, falling back to the built-in one when path
// is empty.
func Load(path string) (Expectations, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document with a top-level source_dests key.
func Parse(raw []byte) (Expectations, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("policy: decode: %w", err)
	}
	if len(doc.SourceDests) == 0 {
		return nil, errors.New("policy: source_dests is empty")
	}
	exp := make(Expectations, len(doc.SourceDests))
	for journalType, sources := range doc.SourceDests {
		if journalType == "" || len(sources) == 0 {
			return nil, fmt.Errorf("policy: journal type %q has no sources", journalType)
		}
		bySource := make(map[ledger.AccountType][]ledger.AccountType, len(sources))
		for source, dests := range sources {
			allowed := make([]ledger.AccountType, 0, len(dests))
			for _, d := range dests {
				allowed = append(allowed, ledger.AccountType(d))
			}
			bySource[ledger.AccountType(source)] = allowed
		}
		exp[ledger.JournalType(journalType)] = bySource
	}
	return exp, nil
}

// Check classifies a triple against the table.
func (e Expectations) Check(journalType ledger.JournalType, source, dest ledger.AccountType) Verdict {
	sources, ok := e[journalType]
	if !ok {
		return UnknownJournalType
	}
	allowed, ok := sources[source]
	if !ok {
		return UnexpectedSource
	}
	if !slices.Contains(allowed, dest) {
		return UnexpectedDestination
	}
	return Allowed
}
