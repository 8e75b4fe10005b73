package service

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/AggarwalShourya/Smart-Provider-Credentialing-Analytics-Platform/internal/domain"
)

// DuplicateDetector finds likely duplicate providers by fuzzy name comparison
// restricted to records that share a blocking key.
type DuplicateDetector struct {
	logger     *logrus.Logger
	thresholds domain.Thresholds
	workers    int
}

// NewDuplicateDetector creates a new duplicate detector
func NewDuplicateDetector(logger *logrus.Logger, thresholds domain.Thresholds, workers int) *DuplicateDetector {
	if workers <= 0 {
		workers = 1
	}
	return &DuplicateDetector{
		logger:     logger,
		thresholds: thresholds,
		workers:    workers,
	}
}

// BlockKey returns the blocking key for a record and false when the record
// has too little name to be compared.
func (d *DuplicateDetector) BlockKey(rec *domain.RosterRecord) (string, bool) {
	letters := lettersOnly(FoldName(rec.FullName))
	if len(letters) == 0 || len(letters) < d.thresholds.BlockKeyLenMin {
		return "", false
	}
	if len(letters) > d.thresholds.BlockKeyLen {
		letters = letters[:d.thresholds.BlockKeyLen]
	}
	key := string(letters)
	if d.thresholds.BlockByState {
		key += "|" + strings.ToUpper(strings.TrimSpace(rec.AddressState))
	}
	return key, true
}

// Similarity returns the 0-100 edit-distance ratio between two folded names.
func Similarity(a, b string) float64 {
	if a == b {
		return 100
	}
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(dist)/float64(longest))
}

// Detect returns the qualifying pairs sorted by (IndexA, IndexB) and a
// duplicate flag per record. Blocks are compared in parallel; each block
// writes only to its own result slot. Detection always runs to completion.
func (d *DuplicateDetector) Detect(records []domain.RosterRecord) ([]domain.DuplicatePair, []bool) {
	names := make([]string, len(records))
	blocks := make(map[string][]int)
	for i := range records {
		key, ok := d.BlockKey(&records[i])
		if !ok {
			continue
		}
		names[i] = FoldName(records[i].FullName)
		blocks[key] = append(blocks[key], i)
	}

	keys := make([]string, 0, len(blocks))
	for key, members := range blocks {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	found := make([][]domain.DuplicatePair, len(keys))
	var g errgroup.Group
	g.SetLimit(d.workers)
	for slot, key := range keys {
		members := blocks[key]
		g.Go(func() error {
			found[slot] = d.compareBlock(members, names)
			return nil
		})
	}
	_ = g.Wait()

	var pairs []domain.DuplicatePair
	comparisons := 0
	for slot, key := range keys {
		n := len(blocks[key])
		comparisons += n * (n - 1) / 2
		pairs = append(pairs, found[slot]...)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].IndexA != pairs[j].IndexA {
			return pairs[i].IndexA < pairs[j].IndexA
		}
		return pairs[i].IndexB < pairs[j].IndexB
	})

	flags := make([]bool, len(records))
	for _, p := range pairs {
		flags[p.IndexA] = true
		flags[p.IndexB] = true
	}

	d.logger.WithFields(logrus.Fields{
		"records":     len(records),
		"blocks":      len(blocks),
		"comparisons": comparisons,
		"pairs":       len(pairs),
	}).Info("Completed duplicate detection")

	return pairs, flags
}

// compareBlock compares every pair inside one block. Members are in
// ascending index order, so IndexA < IndexB holds for every emitted pair.
func (d *DuplicateDetector) compareBlock(members []int, names []string) []domain.DuplicatePair {
	var pairs []domain.DuplicatePair
	for x := 0; x < len(members); x++ {
		for y := x + 1; y < len(members); y++ {
			a, b := members[x], members[y]
			score := Similarity(names[a], names[b])
			if score >= d.thresholds.NameSimilarityMin {
				pairs = append(pairs, domain.DuplicatePair{IndexA: a, IndexB: b, Similarity: score})
			}
		}
	}
	return pairs
}
