package scan

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/greentic-ai/cards2flow/internal/diag"
	"github.com/greentic-ai/cards2flow/internal/ir"
)

// Result is the outcome of scanning and grouping a cards directory.
type Result struct {
	Groups     []ir.FlowGroup
	CardsTotal int
}

// Scan runs stages 1-4 of the pipeline: load, resolve, extract and group.
// Candidate files are processed concurrently; the returned groups and
// diagnostics are deterministic regardless of scheduling. The error return
// covers infrastructure failures only (missing directory, unreadable tree);
// everything about the input content lands in the collector.
func Scan(ctx context.Context, cfg Config) (*Result, *diag.Collector, error) {
	files, err := listCardFiles(cfg.CardsDir)
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(files)

	results := make([]fileResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = loadFile(cfg, rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("scanning cards: %w", err)
	}

	collector := diag.NewCollector()
	var cards []ir.CardDoc
	for _, res := range results {
		collector.Append(res.diags)
		if res.card != nil {
			cards = append(cards, *res.card)
		}
	}

	if len(cards) == 0 {
		collector.Add(diag.New(diag.IgnoredFile, "", "no card documents found"))
	}

	result := &Result{
		Groups:     group(cards, collector),
		CardsTotal: 0,
	}
	for _, grp := range result.Groups {
		result.CardsTotal += len(grp.Cards)
	}
	return result, collector, nil
}

// group partitions resolved cards by flow name. Cards were already merged in
// relative-path order, so member order within a group is deterministic.
// Duplicate card identities within one flow keep the first-seen card; the
// rest are recorded and, under strict, become fatal at the gate.
func group(cards []ir.CardDoc, collector *diag.Collector) []ir.FlowGroup {
	byFlow := make(map[string][]ir.CardDoc)
	seen := make(map[string]map[string]string) // flow -> card_id -> rel_path

	for _, card := range cards {
		flowSeen := seen[card.FlowName]
		if flowSeen == nil {
			flowSeen = make(map[string]string)
			seen[card.FlowName] = flowSeen
		}
		if existing, ok := flowSeen[card.CardID]; ok {
			collector.Add(diag.New(diag.DuplicateCardID, card.RelPath,
				fmt.Sprintf("duplicate card_id %s in flow %s (first seen in %s)",
					card.CardID, card.FlowName, existing)))
			continue
		}
		flowSeen[card.CardID] = card.RelPath
		byFlow[card.FlowName] = append(byFlow[card.FlowName], card)
	}

	names := make([]string, 0, len(byFlow))
	for name := range byFlow {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]ir.FlowGroup, 0, len(names))
	for _, name := range names {
		members := byFlow[name]
		sort.Slice(members, func(i, j int) bool {
			return members[i].RelPath < members[j].RelPath
		})
		groups = append(groups, ir.FlowGroup{FlowName: name, Cards: members})
	}
	return groups
}

// Summaries derives the per-flow card counts for the run diagnostics.
func Summaries(groups []ir.FlowGroup) []ir.FlowSummary {
	summaries := make([]ir.FlowSummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, ir.FlowSummary{
			FlowName:  g.FlowName,
			CardCount: len(g.Cards),
		})
	}
	return summaries
}
