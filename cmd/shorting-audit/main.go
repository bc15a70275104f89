package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"textile-erp/internal/config"
	"textile-erp/internal/database"
	"textile-erp/internal/logger"
	"textile-erp/internal/model"
	"textile-erp/internal/repository"
)

const (
	fixNone        = ""
	fixRejectTotal = "reject-total"
	fixRejected    = "rejected"
)

// finding is one shorting entry whose buckets do not add up to its total
type finding struct {
	Entry    model.ShortingEntry
	Buckets  int
	Proposed *model.ShortingEntry // nil when the chosen fix cannot repair the entry
}

// audit returns every unbalanced entry and, for fix, the corrected copy.
//
// reject-total sets total_pieces to good + damaged + rejected.
// rejected keeps the total and puts the difference into rejected_pieces, which only works
// while good + damaged still fit inside the total.
func audit(entries []model.ShortingEntry, fix string) []finding {
	var out []finding
	for _, e := range entries {
		if e.Balanced() {
			continue
		}
		f := finding{Entry: e, Buckets: e.GoodPieces + e.DamagedPieces + e.RejectedPieces}
		switch fix {
		case fixRejectTotal:
			fixed := e
			fixed.TotalPieces = f.Buckets
			f.Proposed = &fixed
		case fixRejected:
			if rest := e.TotalPieces - e.GoodPieces - e.DamagedPieces; rest >= 0 {
				fixed := e
				fixed.RejectedPieces = rest
				f.Proposed = &fixed
			}
		}
		out = append(out, f)
	}
	return out
}

func main() {
	fix := flag.String("fix", fixNone, "Optional: repair unbalanced entries. reject-total recomputes total_pieces from the buckets, rejected moves the difference into rejected_pieces.")
	dryRun := flag.Bool("dry-run", false, "Print the proposed fixes without writing them")
	flag.Parse()

	*fix = strings.TrimSpace(*fix)
	if *fix != fixNone && *fix != fixRejectTotal && *fix != fixRejected {
		fmt.Fprintf(os.Stderr, "unknown -fix %q (want %s or %s)\n", *fix, fixRejectTotal, fixRejected)
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	db, err := database.NewConnection(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	entryRepo := repository.NewShortingEntryRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	entries, _, err := entryRepo.List(ctx, repository.ListFilter{SortBy: "entryDate", SortOrder: "asc"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to list shorting entries: %v\n", err)
		os.Exit(1)
	}

	findings := audit(entries, *fix)
	fmt.Printf("checked %d shorting entries, %d unbalanced\n", len(entries), len(findings))

	fixed, skipped := 0, 0
	for _, f := range findings {
		e := f.Entry
		fmt.Printf("%s id=%s good=%d damaged=%d rejected=%d sum=%d total=%d\n",
			e.EntryNo, e.ID, e.GoodPieces, e.DamagedPieces, e.RejectedPieces, f.Buckets, e.TotalPieces)

		if *fix == fixNone {
			continue
		}
		if f.Proposed == nil {
			fmt.Printf("  cannot apply %s: good + damaged exceed total\n", *fix)
			skipped++
			continue
		}
		fmt.Printf("  -> total=%d rejected=%d\n", f.Proposed.TotalPieces, f.Proposed.RejectedPieces)
		if *dryRun {
			continue
		}

		proposed := f.Proposed
		err := txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if err := entryRepo.Update(txCtx, proposed); err != nil {
				return err
			}
			details, _ := json.Marshal(map[string]interface{}{
				"fix":             *fix,
				"total_pieces":    []int{e.TotalPieces, proposed.TotalPieces},
				"rejected_pieces": []int{e.RejectedPieces, proposed.RejectedPieces},
			})
			return auditRepo.Log(txCtx, &model.AuditLog{
				Action:     model.ActionUpdateShortingEntry,
				EntityID:   e.ID.String(),
				EntityName: e.EntryNo,
				Details:    string(details),
			})
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "  failed to fix %s: %v\n", e.EntryNo, err)
			skipped++
			continue
		}
		fixed++
	}

	if *fix != fixNone {
		fmt.Printf("fixed %d, skipped %d\n", fixed, skipped)
	}
	if skipped > 0 || (*fix == fixNone && len(findings) > 0) {
		os.Exit(1)
	}
}
