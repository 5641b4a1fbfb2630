// Command verify_audit re-checks the hash chain of one or more audit
// subjects straight from the database.
//
//	go run ./cmd/verify_audit <subject-id> [subject-id...]
package main

import (
	"context"
	"fmt"
	"os"

	"contract-review-be/internal/config"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/repository/implementation"
	"contract-review-be/pkg/auditchain"
	"contract-review-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

func main() {
	if len(os.Args) < 2 {
		color.Yellow("usage: verify_audit <subject-id> [subject-id...]")
		os.Exit(2)
	}

	cfg := config.Load()
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, false)
	if err != nil {
		color.Red("Failed to connect: %v", err)
		os.Exit(1)
	}
	repo := implementation.NewAuditEventRepository(db)

	failed := false
	for _, arg := range os.Args[1:] {
		subjectId, err := uuid.Parse(arg)
		if err != nil {
			color.Red("%s: not a uuid", arg)
			failed = true
			continue
		}

		rows, err := repo.FindBySubject(context.Background(), subjectId)
		if err != nil {
			color.Red("%s: %v", subjectId, err)
			failed = true
			continue
		}

		events := make([]entity.AuditEvent, 0, len(rows))
		for _, e := range rows {
			events = append(events, *e)
		}
		if err := auditchain.Verify(events); err != nil {
			color.Red("✗ %s: %v", subjectId, err)
			failed = true
			continue
		}

		color.Green("✓ %s: %d events", subjectId, len(events))
		for _, e := range events {
			fmt.Printf("  %3d  %s  %-32s %s\n", e.Sequence, e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Hash[:12])
		}
	}

	if failed {
		os.Exit(1)
	}
}
