package usecase

import (
	"fmt"
	"io"
	"strings"

	"github.com/productlens/ingest/internal/domain"
)

// WriteReport prints the operator-facing run summary
func WriteReport(w io.Writer, summary *domain.ErrorSummary) error {
	var b strings.Builder

	b.WriteString("\n========== Ingestion Summary ==========\n")
	fmt.Fprintf(&b, "Total processed : %d\n", summary.Total)
	fmt.Fprintf(&b, "Succeeded       : %d\n", summary.Succeeded)
	fmt.Fprintf(&b, "Failed          : %d\n", summary.Failed)

	if len(summary.Groups) > 0 {
		b.WriteString("\nFailures by error class:\n")
		for _, g := range summary.Groups {
			fmt.Fprintf(&b, "  %s x%d\n", g.Class, g.Count)
			fmt.Fprintf(&b, "    %s\n", strings.Join(g.Identifiers, ", "))
		}
	}
	b.WriteString("=======================================\n")

	_, err := io.WriteString(w, b.String())
	return err
}
