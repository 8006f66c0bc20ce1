package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joao-fontenele/lampslot/internal/domain"
	"github.com/joao-fontenele/lampslot/internal/messaging"
)

const maxCopies = 5

// PrintSpooler renders queued receipts. Without a printer driver the copies
// go to the structured log.
type PrintSpooler struct {
	logger *slog.Logger
}

func NewPrintSpooler(logger *slog.Logger) *PrintSpooler {
	return &PrintSpooler{logger: logger}
}

func (s *PrintSpooler) Handle(ctx context.Context, _ string, payload []byte) error {
	var job domain.PrintJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return messaging.Permanent(fmt.Errorf("unmarshal print job: %w", err))
	}
	if job.Copies < 1 || job.Copies > maxCopies {
		return messaging.Permanent(fmt.Errorf("print job %s asks for %d copies", job.JobID, job.Copies))
	}

	lines := strings.Split(strings.TrimRight(job.Content, "\n"), "\n")
	for copyNo := 1; copyNo <= job.Copies; copyNo++ {
		s.logger.InfoContext(ctx, "printing receipt",
			"job_id", job.JobID,
			"receipt_number", job.ReceiptNumber,
			"printer", job.PrinterName,
			"copy", copyNo,
			"copies", job.Copies,
			"lines", len(lines),
			"requested_by", job.RequestedBy,
		)
		s.logger.DebugContext(ctx, "receipt content", "job_id", job.JobID, "content", job.Content)
	}
	return nil
}
