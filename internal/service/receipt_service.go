package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-labs/commission-api/internal/models"
	appErrors "github.com/atelier-labs/commission-api/pkg/errors"
	"github.com/atelier-labs/commission-api/pkg/export"
)

type receiptMilestoneStore interface {
	ListByCommission(ctx context.Context, commissionID string) ([]models.Milestone, error)
}

// ReceiptService renders payment receipts for commissions: a PDF statement
// for clients and a CSV queue roster for artists.
type ReceiptService struct {
	queue      *QueueService
	milestones receiptMilestoneStore
	pdf        *export.PDFExporter
	csv        *export.CSVExporter
}

func NewReceiptService(queue *QueueService, milestones receiptMilestoneStore) *ReceiptService {
	return &ReceiptService{
		queue:      queue,
		milestones: milestones,
		pdf:        export.NewPDFExporter(),
		csv:        export.NewCSVExporter(),
	}
}

// CommissionReceiptPDF renders the milestone payment statement for one
// commission. Only the commission's client or artist may request it.
func (s *ReceiptService) CommissionReceiptPDF(ctx context.Context, actorID, commissionID string) ([]byte, error) {
	commission, err := s.queue.GetCommission(ctx, commissionID)
	if err != nil {
		return nil, err
	}
	if commission.ClientID != actorID && commission.ArtistID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "commission belongs to another party")
	}

	milestones, err := s.milestones.ListByCommission(ctx, commissionID)
	if err != nil {
		return nil, err
	}

	var paidTotal float64
	rows := make([]map[string]string, 0, len(milestones))
	for _, m := range milestones {
		if m.PaymentStatus == models.PaymentStatusPaid {
			paidTotal += m.Amount
		}
		rows = append(rows, map[string]string{
			"#":      fmt.Sprintf("%d", m.Number),
			"Title":  m.Title,
			"Amount": fmt.Sprintf("%.2f", m.Amount),
			"Status": string(m.PaymentStatus),
		})
	}

	data := export.Dataset{
		Headers: []string{"#", "Title", "Amount", "Status"},
		Rows:    rows,
	}
	subtitles := []string{
		fmt.Sprintf("Commission %s", commission.ID),
		fmt.Sprintf("Status: %s", commission.Status),
		fmt.Sprintf("Paid to date: %.2f of %.2f", paidTotal, commission.FinalPrice),
		fmt.Sprintf("Generated %s", time.Now().UTC().Format("2006-01-02 15:04 MST")),
	}
	return s.pdf.Render(data, "Commission Receipt", subtitles...)
}

// QueueRosterCSV renders an artist's current queue, active partition first,
// for offline bookkeeping.
func (s *ReceiptService) QueueRosterCSV(ctx context.Context, artistID string) ([]byte, error) {
	snapshot, err := s.queue.Snapshot(ctx, artistID)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(snapshot.Active)+len(snapshot.Waitlist))
	for _, entry := range snapshot.Active {
		rows = append(rows, rosterRow("ACTIVE", entry.Position, entry.CommissionID, entry.ClientID, string(entry.Status), entry.FinalPrice))
	}
	for _, entry := range snapshot.Waitlist {
		rows = append(rows, rosterRow("WAITLISTED", entry.Position, entry.CommissionID, entry.ClientID, string(entry.Status), entry.FinalPrice))
	}

	data := export.Dataset{
		Headers: []string{"Partition", "Position", "Commission", "Client", "Status", "Price"},
		Rows:    rows,
	}
	return s.csv.Render(data)
}

func rosterRow(partition string, position int, commissionID, clientID, status string, price float64) map[string]string {
	return map[string]string{
		"Partition":  partition,
		"Position":   fmt.Sprintf("%d", position),
		"Commission": commissionID,
		"Client":     clientID,
		"Status":     status,
		"Price":      fmt.Sprintf("%.2f", price),
	}
}
