package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/ukydev/logistics-tracker/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func (s *MongoStore) FetchInvoices(ctx context.Context, orgID string) ([]models.Invoice, error) {
	q := bson.M{}
	if orgID != "" {
		q["orgId"] = orgID
	}
	docs, err := s.findDocs(ctx, CollInvoices, q)
	if err != nil {
		return nil, err
	}
	now := s.now()
	invoices := make([]models.Invoice, 0, len(docs))
	for _, doc := range docs {
		invoices = append(invoices, mapInvoice(doc, now))
	}
	return invoices, nil
}

// UpdateInvoiceStatus moves an invoice forward. Paid invoices get paidAt.
func (s *MongoStore) UpdateInvoiceStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	var doc bson.M
	err := s.coll(CollInvoices).FindOne(ctx, idFilter(id)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%w: invoice %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("find invoice %s: %w", id, err)
	}
	current := mapInvoice(doc, s.now()).Status
	if !current.CanAdvanceTo(status) {
		return fmt.Errorf("%w: %s -> %s", models.ErrInvalidInvoiceTransition, current, status)
	}

	set := bson.M{"status": string(status), "updatedAt": s.stamp()}
	if status == models.InvoicePaid {
		set["paidAt"] = s.stamp()
	}
	return s.updateByID(ctx, CollInvoices, id, set)
}
