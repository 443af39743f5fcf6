package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rickgao/quote-collector/internal/database"
	"github.com/rickgao/quote-collector/internal/model"
)

// CopyFromer is satisfied by *pgxpool.Pool and *pgx.Conn.
type CopyFromer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// TimescaleInserter writes quote rows with the COPY protocol.
type TimescaleInserter struct {
	db CopyFromer
}

// NewTimescaleInserter creates a TimescaleInserter.
func NewTimescaleInserter(db CopyFromer) *TimescaleInserter {
	return &TimescaleInserter{db: db}
}

// Name implements RowInserter.
func (i *TimescaleInserter) Name() string { return "timescale" }

// InsertQuotes implements RowInserter. Absent values are written as NULL.
func (i *TimescaleInserter) InsertQuotes(ctx context.Context, rows []model.QuoteTick) (int64, error) {
	n, err := i.db.CopyFrom(
		ctx,
		pgx.Identifier{database.TableQuoteTicks},
		database.QuoteTickColumns,
		pgx.CopyFromSlice(len(rows), func(j int) ([]any, error) {
			r := rows[j]
			return []any{
				time.Unix(0, r.Timestamp).UTC(),
				r.Market,
				r.Exchange,
				r.BidPrice.Ptr(),
				r.AskPrice.Ptr(),
				r.BidSize.Ptr(),
				r.AskSize.Ptr(),
			}, nil
		}),
	)
	if err != nil {
		return n, fmt.Errorf("%w: copy quote_ticks: %w", model.ErrTransientIO, err)
	}
	return n, nil
}

var _ RowInserter = (*TimescaleInserter)(nil)
