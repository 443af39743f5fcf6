package writer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/rickgao/quote-collector/internal/database"
	"github.com/rickgao/quote-collector/internal/model"
)

// BatchPreparer is satisfied by driver.Conn.
type BatchPreparer interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
}

// ClickHouseInserter writes quote rows with a native-protocol batch insert.
type ClickHouseInserter struct {
	conn  BatchPreparer
	query string
}

// NewClickHouseInserter creates a ClickHouseInserter.
func NewClickHouseInserter(conn BatchPreparer) *ClickHouseInserter {
	return &ClickHouseInserter{
		conn: conn,
		query: fmt.Sprintf("INSERT INTO %s (%s)",
			database.TableQuoteTicks, strings.Join(database.QuoteTickColumns, ", ")),
	}
}

// Name implements RowInserter.
func (i *ClickHouseInserter) Name() string { return "clickhouse" }

// InsertQuotes implements RowInserter. Absent values are written as NULL.
func (i *ClickHouseInserter) InsertQuotes(ctx context.Context, rows []model.QuoteTick) (int64, error) {
	batch, err := i.conn.PrepareBatch(ctx, i.query)
	if err != nil {
		return 0, fmt.Errorf("%w: prepare batch: %w", model.ErrTransientIO, err)
	}

	for _, r := range rows {
		err := batch.Append(
			time.Unix(0, r.Timestamp).UTC(),
			r.Market,
			r.Exchange,
			r.BidPrice.Ptr(),
			r.AskPrice.Ptr(),
			r.BidSize.Ptr(),
			r.AskSize.Ptr(),
		)
		if err != nil {
			batch.Abort()
			return 0, fmt.Errorf("%w: append row: %w", model.ErrDataFormat, err)
		}
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("%w: send batch: %w", model.ErrTransientIO, err)
	}
	return int64(len(rows)), nil
}

var _ RowInserter = (*ClickHouseInserter)(nil)
