package processor

import (
	"context"
	"sort"
	"strings"
	"time"

	"revshare/internal/normalize"
	"revshare/pkg/logger"
	"revshare/pkg/store/mysql/model"

	"github.com/shopspring/decimal"
)

// Processor statuses.
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
)

var (
	hundred  = decimal.NewFromInt(100)
	thousand = decimal.NewFromInt(1000)

	// DefaultShare applies when no share configuration covers a slot/date.
	DefaultShare = decimal.RequireFromString("50.00")
)

// Device-variant buckets. Specific suffixes must be checked before the
// generic ones: "slot_news_desktop" ends in "_desktop" too.
const (
	bucketDesktop     = "desktop"
	bucketMobile      = "mobile"
	bucketNewsDesktop = "news_desktop"
	bucketNewsMobile  = "news_mobile"
	bucketTrueDesktop = "true_desktop"
	bucketTrueMobile  = "true_mobile"
)

var slotVariants = []struct {
	suffix string
	bucket string
}{
	{"_news_desktop", bucketNewsDesktop},
	{"_news_mobile", bucketNewsMobile},
	{"_true_desktop", bucketTrueDesktop},
	{"_true_mobile", bucketTrueMobile},
	{"_desktop", bucketDesktop},
	{"_mobile", bucketMobile},
}

// devicePairs maps the three desktop/mobile pairings to the suffix the
// derived reporting slot carries.
var devicePairs = []struct {
	desktop    string
	mobile     string
	slotSuffix string
}{
	{bucketDesktop, bucketMobile, ""},
	{bucketNewsDesktop, bucketNewsMobile, "_news"},
	{bucketTrueDesktop, bucketTrueMobile, "_true"},
}

// RawSource reads the raw rows for one fetch date.
type RawSource interface {
	ListByDate(ctx context.Context, fetchDate time.Time) ([]*model.RawRevenue, error)
}

// ShareSource resolves the configured share percentage for a slot and date.
type ShareSource interface {
	Lookup(ctx context.Context, slot string, date time.Time) (decimal.Decimal, bool, error)
}

// SummarySink persists per-slot summary rows.
type SummarySink interface {
	Upsert(ctx context.Context, row *model.ProcessedRevenue) error
}

// Processor reduces raw desktop/mobile slot pairs into per-slot daily
// summary rows with share-adjusted revenue.
type Processor struct {
	raws    RawSource
	shares  ShareSource
	summary SummarySink
	now     func() time.Time
}

// NewProcessor creates a slot processor
func NewProcessor(raws RawSource, shares ShareSource, summary SummarySink) *Processor {
	return &Processor{
		raws:    raws,
		shares:  shares,
		summary: summary,
		now:     time.Now,
	}
}

// Summary reports one ProcessRevenueData run.
type Summary struct {
	Status           string `json:"status"`
	FetchDate        string `json:"fetch_date"`
	RecordsProcessed int    `json:"records_processed"`
	SlotsWritten     int    `json:"slots_written"`
}

type groupKey struct {
	baseSlot string
	timeUnit string
}

// splitSlot strips the device-variant suffix off a slot name. The bool is
// false for slots carrying no recognized suffix; those rows take no part
// in pairing.
func splitSlot(slot string) (base, bucket string, ok bool) {
	for _, v := range slotVariants {
		if strings.HasSuffix(slot, v.suffix) && len(slot) > len(v.suffix) {
			return strings.TrimSuffix(slot, v.suffix), v.bucket, true
		}
	}
	return "", "", false
}

// roundedRPM computes revenue / impressions * 1000 at 2 decimal places,
// half-up. Zero impressions yield zero, not an error.
func roundedRPM(revenue, impressions decimal.Decimal) decimal.Decimal {
	if impressions.IsZero() {
		return decimal.Zero
	}
	return revenue.DivRound(impressions, 16).Mul(thousand).Round(2)
}

// ProcessRevenueData reduces the raw rows of one fetch date into summary
// rows. Zero raw rows is a soft no-data outcome, not an error.
func (p *Processor) ProcessRevenueData(ctx context.Context, targetDate time.Time) (*Summary, error) {
	rows, err := p.raws.ListByDate(ctx, targetDate)
	if err != nil {
		return nil, err
	}

	dateText := targetDate.Format("2006-01-02")
	if len(rows) == 0 {
		logger.Infof("process revenue: no raw rows for %s", dateText)
		return &Summary{Status: StatusNoData, FetchDate: dateText}, nil
	}

	// Bucket every row by (base slot, time unit) and device variant.
	// Re-scraped duplicates of one bucket resolve last-write-wins, matching
	// the raw store's own upsert rule.
	groups := make(map[groupKey]map[string]*model.RawRevenue)
	processed := 0
	for _, row := range rows {
		base, bucket, ok := splitSlot(row.Slot)
		if !ok {
			logger.Debugf("process revenue: slot %q has no device suffix, skipped", row.Slot)
			continue
		}
		key := groupKey{baseSlot: base, timeUnit: row.TimeUnit}
		if groups[key] == nil {
			groups[key] = make(map[string]*model.RawRevenue)
		}
		groups[key][bucket] = row
		processed++
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].baseSlot != keys[j].baseSlot {
			return keys[i].baseSlot < keys[j].baseSlot
		}
		return keys[i].timeUnit < keys[j].timeUnit
	})

	written := 0
	for _, key := range keys {
		buckets := groups[key]
		for _, pair := range devicePairs {
			desktop, mobile := buckets[pair.desktop], buckets[pair.mobile]
			if desktop == nil && mobile == nil {
				continue
			}

			impressions := decimal.Zero
			revenue := decimal.Zero
			for _, side := range []*model.RawRevenue{desktop, mobile} {
				if side == nil {
					continue
				}
				impressions = impressions.Add(normalize.ParseAmount(side.TotalPlayerImpr))
				revenue = revenue.Add(normalize.ParseAmount(side.NetRevenueUSD))
			}

			slotName := key.baseSlot + pair.slotSuffix
			share := p.lookupShare(ctx, slotName, targetDate)
			revenue2 := revenue.Mul(share).DivRound(hundred, 16).Round(2)

			summary := &model.ProcessedRevenue{
				Slot:            slotName,
				TimeUnit:        key.timeUnit,
				TotalPlayerImpr: impressions,
				Revenue:         revenue,
				RPM:             roundedRPM(revenue, impressions),
				Share:           share,
				// Impressions are not share-adjusted; only revenue is.
				TotalPlayerImpr2: impressions,
				Revenue2:         revenue2,
				RPM2:             roundedRPM(revenue2, impressions),
				FetchDate:        targetDate,
				ProcessedAt:      p.now(),
			}
			if err := p.summary.Upsert(ctx, summary); err != nil {
				return nil, err
			}
			written++
		}
	}

	logger.Infof("process revenue: %s reduced %d rows into %d summaries", dateText, processed, written)
	return &Summary{
		Status:           StatusSuccess,
		FetchDate:        dateText,
		RecordsProcessed: processed,
		SlotsWritten:     written,
	}, nil
}

// lookupShare resolves the share for a derived slot. Both a missing
// configuration row and a lookup failure fall back to the default.
func (p *Processor) lookupShare(ctx context.Context, slot string, date time.Time) decimal.Decimal {
	share, ok, err := p.shares.Lookup(ctx, slot, date)
	if err != nil {
		logger.Warnf("share lookup failed for slot %q, using default: %v", slot, err)
		return DefaultShare
	}
	if !ok {
		return DefaultShare
	}
	return share
}
