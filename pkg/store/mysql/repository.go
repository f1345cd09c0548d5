package mysql

import (
	"fmt"

	"revshare/pkg/store/mysql/model"
)

// Repository aggregates all MySQL repositories
type Repository struct {
	ds *Datastore

	RawRevenue       *RawRevenueRepository
	Formula          *FormulaRepository
	Metric           *MetricRepository
	ProcessedRevenue *ProcessedRevenueRepository
	FetchLog         *FetchLogRepository
	CrawlRun         *CrawlRunRepository
	RevenueShare     *RevenueShareRepository
	User             *UserRepository
}

// NewRepository creates a new MySQL repository with all sub-repositories
func NewRepository(dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}
	return newRepositoryWithDatastore(ds), nil
}

func newRepositoryWithDatastore(ds *Datastore) *Repository {
	return &Repository{
		ds:               ds,
		RawRevenue:       NewRawRevenueRepository(ds),
		Formula:          NewFormulaRepository(ds),
		Metric:           NewMetricRepository(ds),
		ProcessedRevenue: NewProcessedRevenueRepository(ds),
		FetchLog:         NewFetchLogRepository(ds),
		CrawlRun:         NewCrawlRunRepository(ds),
		RevenueShare:     NewRevenueShareRepository(ds),
		User:             NewUserRepository(ds),
	}
}

// DSN builds a MySQL connection string from config values.
func DSN(user, password, host string, port int, database string) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		user, password, host, port, database)
}

// Migrate creates or updates the schema for every table this repository
// manages.
func (r *Repository) Migrate() error {
	return r.ds.GetDB().AutoMigrate(
		&model.RawRevenue{},
		&model.Formula{},
		&model.ComputedMetric{},
		&model.AggregatedMetric{},
		&model.ProcessedRevenue{},
		&model.FetchLog{},
		&model.CrawlRun{},
		&model.RevenueShare{},
		&model.User{},
	)
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}
