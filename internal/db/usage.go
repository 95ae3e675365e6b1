package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"roaming-recon/internal/deal"
)

// MonthlyRow is one month of roaming usage for a single service type between
// an operator pair, attributed to the contract objects the usage matched.
// The attribution uuids are nil when the record matched nothing.
type MonthlyRow struct {
	FileUUID       uuid.UUID
	ContractUUID   *uuid.UUID
	ServiceUUID    *uuid.UUID
	CommitmentUUID *uuid.UUID
	TapUUID        *uuid.UUID
	Date           time.Time
	Volume         decimal.Decimal
	ServiceType    string
	HPMN           string
	VPMN           string
}

// UsageStore persists aggregated monthly usage rows and answers achievement
// queries over them.
type UsageStore struct {
	pool *pgxpool.Pool
}

func NewUsageStore(pool *pgxpool.Pool) *UsageStore {
	return &UsageStore{pool: pool}
}

// UpsertMonthly writes the given rows in one transaction and returns how many
// were written. A row whose natural key (date, file_uuid, hpmn, vpmn,
// service_type) already exists has its volume and attribution replaced, so
// reprocessing a file converges instead of duplicating. Dates are stored as
// the first day of their month.
func (s *UsageStore) UpsertMonthly(ctx context.Context, rows []MonthlyRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	count := 0
	for _, row := range rows {
		_, err := tx.Exec(ctx, `
			INSERT INTO monthly_table (
				uuid, file_uuid, contract_uuid, service_uuid, commitment_uuid,
				tap_uuid, date, volume, service_type, hpmn, vpmn
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (date, file_uuid, hpmn, vpmn, service_type) DO UPDATE SET
				volume = EXCLUDED.volume,
				contract_uuid = EXCLUDED.contract_uuid,
				service_uuid = EXCLUDED.service_uuid,
				commitment_uuid = EXCLUDED.commitment_uuid,
				tap_uuid = EXCLUDED.tap_uuid`,
			uuid.New(), row.FileUUID, row.ContractUUID, row.ServiceUUID,
			row.CommitmentUUID, row.TapUUID, firstOfMonth(row.Date), row.Volume,
			row.ServiceType, row.HPMN, row.VPMN,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert monthly row %s/%s %s: %w",
				row.HPMN, row.VPMN, row.ServiceType, err)
		}
		count++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit monthly rows: %w", err)
	}
	return count, nil
}

func firstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Achievements sums every stored volume for one contract, grouped by the
// deal objects the usage matched. Volumes that matched no service are keyed
// by their service type instead.
func (s *UsageStore) Achievements(ctx context.Context, contractUUID uuid.UUID) (deal.Achievements, error) {
	ach := deal.Achievements{
		VolumeByService:              make(map[uuid.UUID]decimal.Decimal),
		VolumeByCommitment:           make(map[uuid.UUID]decimal.Decimal),
		VolumeByTap:                  make(map[uuid.UUID]decimal.Decimal),
		UnmatchedVolumeByServiceType: make(map[string]decimal.Decimal),
	}

	rows, err := s.pool.Query(ctx, `
		SELECT service_uuid, commitment_uuid, tap_uuid, service_type, SUM(volume)
		FROM monthly_table
		WHERE contract_uuid = $1
		GROUP BY service_uuid, commitment_uuid, tap_uuid, service_type`,
		contractUUID,
	)
	if err != nil {
		return deal.Achievements{}, fmt.Errorf("failed to query achievements: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			serviceUUID    *uuid.UUID
			commitmentUUID *uuid.UUID
			tapUUID        *uuid.UUID
			serviceType    string
			volume         decimal.Decimal
		)
		if err := rows.Scan(&serviceUUID, &commitmentUUID, &tapUUID, &serviceType, &volume); err != nil {
			return deal.Achievements{}, fmt.Errorf("failed to scan achievement row: %w", err)
		}

		if serviceUUID != nil {
			ach.VolumeByService[*serviceUUID] = ach.VolumeByService[*serviceUUID].Add(volume)
		} else {
			ach.UnmatchedVolumeByServiceType[serviceType] = ach.UnmatchedVolumeByServiceType[serviceType].Add(volume)
		}
		if commitmentUUID != nil {
			ach.VolumeByCommitment[*commitmentUUID] = ach.VolumeByCommitment[*commitmentUUID].Add(volume)
		}
		if tapUUID != nil {
			ach.VolumeByTap[*tapUUID] = ach.VolumeByTap[*tapUUID].Add(volume)
		}
	}
	if err := rows.Err(); err != nil {
		return deal.Achievements{}, fmt.Errorf("failed to read achievement rows: %w", err)
	}

	return ach, nil
}
