package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/eigenfolio/eigenfolio/internal/config"
	"github.com/eigenfolio/eigenfolio/internal/database"
	"github.com/eigenfolio/eigenfolio/internal/modules/market"
	"github.com/eigenfolio/eigenfolio/internal/modules/selection"
	"github.com/eigenfolio/eigenfolio/internal/reliability"
)

// Default cron schedules (6-field, with seconds).
const (
	ScheduleNightlySolve  = "0 0 2 * * *"    // 02:00 daily
	ScheduleWALCheckpoint = "0 */30 * * * *" // every 30 minutes
	ScheduleCloudBackup   = "0 30 3 * * *"   // 03:30 daily
)

// NightlySolveJob regenerates the configured universe and re-runs the
// reference solve so run history tracks it over time.
type NightlySolveJob struct {
	selectionSvc *selection.Service
	marketSvc    *market.Service
	cfg          *config.Config
	log          zerolog.Logger
}

// NewNightlySolveJob creates the nightly reference solve job.
func NewNightlySolveJob(selectionSvc *selection.Service, marketSvc *market.Service, cfg *config.Config, log zerolog.Logger) *NightlySolveJob {
	return &NightlySolveJob{
		selectionSvc: selectionSvc,
		marketSvc:    marketSvc,
		cfg:          cfg,
		log:          log.With().Str("job", "nightly_solve").Logger(),
	}
}

func (j *NightlySolveJob) Name() string { return "nightly_solve" }

func (j *NightlySolveJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := j.marketSvc.Regenerate(j.cfg.NumAssets, j.cfg.Seed); err != nil {
		return err
	}

	run, err := j.selectionSvc.Solve(ctx, selection.SolveRequest{})
	if err != nil {
		return err
	}
	j.log.Info().Str("run_id", run.ID).Float64("eigenvalue", run.Eigenvalue).Msg("Nightly reference solve stored")
	return nil
}

// WALCheckpointJob truncates the write-ahead logs of the durable databases
// so they don't grow unbounded between restarts.
type WALCheckpointJob struct {
	databases []*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates the WAL checkpoint job.
func NewWALCheckpointJob(databases []*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

func (j *WALCheckpointJob) Name() string { return "wal_checkpoint" }

func (j *WALCheckpointJob) Run() error {
	for _, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
			continue
		}
		j.log.Debug().Str("database", db.Name()).Msg("WAL checkpointed")
	}
	return nil
}

// CloudBackupJob uploads a fresh archive to R2 and rotates old ones.
type CloudBackupJob struct {
	service       *reliability.R2BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewCloudBackupJob creates the nightly cloud backup job.
func NewCloudBackupJob(service *reliability.R2BackupService, retentionDays int, log zerolog.Logger) *CloudBackupJob {
	return &CloudBackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "cloud_backup").Logger(),
	}
}

func (j *CloudBackupJob) Name() string { return "cloud_backup" }

func (j *CloudBackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	return j.service.RotateOldBackups(ctx, j.retentionDays)
}
