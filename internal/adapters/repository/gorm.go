package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/okian/timeclock/internal/domain/model"
)

// SQL driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// GormStore persists attendance data through GORM on SQLite or Postgres.
type GormStore struct {
	settings
	db     *gorm.DB
	driver string
}

// OpenSQLite opens (creating if needed) the SQLite database at path and
// migrates the schema. The pool is limited to one connection so appends are
// serialized.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*GormStore, error) {
	if path == "" {
		return nil, fmt.Errorf("open sqlite: %w: empty path", ErrInvalidInput)
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("open sqlite: create directory: %w", err)
		}
	}
	st := defaultSettings(opts)
	st.maxOpenConns = 1
	return openGorm(ctx, DriverSQLite, sqlite.Open(path), st)
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, opts ...Option) (*GormStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open postgres: %w: empty dsn", ErrInvalidInput)
	}
	dialector := postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	})
	return openGorm(ctx, DriverPostgres, dialector, defaultSettings(opts))
}

func openGorm(ctx context.Context, driver string, dialector gorm.Dialector, st settings) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newGormLogger(st.logger, st.logSQL),
		NowFunc: func() time.Time { return st.clock.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	sqlDB.SetMaxOpenConns(st.maxOpenConns)
	sqlDB.SetMaxIdleConns(st.maxOpenConns)
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open %s: ping: %w", driver, err)
	}

	if err := db.WithContext(ctx).AutoMigrate(allModels()...); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open %s: migrate: %w", driver, err)
	}

	return &GormStore{settings: st, db: db, driver: driver}, nil
}

// Driver implements Store.
func (s *GormStore) Driver() string { return s.driver }

// Close implements Store.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("%s %s: %w", what, id, err)
}

func eventScope(db *gorm.DB, q EventQuery) *gorm.DB {
	if q.OrganizationID != "" {
		db = db.Where("organization_id = ?", q.OrganizationID)
	}
	if q.WorkerID != "" {
		db = db.Where("worker_id = ?", q.WorkerID)
	}
	if q.From != nil {
		db = db.Where("occurred_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		db = db.Where("occurred_at <= ?", q.To.UTC())
	}
	return db
}

func (s *GormStore) ListEvents(ctx context.Context, q EventQuery) ([]model.ClockEvent, error) {
	var rows []eventRow
	if err := eventScope(s.db.WithContext(ctx), q).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]model.ClockEvent, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *GormStore) AppendEvent(ctx context.Context, ev model.ClockEvent, guard Guard) (model.ClockEvent, error) {
	if ev.OrganizationID == "" || ev.WorkerID == "" {
		return model.ClockEvent{}, fmt.Errorf("append event: %w: organization and worker are required", ErrInvalidInput)
	}
	ev.ID = s.newID()
	ev.CreatedAt = s.clock.Now().UTC()
	row := newEventRow(ev)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.driver == DriverPostgres {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", scopeKey(ev.OrganizationID, ev.WorkerID)).Error; err != nil {
				return fmt.Errorf("append event: lock: %w", err)
			}
		}

		if guard != nil {
			var rows []eventRow
			err := tx.Where("organization_id = ? AND worker_id = ?", ev.OrganizationID, ev.WorkerID).
				Order("occurred_at DESC, seq DESC").
				Limit(1).
				Find(&rows).Error
			if err != nil {
				return fmt.Errorf("append event: last event: %w", err)
			}
			var last *model.ClockEvent
			if len(rows) > 0 {
				e := rows[0].toModel()
				last = &e
			}
			if err := guard(last); err != nil {
				return err
			}
		}

		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("append event: insert: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.ClockEvent{}, err
	}
	return row.toModel(), nil
}

func (s *GormStore) ListActiveShifts(ctx context.Context, workerID, organizationID string) ([]model.ScheduledShift, error) {
	return s.listShifts(ctx, workerID, organizationID, true)
}

func (s *GormStore) ListShifts(ctx context.Context, workerID, organizationID string) ([]model.ScheduledShift, error) {
	return s.listShifts(ctx, workerID, organizationID, false)
}

func (s *GormStore) listShifts(ctx context.Context, workerID, organizationID string, activeOnly bool) ([]model.ScheduledShift, error) {
	var rows []shiftRow
	db := s.db.WithContext(ctx).Where("worker_id = ? AND organization_id = ?", workerID, organizationID)
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}
	if err := db.Order("day_of_week, entry_time").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	out := make([]model.ScheduledShift, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *GormStore) ReplaceShifts(ctx context.Context, workerID, organizationID string, shifts []model.ScheduledShift) ([]model.ScheduledShift, error) {
	if workerID == "" || organizationID == "" {
		return nil, fmt.Errorf("replace shifts: %w: organization and worker are required", ErrInvalidInput)
	}
	now := s.clock.Now().UTC()
	out := make([]model.ScheduledShift, len(shifts))
	rows := make([]shiftRow, len(shifts))
	for i, sh := range shifts {
		sh.ID = s.newID()
		sh.WorkerID = workerID
		sh.OrganizationID = organizationID
		sh.CreatedAt = now
		out[i] = sh
		rows[i] = newShiftRow(sh)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("worker_id = ? AND organization_id = ?", workerID, organizationID).Delete(&shiftRow{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("replace shifts: %w", err)
	}
	return out, nil
}

func (s *GormStore) GetOrganization(ctx context.Context, id string) (model.Organization, error) {
	var row organizationRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return model.Organization{}, notFound(err, "organization", id)
	}
	return row.toModel(), nil
}

func (s *GormStore) SaveOrganization(ctx context.Context, org model.Organization) (model.Organization, error) {
	if org.ID == "" {
		org.ID = s.newID()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = s.clock.Now().UTC()
	}
	row := newOrganizationRow(org)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "address", "latitude", "longitude", "allowed_radius_meters", "timezone"}),
		}).
		Create(&row).Error
	if err != nil {
		return model.Organization{}, fmt.Errorf("save organization: %w", err)
	}
	return s.GetOrganization(ctx, org.ID)
}

func (s *GormStore) DeleteOrganization(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&organizationRow{})
		if res.Error != nil {
			return fmt.Errorf("delete organization: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("organization %s: %w", id, ErrNotFound)
		}
		for _, m := range []any{&memberRow{}, &shiftRow{}, &eventRow{}, &incidentRow{}} {
			if err := tx.Where("organization_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete organization: cascade: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) ListOrganizationsFor(ctx context.Context, workerID string) ([]model.Organization, error) {
	var rows []organizationRow
	err := s.db.WithContext(ctx).
		Where("id IN (?)", s.db.Model(&memberRow{}).Select("organization_id").Where("worker_id = ?", workerID)).
		Order("name, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	out := make([]model.Organization, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *GormStore) ListMembers(ctx context.Context, organizationID string) ([]model.Member, error) {
	var rows []memberRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at, worker_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	out := make([]model.Member, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *GormStore) GetMember(ctx context.Context, organizationID, workerID string) (model.Member, error) {
	var row memberRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND worker_id = ?", organizationID, workerID).
		Take(&row).Error
	if err != nil {
		return model.Member{}, notFound(err, "member", organizationID+"/"+workerID)
	}
	return row.toModel(), nil
}

func (s *GormStore) SaveMember(ctx context.Context, m model.Member) (model.Member, error) {
	if _, err := s.GetOrganization(ctx, m.OrganizationID); err != nil {
		return model.Member{}, err
	}
	if _, err := s.GetWorker(ctx, m.WorkerID); err != nil {
		return model.Member{}, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.clock.Now().UTC()
	}
	row := memberRow{
		OrganizationID: m.OrganizationID,
		WorkerID:       m.WorkerID,
		Role:           string(m.Role),
		CreatedAt:      m.CreatedAt.UTC(),
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}, {Name: "worker_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(&row).Error
	if err != nil {
		return model.Member{}, fmt.Errorf("save member: %w", err)
	}
	return s.GetMember(ctx, m.OrganizationID, m.WorkerID)
}

func (s *GormStore) GetWorker(ctx context.Context, id string) (model.Worker, error) {
	var row workerRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return model.Worker{}, notFound(err, "worker", id)
	}
	return model.Worker{ID: row.ID, Email: row.Email, FullName: row.FullName, CreatedAt: row.CreatedAt.UTC()}, nil
}

func (s *GormStore) SaveWorker(ctx context.Context, w model.Worker) (model.Worker, error) {
	if w.ID == "" {
		w.ID = s.newID()
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = s.clock.Now().UTC()
	}
	row := workerRow{ID: w.ID, Email: w.Email, FullName: w.FullName, CreatedAt: w.CreatedAt.UTC()}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "full_name"}),
		}).
		Create(&row).Error
	if err != nil {
		return model.Worker{}, fmt.Errorf("save worker: %w", err)
	}
	return s.GetWorker(ctx, w.ID)
}

func (s *GormStore) DeleteWorker(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&workerRow{})
		if res.Error != nil {
			return fmt.Errorf("delete worker: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("worker %s: %w", id, ErrNotFound)
		}
		for _, m := range []any{&memberRow{}, &shiftRow{}, &eventRow{}, &incidentRow{}} {
			if err := tx.Where("worker_id = ?", id).Delete(m).Error; err != nil {
				return fmt.Errorf("delete worker: cascade: %w", err)
			}
		}
		return nil
	})
}

func (s *GormStore) CreateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	inc.ID = s.newID()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = s.clock.Now().UTC()
	}
	row := newIncidentRow(inc)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return model.Incident{}, fmt.Errorf("create incident: %w", err)
	}
	return row.toModel(), nil
}

func (s *GormStore) GetIncident(ctx context.Context, id string) (model.Incident, error) {
	var row incidentRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return model.Incident{}, notFound(err, "incident", id)
	}
	return row.toModel(), nil
}

func (s *GormStore) ListIncidents(ctx context.Context, f IncidentFilter) ([]model.Incident, error) {
	db := s.db.WithContext(ctx)
	if f.OrganizationID != "" {
		db = db.Where("organization_id = ?", f.OrganizationID)
	}
	if f.WorkerID != "" {
		db = db.Where("worker_id = ?", f.WorkerID)
	}
	if f.Status != "" {
		db = db.Where("status = ?", string(f.Status))
	}
	var rows []incidentRow
	if err := db.Order("created_at DESC, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	out := make([]model.Incident, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *GormStore) UpdateIncident(ctx context.Context, inc model.Incident) (model.Incident, error) {
	row := newIncidentRow(inc)
	res := s.db.WithContext(ctx).Model(&incidentRow{}).Where("id = ?", inc.ID).Updates(map[string]any{
		"status":      row.Status,
		"description": row.Description,
		"reviewed_by": row.ReviewedBy,
		"reviewed_at": row.ReviewedAt,
	})
	if res.Error != nil {
		return model.Incident{}, fmt.Errorf("update incident: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.Incident{}, fmt.Errorf("incident %s: %w", inc.ID, ErrNotFound)
	}
	return s.GetIncident(ctx, inc.ID)
}
