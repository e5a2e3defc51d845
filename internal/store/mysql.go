package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Shivendrahari/SignalSync/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type deviceRow struct {
	ID        string    `gorm:"primaryKey;size:64;comment:device id used by the performance api"`
	Name      string    `gorm:"size:128;not null"`
	Branch    string    `gorm:"size:128;not null;default:''"`
	Status    string    `gorm:"size:16;not null;default:'Up'"`
	CreatedAt time.Time `gorm:"type:datetime(3);autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"type:datetime(3);autoUpdateTime:milli"`
}

func (deviceRow) TableName() string {
	return "devices"
}

type deviceStatRow struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement;type:bigint unsigned"`
	DeviceID    string    `gorm:"size:64;not null;index:idx_device_time,priority:1"`
	Timestamp   time.Time `gorm:"type:datetime(3);not null;index:idx_device_time,priority:2;index:idx_time"`
	CPUUsage    float64   `gorm:"not null"`
	Temperature float64   `gorm:"not null"`
	Latency     float64   `gorm:"not null"`
	Bandwidth   float64   `gorm:"not null"`
	Status      string    `gorm:"size:16;not null"`
}

func (deviceStatRow) TableName() string {
	return "device_stats"
}

func toStatRow(s models.DeviceStat) deviceStatRow {
	return deviceStatRow{
		DeviceID:    s.DeviceID,
		Timestamp:   s.Timestamp.UTC(),
		CPUUsage:    s.CPUUsage,
		Temperature: s.Temperature,
		Latency:     s.Latency,
		Bandwidth:   s.Bandwidth,
		Status:      string(s.Status),
	}
}

func (r deviceStatRow) model() models.DeviceStat {
	return models.DeviceStat{
		DeviceID:    r.DeviceID,
		Timestamp:   r.Timestamp,
		CPUUsage:    r.CPUUsage,
		Temperature: r.Temperature,
		Latency:     r.Latency,
		Bandwidth:   r.Bandwidth,
		Status:      models.Status(r.Status),
	}
}

// MySQLStatsStore keeps devices and their stats in MySQL through gorm
type MySQLStatsStore struct {
	db *gorm.DB
}

// OpenMySQL connects to dsn, tunes the pool and migrates the schema
func OpenMySQL(dsn string) (*MySQLStatsStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, closeOnError(sqlDB, fmt.Errorf("ping mysql: %w", err))
	}

	if err := db.AutoMigrate(&deviceRow{}, &deviceStatRow{}); err != nil {
		return nil, closeOnError(sqlDB, fmt.Errorf("migrate: %w", err))
	}
	return &MySQLStatsStore{db: db}, nil
}

// closeOnError releases c and returns err joined with any close failure
func closeOnError(c io.Closer, err error) error {
	if cerr := c.Close(); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

// Close releases the connection pool
func (s *MySQLStatsStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *MySQLStatsStore) RegisterDevice(ctx context.Context, device models.Device) error {
	row := deviceRow{ID: device.ID, Name: device.Name, Branch: device.Branch, Status: string(device.Status)}
	if row.Status == "" {
		row.Status = string(models.StatusUp)
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "branch", "updated_at"}),
	}).Create(&row).Error
}

func (s *MySQLStatsStore) Devices(ctx context.Context) ([]models.Device, error) {
	var rows []deviceRow
	if err := s.db.WithContext(ctx).Order("created_at, id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Device, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Device{ID: r.ID, Name: r.Name, Branch: r.Branch, Status: models.Status(r.Status)})
	}
	return out, nil
}

// Record inserts stat and updates the device's current status in one
// transaction
func (s *MySQLStatsStore) Record(ctx context.Context, stat models.DeviceStat) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := toStatRow(stat)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return tx.Model(&deviceRow{}).Where("id = ?", stat.DeviceID).Update("status", string(stat.Status)).Error
	})
}

func (s *MySQLStatsStore) Query(ctx context.Context, ids []string, from, to time.Time) (models.HistoryWindow, error) {
	window := models.HistoryWindow{From: from, To: to, Devices: make(map[string][]models.DeviceStat, len(ids))}
	for _, id := range ids {
		window.Devices[id] = []models.DeviceStat{}
	}
	if len(ids) == 0 {
		return window, nil
	}

	var rows []deviceStatRow
	err := s.db.WithContext(ctx).
		Where("device_id IN ? AND timestamp BETWEEN ? AND ?", ids, from.UTC(), to.UTC()).
		Order("device_id, timestamp").
		Find(&rows).Error
	if err != nil {
		return window, err
	}
	for _, r := range rows {
		window.Devices[r.DeviceID] = append(window.Devices[r.DeviceID], r.model())
	}
	return window, nil
}

func (s *MySQLStatsStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("timestamp < ?", before.UTC()).Delete(&deviceStatRow{})
	return res.RowsAffected, res.Error
}
