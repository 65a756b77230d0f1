package metrics

import (
	"sync/atomic"
	"time"

	"gamemate-server/internal/db"
	"gamemate-server/internal/middleware"

	"go.uber.org/zap"
)

type Snapshot struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Timestamp        time.Time `gorm:"index" json:"timestamp"`
	HTTPBytesOut     int64     `gorm:"default:0" json:"http_bytes_out"`
	HTTPRequests     int64     `gorm:"default:0" json:"http_requests"`
	ConnectedClients int       `gorm:"default:0" json:"connected_clients"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Snapshot) TableName() string {
	return "metrics_snapshots"
}

// Hourly is one aggregated bucket of the running counters, written once per
// hour. Snapshots get pruned; hourly rows are the long-term record.
type Hourly struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	HourBucket   time.Time `gorm:"uniqueIndex" json:"hour_bucket"`
	HTTPBytesOut int64     `gorm:"default:0" json:"http_bytes_out"`
	HTTPRequests int64     `gorm:"default:0" json:"http_requests"`
	PeakClients  int       `gorm:"default:0" json:"peak_clients"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Hourly) TableName() string {
	return "metrics_hourly"
}

type onlineCounter interface {
	OnlineCount() int
}

type Service struct {
	snapshotTicker *time.Ticker
	hourlyTicker   *time.Ticker
	cleanupTicker  *time.Ticker
	online         onlineCounter
	lastHourBucket time.Time
	peakClients    int
	done           chan bool
}

func NewService(online onlineCounter) *Service {
	return &Service{
		snapshotTicker: time.NewTicker(5 * time.Minute),
		hourlyTicker:   time.NewTicker(time.Hour),
		cleanupTicker:  time.NewTicker(24 * time.Hour),
		online:         online,
		done:           make(chan bool),
	}
}

func (s *Service) Run() {
	for {
		select {
		case <-s.snapshotTicker.C:
			s.takeSnapshot()
		case <-s.hourlyTicker.C:
			s.aggregateHourly(time.Now())
		case <-s.cleanupTicker.C:
			s.cleanup()
		case <-s.done:
			s.snapshotTicker.Stop()
			s.hourlyTicker.Stop()
			s.cleanupTicker.Stop()
			return
		}
	}
}

func (s *Service) Stop() {
	close(s.done)
}

func (s *Service) takeSnapshot() {
	connected := 0
	if s.online != nil {
		connected = s.online.OnlineCount()
	}
	if connected > s.peakClients {
		s.peakClients = connected
	}

	snapshot := Snapshot{
		Timestamp:        time.Now(),
		HTTPBytesOut:     atomic.LoadInt64(&middleware.TotalBytesOut),
		HTTPRequests:     atomic.LoadInt64(&middleware.TotalRequests),
		ConnectedClients: connected,
	}

	if err := db.DB.Create(&snapshot).Error; err != nil {
		zap.S().Errorw("saving metrics snapshot", "error", err)
	}
}

// aggregateHourly writes one row per hour bucket; re-runs inside the same
// hour are no-ops. The peak-clients watermark resets with each bucket.
func (s *Service) aggregateHourly(now time.Time) {
	bucket := now.Truncate(time.Hour)
	if bucket.Equal(s.lastHourBucket) {
		return
	}

	hourly := Hourly{
		HourBucket:   bucket,
		HTTPBytesOut: atomic.LoadInt64(&middleware.TotalBytesOut),
		HTTPRequests: atomic.LoadInt64(&middleware.TotalRequests),
		PeakClients:  s.peakClients,
	}
	if err := db.DB.Create(&hourly).Error; err != nil {
		zap.S().Errorw("saving hourly metrics", "bucket", bucket, "error", err)
		return
	}

	s.lastHourBucket = bucket
	s.peakClients = 0
}

// cleanup drops snapshots older than 30 days. Hourly buckets are kept.
func (s *Service) cleanup() {
	cutoff := time.Now().AddDate(0, 0, -30)
	if err := db.DB.Where("timestamp < ?", cutoff).Delete(&Snapshot{}).Error; err != nil {
		zap.S().Errorw("pruning metrics snapshots", "error", err)
	}
}

// Recent returns the snapshots of the last 24 hours, newest first.
func Recent() ([]Snapshot, error) {
	var snapshots []Snapshot
	err := db.DB.Where("timestamp > ?", time.Now().Add(-24*time.Hour)).
		Order("timestamp DESC").
		Find(&snapshots).Error
	return snapshots, err
}

// RecentHourly returns the hourly buckets of the last n hours, newest first.
func RecentHourly(hours int) ([]Hourly, error) {
	var buckets []Hourly
	err := db.DB.Where("hour_bucket >= ?", time.Now().Add(-time.Duration(hours)*time.Hour)).
		Order("hour_bucket DESC").
		Find(&buckets).Error
	return buckets, err
}

// Current reads the live counters.
func Current(connected int) Snapshot {
	return Snapshot{
		Timestamp:        time.Now(),
		HTTPBytesOut:     atomic.LoadInt64(&middleware.TotalBytesOut),
		HTTPRequests:     atomic.LoadInt64(&middleware.TotalRequests),
		ConnectedClients: connected,
	}
}
