package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hydragrow/pod-telemetry/internal/model"
)

// SensorCatalog maintains the catalog of known sensor keys and which pods
// carry them.
type SensorCatalog struct {
	db *gorm.DB
}

func NewSensorCatalog(db *gorm.DB) *SensorCatalog {
	return &SensorCatalog{db: db}
}

// SeedAll upserts every canonical sensor key. Safe to call on every startup;
// existing rows are left untouched.
func (s *SensorCatalog) SeedAll(ctx context.Context) error {
	for _, name := range model.AllSensorKeys() {
		sensor := model.Sensor{Name: name}
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoNothing: true,
			}).
			Create(&sensor).Error
		if err != nil {
			return fmt.Errorf("seed sensor %s: %w", name, err)
		}
	}
	return nil
}

// LinkPod attaches podName to every catalog sensor, marking the hardware as
// freshly calibrated at the given time. Linking the same pod twice is a
// no-op.
func (s *SensorCatalog) LinkPod(ctx context.Context, podName string, at time.Time) error {
	var sensors []model.Sensor
	if err := s.db.WithContext(ctx).Find(&sensors).Error; err != nil {
		return fmt.Errorf("list sensors: %w", err)
	}
	if len(sensors) == 0 {
		return errors.New("sensor catalog is empty; seed it first")
	}

	for i := range sensors {
		if linked(sensors[i].PodsLinked, podName) {
			continue
		}
		sensors[i].PodsLinked = append(sensors[i].PodsLinked, model.PodLink{
			PodName:        podName,
			Calibrated:     true,
			LastCalibrated: at,
		})
		if err := s.db.WithContext(ctx).Save(&sensors[i]).Error; err != nil {
			return fmt.Errorf("link pod %s to sensor %s: %w", podName, sensors[i].Name, err)
		}
	}
	return nil
}

func linked(links []model.PodLink, podName string) bool {
	for _, l := range links {
		if l.PodName == podName {
			return true
		}
	}
	return false
}
