package db

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"brimstone/instance"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when no instance has the requested name.
var ErrNotFound = errors.New("instance not found")

// Catalog is the per-user list of instances.
type Catalog struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

// Entry is an instance together with its catalog id.
type Entry struct {
	ID       uint
	Instance instance.Instance
}

func (e Entry) Name() string {
	return e.Instance.Metadata.Name
}

func toEntry(rec InstanceRecord) (Entry, error) {
	inst, err := instance.Unmarshal([]byte(rec.Document))
	if err != nil {
		return Entry{}, fmt.Errorf("instance record %d: %w", rec.ID, err)
	}
	return Entry{ID: rec.ID, Instance: inst}, nil
}

func toRecord(inst instance.Instance, rec *InstanceRecord) error {
	doc, err := inst.Marshal()
	if err != nil {
		return err
	}
	rec.Name = inst.Metadata.Name
	rec.Document = string(doc)
	rec.Playtime = inst.Metadata.Playtime
	rec.LastPlayed = nil
	if inst.Metadata.LastPlayed != nil {
		t := inst.Metadata.LastPlayed.UTC()
		rec.LastPlayed = &t
	}
	return nil
}

func (c *Catalog) find(query *gorm.DB) ([]Entry, error) {
	var recs []InstanceRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	entries := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		e, err := toEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("unreadable instance '%s' (remove it to continue): %w", rec.Name, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// List returns every instance in insertion order.
func (c *Catalog) List() ([]Entry, error) {
	return c.find(c.db.Order("id ASC"))
}

func (c *Catalog) firstNamed(name string) (InstanceRecord, error) {
	var rec InstanceRecord
	err := c.db.Where("name = ?", name).Order("id ASC").First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rec, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	if err != nil {
		return rec, fmt.Errorf("failed to query instance '%s': %w", name, err)
	}
	return rec, nil
}

// Get returns the first instance named name.
func (c *Catalog) Get(name string) (Entry, error) {
	rec, err := c.firstNamed(name)
	if err != nil {
		return Entry{}, err
	}
	return toEntry(rec)
}

// Add validates and stores a new instance.
func (c *Catalog) Add(inst instance.Instance) (Entry, error) {
	if err := inst.Validate(); err != nil {
		return Entry{}, err
	}
	var rec InstanceRecord
	if err := toRecord(inst, &rec); err != nil {
		return Entry{}, err
	}
	if err := c.db.Create(&rec).Error; err != nil {
		return Entry{}, fmt.Errorf("failed to save instance '%s': %w", inst.Metadata.Name, err)
	}
	c.log.Infow("Instance added", zap.String("name", rec.Name), zap.Uint("id", rec.ID))
	return Entry{ID: rec.ID, Instance: inst}, nil
}

// Save replaces the stored instance for e.ID.
func (c *Catalog) Save(e Entry) error {
	return c.save(c.db, e)
}

func (c *Catalog) save(tx *gorm.DB, e Entry) error {
	if err := e.Instance.Validate(); err != nil {
		return err
	}
	var rec InstanceRecord
	if err := tx.First(&rec, e.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id %d", ErrNotFound, e.ID)
		}
		return fmt.Errorf("failed to load instance %d: %w", e.ID, err)
	}
	if err := toRecord(e.Instance, &rec); err != nil {
		return err
	}
	if err := tx.Save(&rec).Error; err != nil {
		return fmt.Errorf("failed to update instance '%s': %w", rec.Name, err)
	}
	return nil
}

// Remove deletes the first instance named name from the catalog. Files
// in the store are left alone. The stored document is not decoded, so an
// unreadable instance can still be removed.
func (c *Catalog) Remove(name string) error {
	rec, err := c.firstNamed(name)
	if err != nil {
		return err
	}
	if err := c.db.Delete(&InstanceRecord{}, rec.ID).Error; err != nil {
		return fmt.Errorf("failed to remove instance '%s': %w", name, err)
	}
	c.log.Infow("Instance removed", zap.String("name", name), zap.Uint("id", rec.ID))
	return nil
}

// ByPlaytime returns played instances, most played first.
func (c *Catalog) ByPlaytime() ([]Entry, error) {
	return c.find(c.db.Where("last_played IS NOT NULL").Order("playtime DESC").Order("id ASC"))
}

// ByLastPlayed returns played instances, most recently played first.
func (c *Catalog) ByLastPlayed() ([]Entry, error) {
	entries, err := c.find(c.db.Where("last_played IS NOT NULL").Order("id ASC"))
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Instance.Metadata.LastPlayed.After(*entries[j].Instance.Metadata.LastPlayed)
	})
	return entries, nil
}

// Unplayed returns instances that were never launched.
func (c *Catalog) Unplayed() ([]Entry, error) {
	return c.find(c.db.Where("last_played IS NULL").Order("id ASC"))
}

// RecordSession stores the instance after a play session together with
// the session itself.
func (c *Catalog) RecordSession(e Entry, res instance.SessionResult) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		if err := c.save(tx, e); err != nil {
			return err
		}
		session := SessionRecord{
			InstanceID: e.ID,
			StartedAt:  res.Started.UTC(),
			Duration:   res.Duration,
			ExitCode:   res.ExitCode,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("failed to save session of '%s': %w", e.Name(), err)
		}
		return nil
	})
}

// Sessions lists the play sessions of an instance, newest first.
func (c *Catalog) Sessions(id uint) ([]SessionRecord, error) {
	var sessions []SessionRecord
	if err := c.db.Where("instance_id = ?", id).Order("id DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return sessions, nil
}

// TotalPlaytime sums the playtime of every instance.
func (c *Catalog) TotalPlaytime() (time.Duration, error) {
	var total int64
	if err := c.db.Model(&InstanceRecord{}).Select("COALESCE(SUM(playtime), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum playtime: %w", err)
	}
	return time.Duration(total), nil
}
