package service

import (
	"os"
	"path/filepath"
	"time"

	"github.com/chaos-io/maskswap/util"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Janitor periodically removes spooled uploads that outlived their retention.
type Janitor struct {
	dir       string
	retention time.Duration
	cron      *cron.Cron
}

func NewJanitor(dir string, retention time.Duration) *Janitor {
	return &Janitor{
		dir:       dir,
		retention: retention,
		cron:      cron.New(),
	}
}

// Start schedules the purge with a cron spec such as "@every 10m".
func (j *Janitor) Start(spec string) error {
	if _, err := j.cron.AddFunc(spec, func() {
		if _, err := j.Purge(time.Now()); err != nil {
			util.Logger.Warn("failed to purge spool dir", zap.String("dir", j.dir), zap.Error(err))
		}
	}); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Purge deletes regular files in the spool dir last modified before now-retention.
func (j *Janitor) Purge(now time.Time) (int, error) {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := now.Add(-j.retention)
	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, e.Name())
		if err := os.Remove(path); err != nil {
			util.Logger.Warn("failed to delete spooled file", zap.String("file", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		util.Logger.Info("spool dir purged", zap.String("dir", j.dir), zap.Int("removed", removed))
	}
	return removed, nil
}
