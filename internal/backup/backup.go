// Package backup takes daily snapshots of the database file and prunes the
// old ones.
package backup

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"
	"time"

	"github.com/spf13/afero"
)

// DefaultKeep is the number of snapshots kept by Prune.
const DefaultKeep = 7

const dateLayout = "02-01-2006"

// Sidecar files SQLite keeps next to the database in WAL mode.
var siblings = []string{"-wal", "-shm"}

var reSnapshot = regexp.MustCompile(`^backup-(\d{2}-\d{2}-\d{4})\.db$`)

// SnapshotName returns the name of the snapshot taken on t's day.
func SnapshotName(t time.Time) string {
	return "backup-" + t.Format(dateLayout) + ".db"
}

// Job copies the database file inside fs. Every path is relative to the
// root of fs, the data directory.
type Job struct {
	log    *slog.Logger
	fs     afero.Fs
	dbName string
	keep   int
}

func NewJob(log *slog.Logger, fs afero.Fs, dbName string, keep int) *Job {
	if keep <= 0 {
		keep = DefaultKeep
	}
	return &Job{
		log:    log,
		fs:     fs,
		dbName: dbName,
		keep:   keep,
	}
}

// Backup copies the database to today's snapshot, along with its WAL files
// when present. It does nothing if today's snapshot already exists and
// returns the snapshot name and if it was written.
func (j *Job) Backup(now time.Time) (string, bool, error) {
	name := SnapshotName(now)

	exists, err := afero.Exists(j.fs, name)
	if err != nil {
		return "", false, fmt.Errorf("stat %s: %w", name, err)
	}
	if exists {
		j.log.Info("backup", "status", "snapshot already exists", "file", name)
		return name, false, nil
	}

	if err := copyFile(j.fs, j.dbName, name); err != nil {
		return "", false, fmt.Errorf("copy database: %w", err)
	}

	for _, suffix := range siblings {
		src := j.dbName + suffix
		ok, err := afero.Exists(j.fs, src)
		if err != nil || !ok {
			continue
		}
		if err := copyFile(j.fs, src, name+suffix); err != nil {
			j.log.Info("backup", "status", "failed to copy wal file", "file", src, "ERROR", err)
		}
	}

	j.log.Info("backup", "status", "snapshot written", "file", name)

	return name, true, nil
}

type snapshot struct {
	name string
	date time.Time
}

// Snapshots returns the snapshots in the data directory, newest first.
func (j *Job) Snapshots() ([]string, error) {
	snaps, err := j.snapshots()
	if err != nil {
		return nil, err
	}

	names := make([]string, len(snaps))
	for i, s := range snaps {
		names[i] = s.name
	}
	return names, nil
}

func (j *Job) snapshots() ([]snapshot, error) {
	infos, err := afero.ReadDir(j.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var snaps []snapshot
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		m := reSnapshot.FindStringSubmatch(fi.Name())
		if m == nil {
			continue
		}
		date, err := time.Parse(dateLayout, m[1])
		if err != nil {
			continue
		}
		snaps = append(snaps, snapshot{name: fi.Name(), date: date})
	}

	// DD-MM-YYYY does not sort as a date, compare the parsed value.
	slices.SortFunc(snaps, func(a, b snapshot) int {
		if c := b.date.Compare(a.date); c != 0 {
			return c
		}
		return cmp.Compare(b.name, a.name)
	})

	return snaps, nil
}

// Prune keeps the newest keep snapshots and removes the others with their
// WAL files. It returns the removed snapshot names. Snapshots are ordered by
// the date in their name, not by name, which differs across months.
func (j *Job) Prune(keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}

	snaps, err := j.snapshots()
	if err != nil {
		return nil, err
	}
	if len(snaps) <= keep {
		return nil, nil
	}

	var removed []string
	var errs []error
	for _, s := range snaps[keep:] {
		if err := j.fs.Remove(s.name); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", s.name, err))
			continue
		}
		for _, suffix := range siblings {
			if err := j.fs.Remove(s.name + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s: %w", s.name+suffix, err))
			}
		}
		removed = append(removed, s.name)
		j.log.Info("backup", "status", "removed old snapshot", "file", s.name)
	}

	return removed, errors.Join(errs...)
}

// Report is the outcome of Exec.
type Report struct {
	File    string
	Written bool
	Removed []string
}

// Exec takes today's snapshot and prunes. Prune runs even when the
// snapshot failed, both errors are returned.
func (j *Job) Exec(now time.Time) (Report, error) {
	var rep Report
	var errs []error

	name, written, err := j.Backup(now)
	if err != nil {
		errs = append(errs, fmt.Errorf("backup: %w", err))
	}
	rep.File = name
	rep.Written = written

	removed, err := j.Prune(j.keep)
	if err != nil {
		errs = append(errs, fmt.Errorf("prune: %w", err))
	}
	rep.Removed = removed

	return rep, errors.Join(errs...)
}

// Run is Exec for the scheduler. Failures and panics are only logged.
func (j *Job) Run(now time.Time) {
	defer func() {
		if rec := recover(); rec != nil {
			j.log.Error("backup", "status", "panic", "ERROR", rec)
		}
	}()

	if _, err := j.Exec(now); err != nil {
		j.log.Error("backup", "status", "failed", "ERROR", err)
	}
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		fs.Remove(dst)
		return err
	}

	return out.Close()
}
