package monitoring

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/andresuchdata/gapwatch/internal/domain"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

var (
	snapshotCSVHeader = []string{"date", "week", "category", "supply", "demand", "gap_score", "gap_status", "normalized_gap"}

	// snapshot_2024-03-04_week_10.json
	snapshotNamePattern = regexp.MustCompile(`^snapshot_(\d{4}-\d{2}-\d{2})_week_(\d+)\.json$`)
	// snapshot_week_10_2024-03-04.json, written by earlier releases
	legacyNamePattern = regexp.MustCompile(`^snapshot_week_(\d+)_(\d{4}-\d{2}-\d{2})\.json$`)
)

// Clock returns the current time; replaced in tests.
type Clock func() time.Time

// SnapshotInfo describes one persisted snapshot file.
type SnapshotInfo struct {
	Date string `json:"date"`
	Week int    `json:"week"`
	Path string `json:"path"`
}

// SnapshotStore persists weekly gap tables as flat JSON and CSV files.
// It does no locking; callers run one monitoring cycle at a time.
type SnapshotStore struct {
	dir   string
	clock Clock
}

// NewSnapshotStore creates a store rooted at dir.
func NewSnapshotStore(dir string) *SnapshotStore {
	return &SnapshotStore{dir: dir, clock: time.Now}
}

// WithClock replaces the clock used for default week and date.
func (s *SnapshotStore) WithClock(c Clock) *SnapshotStore {
	if c != nil {
		s.clock = c
	}
	return s
}

// Dir returns the snapshot directory.
func (s *SnapshotStore) Dir() string {
	return s.dir
}

// ResolveWeekDate applies the defaults for an omitted week (current ISO week) or date (today).
func (s *SnapshotStore) ResolveWeekDate(week int, date string) (int, string, error) {
	now := s.clock()
	if date == "" {
		date = now.Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return 0, "", fmt.Errorf("invalid snapshot date %q: %w", date, err)
	}
	if week < 0 || week > 53 {
		return 0, "", fmt.Errorf("invalid week number %d", week)
	}
	if week == 0 {
		_, week = now.ISOWeek()
	}
	return week, date, nil
}

// Save writes the gap table as snapshot_<date>_week_<ww>.json and .csv. The same week
// and date overwrite the previous pair.
func (s *SnapshotStore) Save(records []domain.GapRecord, week int, date string) (string, string, error) {
	week, date, err := s.ResolveWeekDate(week, date)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	rows := domain.ToSnapshotRecords(records, date, week)
	base := fmt.Sprintf("snapshot_%s_week_%02d", date, week)
	jsonPath := filepath.Join(s.dir, base+".json")
	csvPath := filepath.Join(s.dir, base+".csv")

	payload, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(jsonPath, payload, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write snapshot %s: %w", jsonPath, err)
	}
	if err := writeSnapshotCSV(csvPath, rows); err != nil {
		return "", "", fmt.Errorf("failed to write snapshot %s: %w", csvPath, err)
	}

	log.Info().Str("date", date).Int("week", week).Int("categories", len(rows)).Msg("snapshot saved")
	return jsonPath, csvPath, nil
}

// List returns the persisted snapshots in chronological order.
func (s *SnapshotStore) List() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	infos := make([]SnapshotInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, ok := parseSnapshotName(e.Name())
		if !ok {
			continue
		}
		info.Path = filepath.Join(s.dir, e.Name())
		infos = append(infos, info)
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].Date != infos[j].Date {
			return infos[i].Date < infos[j].Date
		}
		return infos[i].Week < infos[j].Week
	})
	return infos, nil
}

// LoadLatest returns the chronologically last snapshot. found is false when none exist.
func (s *SnapshotStore) LoadLatest() (domain.Snapshot, bool, error) {
	infos, err := s.List()
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	if len(infos) == 0 {
		return domain.Snapshot{}, false, nil
	}
	return s.load(infos[len(infos)-1])
}

// LoadByDate returns the snapshot for an exact date. found is false when none exists.
func (s *SnapshotStore) LoadByDate(date string) (domain.Snapshot, bool, error) {
	infos, err := s.List()
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	for i := len(infos) - 1; i >= 0; i-- {
		if infos[i].Date == date {
			return s.load(infos[i])
		}
	}
	return domain.Snapshot{}, false, nil
}

// LoadBefore returns the latest snapshot strictly older than date.
func (s *SnapshotStore) LoadBefore(date string) (domain.Snapshot, bool, error) {
	infos, err := s.List()
	if err != nil {
		return domain.Snapshot{}, false, err
	}
	for i := len(infos) - 1; i >= 0; i-- {
		if infos[i].Date < date {
			return s.load(infos[i])
		}
	}
	return domain.Snapshot{}, false, nil
}

func (s *SnapshotStore) load(info SnapshotInfo) (domain.Snapshot, bool, error) {
	payload, err := os.ReadFile(info.Path)
	if err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("failed to read snapshot %s: %w", info.Path, err)
	}

	var records []domain.SnapshotRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return domain.Snapshot{}, false, fmt.Errorf("decode snapshot %s: %w", info.Path, err)
	}
	if records == nil {
		records = []domain.SnapshotRecord{}
	}

	return domain.Snapshot{Date: info.Date, Week: info.Week, Records: records}, true, nil
}

func parseSnapshotName(name string) (SnapshotInfo, bool) {
	if m := snapshotNamePattern.FindStringSubmatch(name); m != nil {
		week, _ := strconv.Atoi(m[2])
		return SnapshotInfo{Date: m[1], Week: week}, true
	}
	if m := legacyNamePattern.FindStringSubmatch(name); m != nil {
		week, _ := strconv.Atoi(m[1])
		return SnapshotInfo{Date: m[2], Week: week}, true
	}
	return SnapshotInfo{}, false
}

func writeSnapshotCSV(path string, rows []domain.SnapshotRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(snapshotCSVHeader); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Date,
			strconv.Itoa(r.Week),
			r.Category,
			strconv.Itoa(r.Supply),
			strconv.Itoa(r.Demand),
			strconv.FormatFloat(r.GapScore, 'f', -1, 64),
			string(r.GapStatus),
			strconv.FormatFloat(r.NormalizedGap, 'f', -1, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
