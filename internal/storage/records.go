package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// NewID returns a unix-millisecond id. Monotonic enough to sort records by
// recency at this write rate.
func NewID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// SoilLog is a retained soil analysis the user chose to keep.
type SoilLog struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	PH            float64   `json:"ph"`
	OrganicMatter float64   `json:"organic_matter"`
	Texture       string    `json:"texture"`
	HealthScore   *float64  `json:"health_score,omitempty"`
	Analysis      string    `json:"analysis,omitempty"`
}

// Task is a farm task, optionally created from accepted advice.
type Task struct {
	ID        string     `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Title     string     `json:"title"`
	Details   string     `json:"details,omitempty"`
	Done      bool       `json:"done"`
	DueDate   *time.Time `json:"due_date,omitempty"`
}

// Profile is the single profile record, keyed by ProfileKey.
type Profile struct {
	Name      string   `json:"name,omitempty"`
	FarmName  string   `json:"farm_name,omitempty"`
	Locale    string   `json:"locale,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Crops     []string `json:"crops,omitempty"`
}

// IrrigationLog records one irrigation event or accepted advice.
type IrrigationLog struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Crop        string    `json:"crop"`
	GrowthStage string    `json:"growth_stage,omitempty"`
	AmountMM    *float64  `json:"amount_mm,omitempty"`
	Notes       string    `json:"notes,omitempty"`
}

func getAllAs[T any](ctx context.Context, s *Store, collection string) ([]T, error) {
	raw, err := s.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			return nil, fmt.Errorf("decoding %s record: %w", collection, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SaveSoilLog upserts a soil log by id.
func (s *Store) SaveSoilLog(ctx context.Context, l SoilLog) error {
	return s.Put(ctx, CollectionSoilLogs, l.ID, l)
}

// SoilLogs returns all soil logs, newest first.
func (s *Store) SoilLogs(ctx context.Context) ([]SoilLog, error) {
	logs, err := getAllAs[SoilLog](ctx, s, CollectionSoilLogs)
	if err != nil {
		return nil, err
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID > logs[j].ID })
	return logs, nil
}

// DeleteSoilLog removes a soil log by id.
func (s *Store) DeleteSoilLog(ctx context.Context, id string) error {
	return s.Delete(ctx, CollectionSoilLogs, id)
}

// SaveTask upserts a task by id.
func (s *Store) SaveTask(ctx context.Context, t Task) error {
	return s.Put(ctx, CollectionTasks, t.ID, t)
}

// Tasks returns all tasks, newest first.
func (s *Store) Tasks(ctx context.Context) ([]Task, error) {
	tasks, err := getAllAs[Task](ctx, s, CollectionTasks)
	if err != nil {
		return nil, err
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	return tasks, nil
}

// DeleteTask removes a task by id.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.Delete(ctx, CollectionTasks, id)
}

// SaveProfile upserts the profile record under its fixed key.
func (s *Store) SaveProfile(ctx context.Context, p Profile) error {
	return s.Put(ctx, CollectionProfile, ProfileKey, p)
}

// GetProfile returns the profile record, or a zero Profile when none exists.
func (s *Store) GetProfile(ctx context.Context) (Profile, error) {
	records, err := getAllAs[Profile](ctx, s, CollectionProfile)
	if err != nil {
		return Profile{}, err
	}
	if len(records) == 0 {
		return Profile{}, nil
	}
	return records[0], nil
}

// SaveIrrigationLog upserts an irrigation log by id.
func (s *Store) SaveIrrigationLog(ctx context.Context, l IrrigationLog) error {
	return s.Put(ctx, CollectionIrrigationLogs, l.ID, l)
}

// IrrigationLogs returns all irrigation logs, newest first.
func (s *Store) IrrigationLogs(ctx context.Context) ([]IrrigationLog, error) {
	logs, err := getAllAs[IrrigationLog](ctx, s, CollectionIrrigationLogs)
	if err != nil {
		return nil, err
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID > logs[j].ID })
	return logs, nil
}

// DeleteIrrigationLog removes an irrigation log by id.
func (s *Store) DeleteIrrigationLog(ctx context.Context, id string) error {
	return s.Delete(ctx, CollectionIrrigationLogs, id)
}
