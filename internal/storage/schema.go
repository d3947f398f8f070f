package storage

// Collection declares one named collection and its primary-key field.
type Collection struct {
	Name       string
	PrimaryKey string
	// Since is the schema version that introduced the collection.
	Since int
}

// Schema is the ordered list of collections the store manages, stamped with a
// monotonically increasing version. Opening a store at a higher version than
// previously persisted creates any newly declared collections; existing
// collections are never altered, renamed or dropped implicitly.
type Schema struct {
	Version     int
	Collections []Collection
}

// Collection names.
const (
	CollectionSoilLogs       = "soil_logs"
	CollectionTasks          = "tasks"
	CollectionProfile        = "profile"
	CollectionIrrigationLogs = "irrigation_logs"
)

// ProfileKey is the fixed primary key of the single profile record.
const ProfileKey = "profile"

// CurrentSchema returns the schema history as shipped: v1 introduced soil
// logs and tasks, v2 the profile, v3 irrigation logs.
func CurrentSchema() Schema {
	return Schema{
		Version: 3,
		Collections: []Collection{
			{Name: CollectionSoilLogs, PrimaryKey: "id", Since: 1},
			{Name: CollectionTasks, PrimaryKey: "id", Since: 1},
			{Name: CollectionProfile, PrimaryKey: "key", Since: 2},
			{Name: CollectionIrrigationLogs, PrimaryKey: "id", Since: 3},
		},
	}
}

func (s Schema) collection(name string) (Collection, bool) {
	for _, c := range s.Collections {
		if c.Name == name {
			return c, true
		}
	}
	return Collection{}, false
}
