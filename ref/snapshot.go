package ref

import (
	"compress/flate"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	fdb "github.com/skypies/flightlog"
)

// A Snapshot is the reference data, frozen into a single flate-compressed msgpack file so
// that a process can start without reaching GCS.
type Snapshot struct {
	Created   time.Time      `msgpack:"created"`
	Airports  []fdb.Airport  `msgpack:"airports"`
	Airframes []fdb.Airframe `msgpack:"airframes"`
}

func (s Snapshot) String() string {
	return fmt.Sprintf("snapshot@%s: %d airports, %d airframes", s.Created.Format(time.RFC3339),
		len(s.Airports), len(s.Airframes))
}

func SaveSnapshot(path string, s Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fw, err := flate.NewWriter(f, flate.BestSpeed)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(fw).Encode(s); err != nil {
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	return f.Close()
}

func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fr := flate.NewReader(f)
	defer fr.Close()

	s := Snapshot{}
	if err := msgpack.NewDecoder(fr).Decode(&s); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return &s, nil
}
