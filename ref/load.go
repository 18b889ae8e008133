package ref

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
	"gopkg.in/yaml.v3"

	fdb "github.com/skypies/flightlog"
)

type airportFile struct {
	Airports []fdb.Airport `yaml:"airports"`
}

// LoadAirports parses a YAML airport list (a top-level `airports:` sequence). Entries
// without a code, or with coordinates out of range, are rejected.
func LoadAirports(r io.Reader) ([]fdb.Airport, error) {
	af := airportFile{}
	if err := yaml.NewDecoder(r).Decode(&af); err != nil {
		return nil, fmt.Errorf("airports: decode: %w", err)
	}
	for i, a := range af.Airports {
		if normalize(a.Code) == "" {
			return nil, fmt.Errorf("airports: entry %d has no code", i)
		} else if !fdb.IsValidCoordinate(a.Lat, a.Lon) {
			return nil, fmt.Errorf("airports: %s has bad coordinates (%f,%f)", a.Code, a.Lat, a.Lon)
		}
	}
	return af.Airports, nil
}

func LoadAirportsFile(path string) ([]fdb.Airport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadAirports(maybeGunzip(f, path))
}

// {{{ LoadAirportsFromGCS

// ParseGCSPath splits "gs://bucket/some/object" into bucket and object names.
func ParseGCSPath(path string) (bucket, object string, err error) {
	rest, found := strings.CutPrefix(path, "gs://")
	if !found {
		return "", "", fmt.Errorf("%q is not a gs:// path", path)
	}
	bucket, object, found = strings.Cut(rest, "/")
	if !found || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%q: want gs://bucket/object", path)
	}
	return bucket, object, nil
}

func LoadAirportsFromGCS(ctx context.Context, path string, opts ...option.ClientOption) ([]fdb.Airport, error) {
	bucketName, fileName, err := ParseGCSPath(path)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	gcsReader, err := client.Bucket(bucketName).Object(fileName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCS-Open %s|%s: %w", bucketName, fileName, err)
	}
	defer gcsReader.Close()

	return LoadAirports(maybeGunzip(gcsReader, fileName))
}

// }}}

// OpenAirports builds a directory from a source string: "builtin" (or empty) for the
// default set, a gs:// path, or a local file.
func OpenAirports(ctx context.Context, source string, opts ...option.ClientOption) (*StaticAirports, error) {
	switch {
	case source == "" || source == "builtin":
		return NewStaticAirports(DefaultAirports()), nil
	case strings.HasPrefix(source, "gs://"):
		airports, err := LoadAirportsFromGCS(ctx, source, opts...)
		if err != nil {
			return nil, err
		}
		return NewStaticAirports(airports), nil
	default:
		airports, err := LoadAirportsFile(source)
		if err != nil {
			return nil, err
		}
		return NewStaticAirports(airports), nil
	}
}

// gzipped files are recognized by name; if the header is bad, the error surfaces as a
// decode failure.
func maybeGunzip(r io.Reader, name string) io.Reader {
	if !strings.HasSuffix(name, ".gz") {
		return r
	}
	gz, err := gzip.NewReader(r)
	if err != nil {
		return errReader{err}
	}
	return gz
}

type errReader struct{ err error }

func (e errReader) Read([]byte) (int, error) { return 0, e.err }
