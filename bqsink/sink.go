// Package bqsink streams archived flights into BigQuery, one row per flight, and also
// publishes whole days of them as load jobs.
package bqsink

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	fdb "github.com/skypies/flightlog"
)

// putter is the part of *bigquery.Inserter we use.
type putter interface {
	Put(ctx context.Context, src interface{}) error
}

// Sink writes archived flights into a BigQuery table as they are archived. Rows carry the
// flight ID as their insert ID, so a retried export doesn't create duplicate rows.
type Sink struct {
	client *bigquery.Client
	table  *bigquery.Table
	ins    putter
	schema bigquery.Schema
}

func NewSink(ctx context.Context, project, dataset, table string, opts ...option.ClientOption) (*Sink, error) {
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	t := client.Dataset(dataset).Table(table)
	s, err := newSink(t.Inserter())
	if err != nil {
		client.Close()
		return nil, err
	}
	s.client, s.table = client, t
	return s, nil
}

func newSink(p putter) (*Sink, error) {
	schema, err := Schema()
	if err != nil {
		return nil, err
	}
	return &Sink{ins: p, schema: schema}, nil
}

// Schema is the table schema, as inferred from the row type.
func Schema() (bigquery.Schema, error) {
	return bigquery.InferSchema(fdb.FlightForBigQuery{})
}

// EnsureTable creates the destination table if it doesn't already exist.
func (s *Sink) EnsureTable(ctx context.Context) error {
	if s.table == nil {
		return errors.New("sink has no table")
	}
	err := s.table.Create(ctx, &bigquery.TableMetadata{Schema: s.schema})
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
		return nil
	}
	return err
}

func (s *Sink) row(f *fdb.Flight) *bigquery.StructSaver {
	return &bigquery.StructSaver{
		Struct:   f.ForBigQuery(),
		Schema:   s.schema,
		InsertID: f.FlightID,
	}
}

// Archived is called once a flight has moved to the archived set.
func (s *Sink) Archived(ctx context.Context, f *fdb.Flight) error {
	if err := s.ins.Put(ctx, s.row(f)); err != nil {
		return fmt.Errorf("bigquery insert %s: %w", f.FlightID, err)
	}
	return nil
}

func (s *Sink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
