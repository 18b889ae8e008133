package bqsink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/skypies/flightlog/db"
	"github.com/skypies/flightlog/ref"
)

// {{{ WriteRows

// WriteRows writes the archived flights that completed on the given UTC day as
// newline-delimited JSON, the format BigQuery loads from GCS. Returns how many rows were
// written.
func WriteRows(ctx context.Context, store db.TrackStore, day time.Time, w io.Writer) (int, error) {
	s := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	e := s.AddDate(0, 0, 1)

	q := db.NewQuery(db.ArchivedSet).
		Filter("CompletedAt >=", s).
		Filter("CompletedAt <", e).
		Order("CompletedAt")
	flights, err := store.Query(ctx, q)
	if err != nil {
		return 0, err
	}

	encoder := json.NewEncoder(w)
	for _, f := range flights {
		if err := encoder.Encode(f.ForBigQuery()); err != nil {
			return 0, err
		}
	}
	return len(flights), nil
}

// }}}
// {{{ Publish

// Publish writes a day's archived flights into a GCS file, then loads that file into the
// table and waits for the load job to finish.
func Publish(ctx context.Context, store db.TrackStore, day time.Time, gcsPath, project, dataset, table string, opts ...option.ClientOption) (*bigquery.Job, int, error) {
	bucketName, fileName, err := ref.ParseGCSPath(gcsPath)
	if err != nil {
		return nil, 0, err
	}

	gcsClient, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, 0, err
	}
	defer gcsClient.Close()

	gcsWriter := gcsClient.Bucket(bucketName).Object(fileName).NewWriter(ctx)
	gcsWriter.ContentType = "application/json"
	n, err := WriteRows(ctx, store, day, gcsWriter)
	if err != nil {
		gcsWriter.Close()
		return nil, 0, err
	}
	if err := gcsWriter.Close(); err != nil {
		return nil, 0, fmt.Errorf("GCS-Write %s: %w", gcsPath, err)
	}

	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, n, fmt.Errorf("creating bigquery client: %w", err)
	}
	defer client.Close()

	gcsSrc := bigquery.NewGCSReference(gcsPath)
	gcsSrc.SourceFormat = bigquery.JSON
	gcsSrc.AllowJaggedRows = true

	loader := client.Dataset(dataset).Table(table).LoaderFrom(gcsSrc)
	loader.CreateDisposition = bigquery.CreateNever
	loader.WriteDisposition = bigquery.WriteAppend
	job, err := loader.Run(ctx)
	if err != nil {
		return nil, n, fmt.Errorf("submission of load job: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return job, n, fmt.Errorf("load job %s: %w", job.ID(), err)
	} else if err := status.Err(); err != nil {
		return job, n, fmt.Errorf("load job %s: %w", job.ID(), err)
	}
	return job, n, nil
}

// }}}
