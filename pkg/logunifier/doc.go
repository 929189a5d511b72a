// Package logunifier merges mobile log uploads stored in S3 with the rows of
// a Crashlytics BigQuery export into one newline-delimited JSON file.
//
// Quick start:
//
//	m, err := logunifier.New(ctx,
//	    logunifier.WithSettingsFile("settings.json"),
//	    logunifier.WithOutput("merged_logs.jsonl"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer m.Close()
//
//	n, err := m.Merge(ctx)
//
// A Merger can run any number of merges. Each merge either replaces the
// output file completely or leaves it untouched.
package logunifier
