// Package download executes batches of asset downloads to local files.
//
// Tasks are run in consecutive windows of [WindowSize] concurrent fetches.
// A window must fully settle before the next one starts, so no more than
// WindowSize requests are ever outstanding:
//
//	d := download.New(fetch.NewClient(fetch.DefaultOptions()), logger)
//	results := d.DownloadAll(ctx, tasks)
//
// Individual failures never abort the batch. Each task gets a [Result]
// describing whether its destination holds the fetched bytes.
package download
