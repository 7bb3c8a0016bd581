package sync

import (
	"fmt"
	"io"
)

// Report prints the total event count and the count of each weekday bucket.
func Report(out io.Writer, events []Event, buckets Buckets) error {
	if _, err := fmt.Fprintf(out, "Events count: %d\n", len(events)); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(out, "================"); err != nil {
		return err
	}
	for day, bucket := range buckets {
		if _, err := fmt.Fprintf(out, "Events on day: %d: %d\n", day, len(bucket)); err != nil {
			return err
		}
	}
	return nil
}
