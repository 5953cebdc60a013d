package web

import (
	"fmt"
	"io"
)

// WriteMetrics appends the page counters in Prometheus text format.
func (s *Server) WriteMetrics(w io.Writer) {
	fmt.Fprintf(w, "# HELP personalpage_page_views_total Rendered pages.\n")
	fmt.Fprintf(w, "# TYPE personalpage_page_views_total counter\n")
	fmt.Fprintf(w, "personalpage_page_views_total %d\n", s.pageViews.Load())

	fmt.Fprintf(w, "# HELP personalpage_writes_total Successful writes by kind.\n")
	fmt.Fprintf(w, "# TYPE personalpage_writes_total counter\n")
	fmt.Fprintf(w, "personalpage_writes_total{kind=%q} %d\n", "post_create", s.postsCreated.Load())
	fmt.Fprintf(w, "personalpage_writes_total{kind=%q} %d\n", "post_delete", s.postsDeleted.Load())
	fmt.Fprintf(w, "personalpage_writes_total{kind=%q} %d\n", "profile_save", s.profileSaves.Load())

	fmt.Fprintf(w, "# HELP personalpage_rejected_total Submissions rejected by validation.\n")
	fmt.Fprintf(w, "# TYPE personalpage_rejected_total counter\n")
	fmt.Fprintf(w, "personalpage_rejected_total %d\n", s.validationFailures.Load())

	fmt.Fprintf(w, "# HELP personalpage_persist_failures_total Writes the store refused.\n")
	fmt.Fprintf(w, "# TYPE personalpage_persist_failures_total counter\n")
	fmt.Fprintf(w, "personalpage_persist_failures_total %d\n", s.persistFailures.Load())
}
