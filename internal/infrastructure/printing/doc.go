// Package printing talks to the document-merge function that combines
// individual shipping labels into a single PDF.
//
// Example usage:
//
//	merger, err := NewHTTPMerger(cfg.Merge, WithMergerLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pdf, err := merger.Merge(ctx, []string{labelURL1, labelURL2})
//	if err != nil {
//	    return err
//	}
//	if pdf == nil {
//	    // merge unavailable, hand out the individual label URLs
//	}
package printing
