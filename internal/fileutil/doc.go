// Package fileutil collects the source files of an input directory.
//
// ScanDirectory walks a directory and returns the absolute, sorted paths of
// the files whose extension is listed in ScanOptions.Extensions. Hidden
// files and directories are skipped, as are directories named in
// ExcludeDirs and any path matched by an Ignore expression. Ignore
// expressions see slash-separated paths relative to RelativeTo, by default
// the parent of the scanned directory, so "src/legacy" can exclude one input's
// subtree without touching another input:
//
//	result, err := fileutil.ScanDirectory("/project/src", fileutil.ScanOptions{
//	    Extensions:  []string{".js"},
//	    Recursive:   true,
//	    ExcludeDirs: []string{"node_modules"},
//	    Ignore:      patterns,
//	})
//
// Walking is error tolerant: entries that cannot be read are reported in
// ScanResult.Errors and the walk continues. Only an inaccessible root
// directory is fatal.
package fileutil
